package enums

// PaymentMethod describes how a purchase was settled.
type PaymentMethod string

const (
	// PaymentMethodGateway is a payment captured by the external gateway.
	PaymentMethodGateway PaymentMethod = "gateway"
	// PaymentMethodCOD is a direct checkout settled on delivery.
	PaymentMethodCOD PaymentMethod = "cod"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodGateway,
	PaymentMethodCOD,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}
