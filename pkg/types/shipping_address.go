package types

import (
	"strings"
)

// ShippingAddress is the delivery destination captured at checkout and
// snapshotted onto every purchase record.
type ShippingAddress struct {
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"omitempty,len=2"`
}

// DefaultCountry is applied when the client omits the country code.
const DefaultCountry = "IN"

// Normalize trims every field and fills the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	out := ShippingAddress{
		FullName:   strings.TrimSpace(a.FullName),
		Phone:      strings.TrimSpace(a.Phone),
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

// IsZero reports whether no address was supplied.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.FullName) == ""
}
