package payments

import (
	"github.com/razorpay/razorpay-go/utils"
)

// VerifySignature reports whether signature is the gateway's hex
// HMAC-SHA256 of "orderID|paymentID" under secret. The match is exact:
// case and surrounding whitespace count.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}
