// Package gateway wraps the payment provider used for donation checkout.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

type OrderRequest struct {
	// Amount in the currency's minor unit (paise for INR).
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
}

type Payment struct {
	ID      string
	OrderID string
	Method  string
	Status  string
	// Raw is the provider's payment entity as returned by the API.
	Raw map[string]interface{}
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
	Configured() bool
}

// ComputeSignature returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)),
// the signature the checkout hands back to the client after a payment.
func ComputeSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(orderID, paymentID, signature, secret string) bool {
	expected := ComputeSignature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (rupees) into minor units (paise).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
