package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/theheadmen/donations/internal/errors"
)

func TestComputeSignature(t *testing.T) {
	const (
		orderID   = "order_IluGWxBm9U8zJ8"
		paymentID = "pay_IluGWxBm9U8zJ9"
		secret    = "EnLs21M47BllR3X8PSFtjtbd"
	)

	sig := ComputeSignature(orderID, paymentID, secret)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, ComputeSignature(orderID, paymentID, secret))
	assert.True(t, verifySignature(orderID, paymentID, sig, secret))

	testCases := []struct {
		name      string
		orderID   string
		paymentID string
		secret    string
	}{
		{name: "order id changed", orderID: orderID + "x", paymentID: paymentID, secret: secret},
		{name: "payment id changed", orderID: orderID, paymentID: "pay_other", secret: secret},
		{name: "secret changed", orderID: orderID, paymentID: paymentID, secret: secret + "1"},
		{name: "ids swapped", orderID: paymentID, paymentID: orderID, secret: secret},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, verifySignature(tc.orderID, tc.paymentID, sig, tc.secret))
		})
	}
}

// The checkout signs "order|payment"; moving the separator must not collide.
func TestComputeSignatureSeparator(t *testing.T) {
	assert.NotEqual(t,
		ComputeSignature("order_1", "2pay", "s"),
		ComputeSignature("order_12", "pay", "s"),
	)
}

func TestToMinorUnits(t *testing.T) {
	testCases := []struct {
		amount string
		want   int64
	}{
		{"1", 100},
		{"500", 50000},
		{"150.5", 15050},
		{"99.99", 9999},
		{"0.015", 2},
	}
	for _, tc := range testCases {
		t.Run(tc.amount, func(t *testing.T) {
			assert.Equal(t, tc.want, ToMinorUnits(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestRazorpayGatewayNotConfigured(t *testing.T) {
	g := NewRazorpayGateway("", "")
	assert.False(t, g.Configured())
	assert.False(t, g.VerifySignature("order", "pay", ComputeSignature("order", "pay", "")))

	_, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	assert.True(t, errors.Is(err, apperrors.ErrGatewayNotConfigured))
	_, err = g.FetchPayment(context.Background(), "pay_1")
	assert.True(t, errors.Is(err, apperrors.ErrGatewayNotConfigured))
}

func TestRazorpayGatewayVerifySignature(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "secret")
	require.True(t, g.Configured())
	assert.Equal(t, "rzp_test_key", g.KeyID())

	sig := ComputeSignature("order_1", "pay_1", "secret")
	assert.True(t, g.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, g.VerifySignature("order_1", "pay_2", sig))
	assert.False(t, g.VerifySignature("order_1", "pay_1", ""))
}

func TestInt64Field(t *testing.T) {
	m := map[string]interface{}{"f": float64(50000), "i": 7, "s": "42", "bad": true}
	assert.Equal(t, int64(50000), int64Field(m, "f"))
	assert.Equal(t, int64(7), int64Field(m, "i"))
	assert.Equal(t, int64(42), int64Field(m, "s"))
	assert.Equal(t, int64(0), int64Field(m, "bad"))
	assert.Equal(t, int64(0), int64Field(m, "missing"))
}
