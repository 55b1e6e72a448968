package gateway

import (
	"context"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"
	apperrors "github.com/theheadmen/donations/internal/errors"
)

// RazorpayGateway is constructed once at start-up and injected into the server.
// With empty credentials every call fails with ErrGatewayNotConfigured.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	client    *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	g := &RazorpayGateway{keyID: keyID, keySecret: keySecret}
	if g.Configured() {
		g.client = razorpay.NewClient(keyID, keySecret)
	}
	return g
}

func (g *RazorpayGateway) Configured() bool {
	return g.keyID != "" && g.keySecret != ""
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if !g.Configured() {
		return nil, apperrors.ErrGatewayNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", apperrors.ErrGateway, err)
	}

	order := &Order{
		ID:       stringField(body, "id"),
		Amount:   int64Field(body, "amount"),
		Currency: stringField(body, "currency"),
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: create order: response has no id", apperrors.ErrGateway)
	}
	return order, nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if !g.Configured() {
		return nil, apperrors.ErrGatewayNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch payment %s: %v", apperrors.ErrGateway, paymentID, err)
	}
	return &Payment{
		ID:      stringField(body, "id"),
		OrderID: stringField(body, "order_id"),
		Method:  stringField(body, "method"),
		Status:  stringField(body, "status"),
		Raw:     body,
	}, nil
}

func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if !g.Configured() {
		return false
	}
	return verifySignature(orderID, paymentID, signature, g.keySecret)
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// int64Field reads a JSON number that may have been decoded as float64, int or string.
func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
