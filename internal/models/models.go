package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theheadmen/donations/internal/dbconnector"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// DonationRequest is the public donation form. Amount and age stay raw: form
// clients send numbers, numeric strings or "" for them, and a bad value is
// reported as a field error instead of a decode failure.
type DonationRequest struct {
	Name                    string          `json:"name" validate:"required,max=255"`
	Email                   string          `json:"email" validate:"required,email,max=255"`
	Phone                   *string         `json:"phone" validate:"omitempty,max=20"`
	Age                     json.RawMessage `json:"age"`
	Address                 *string         `json:"address"`
	City                    *string         `json:"city" validate:"omitempty,max=100"`
	State                   *string         `json:"state" validate:"omitempty,max=100"`
	Country                 *string         `json:"country" validate:"omitempty,max=100"`
	Pincode                 *string         `json:"pincode" validate:"omitempty,max=10"`
	PanNumber               *string         `json:"pan_number" validate:"omitempty,max=10"`
	Anonymous               *bool           `json:"anonymous"`
	Amount                  json.RawMessage `json:"amount"`
	Currency                *string         `json:"currency" validate:"omitempty,len=3,alpha"`
	DonationType            *string         `json:"donation_type" validate:"omitempty,oneof=one-time monthly"`
	Purpose                 *string         `json:"purpose" validate:"omitempty,max=255"`
	Notes                   *string         `json:"notes"`
	TaxExemptionCertificate *bool           `json:"tax_exemption_certificate"`
}

type CreateDonationResponse struct {
	DonationID uint `json:"donation_id"`
	DonorID    uint `json:"donor_id"`
}

type CreateOrderRequest struct {
	DonationID uint            `json:"donation_id" validate:"required"`
	Amount     json.RawMessage `json:"amount"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type VerifyPaymentResponse struct {
	DonationID uint                       `json:"donation_id"`
	Status     dbconnector.DonationStatus `json:"status"`
}

type PaymentFailedRequest struct {
	OrderID string          `json:"razorpay_order_id" validate:"required"`
	Error   json.RawMessage `json:"error"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type DonationListQuery struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}

// Money is a decimal amount that encodes as a bare JSON number. Decoding
// accepts both numbers and strings.
type Money struct {
	decimal.Decimal
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

type DonationPage struct {
	Data        []dbconnector.Donation `json:"data"`
	CurrentPage int                    `json:"current_page"`
	PerPage     int                    `json:"per_page"`
	Total       int64                  `json:"total"`
	LastPage    int                    `json:"last_page"`
}

type StatisticsResponse struct {
	TotalDonations      Money                  `json:"total_donations"`
	TotalDonors         int64                  `json:"total_donors"`
	TotalTransactions   int64                  `json:"total_transactions"`
	SuccessfulDonations int64                  `json:"successful_donations"`
	PendingDonations    int64                  `json:"pending_donations"`
	FailedDonations     int64                  `json:"failed_donations"`
	RefundedDonations   int64                  `json:"refunded_donations"`
	RecentDonations     []dbconnector.Donation `json:"recent_donations"`
}
