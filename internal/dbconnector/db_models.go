package dbconnector

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DonationStatus string

const (
	StatusPending  DonationStatus = "pending"
	StatusSuccess  DonationStatus = "success"
	StatusFailed   DonationStatus = "failed"
	StatusRefunded DonationStatus = "refunded"
)

func (s DonationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

const (
	DonationTypeOneTime = "one-time"
	DonationTypeMonthly = "monthly"
)

type Donor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Phone     *string   `json:"phone" gorm:"size:20"`
	Age       *int      `json:"age"`
	Address   *string   `json:"address" gorm:"type:text"`
	City      *string   `json:"city" gorm:"size:100"`
	State     *string   `json:"state" gorm:"size:100"`
	Country   string    `json:"country" gorm:"size:100;not null;default:'India'"`
	Pincode   *string   `json:"pincode" gorm:"size:10"`
	PanNumber *string   `json:"pan_number" gorm:"size:10"`
	Anonymous bool      `json:"anonymous" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// donorMutableColumns are overwritten when a submission reuses an existing email.
var donorMutableColumns = []string{
	"name", "phone", "age", "address", "city", "state",
	"country", "pincode", "pan_number", "anonymous", "updated_at",
}

type Donation struct {
	ID                      uint            `json:"id" gorm:"primaryKey"`
	DonorID                 uint            `json:"donor_id" gorm:"not null;index"`
	Donor                   *Donor          `json:"donor,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Amount                  decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency                string          `json:"currency" gorm:"size:3;not null;default:'INR'"`
	DonationType            string          `json:"donation_type" gorm:"size:20;not null;default:'one-time'"`
	Purpose                 *string         `json:"purpose" gorm:"size:255"`
	PaymentMethod           *string         `json:"payment_method" gorm:"size:50"`
	Status                  DonationStatus  `json:"status" gorm:"size:20;not null;default:'pending';index"`
	RazorpayOrderID         *string         `json:"razorpay_order_id" gorm:"size:100;index"`
	RazorpayPaymentID       *string         `json:"razorpay_payment_id" gorm:"size:100;index"`
	RazorpaySignature       *string         `json:"razorpay_signature" gorm:"size:255"`
	PaymentResponse         datatypes.JSON  `json:"payment_response" gorm:"type:jsonb"`
	Notes                   *string         `json:"notes" gorm:"type:text"`
	TaxExemptionCertificate bool            `json:"tax_exemption_certificate" gorm:"not null"`
	PaymentDate             *time.Time      `json:"payment_date"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	IsAdmin   bool      `json:"is_admin" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SuccessUpdate is what a verified payment writes onto its donation.
type SuccessUpdate struct {
	PaymentID       string
	Signature       string
	PaymentMethod   string
	PaymentResponse datatypes.JSON
	PaidAt          time.Time
}

type DonationFilter struct {
	Status  DonationStatus
	Search  string
	Page    int
	PerPage int
}

type DonationStats struct {
	TotalAmount       decimal.Decimal
	TotalDonors       int64
	TotalTransactions int64
	ByStatus          map[DonationStatus]int64
	Recent            []Donation
}
