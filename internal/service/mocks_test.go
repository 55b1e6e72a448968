package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/theheadmen/donations/internal/dbconnector"
	"github.com/theheadmen/donations/internal/gateway"
	"gorm.io/datatypes"
)

// --- Mock Storage ---
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateDonation(ctx context.Context, donor *dbconnector.Donor, donation *dbconnector.Donation) error {
	args := m.Called(ctx, donor, donation)
	return args.Error(0)
}

func (m *MockStorage) GetDonationByID(ctx context.Context, id uint) (*dbconnector.Donation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbconnector.Donation), args.Error(1)
}

func (m *MockStorage) GetDonationByOrderID(ctx context.Context, orderID string) (*dbconnector.Donation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbconnector.Donation), args.Error(1)
}

func (m *MockStorage) SetDonationOrderID(ctx context.Context, id uint, orderID string) error {
	args := m.Called(ctx, id, orderID)
	return args.Error(0)
}

func (m *MockStorage) MarkDonationSuccess(ctx context.Context, id uint, upd dbconnector.SuccessUpdate) (*dbconnector.Donation, bool, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*dbconnector.Donation), args.Bool(1), args.Error(2)
}

func (m *MockStorage) MarkDonationFailed(ctx context.Context, id uint, payload datatypes.JSON) (*dbconnector.Donation, bool, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*dbconnector.Donation), args.Bool(1), args.Error(2)
}

func (m *MockStorage) ListDonations(ctx context.Context, filter dbconnector.DonationFilter) ([]dbconnector.Donation, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]dbconnector.Donation), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorage) GetStatistics(ctx context.Context) (*dbconnector.DonationStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbconnector.DonationStats), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*dbconnector.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbconnector.User), args.Error(1)
}

func (m *MockStorage) GetUserByUserID(ctx context.Context, userID uint) (*dbconnector.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbconnector.User), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Gateway ---
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return m.Called(orderID, paymentID, signature).Bool(0)
}

func (m *MockGateway) KeyID() string {
	return m.Called().String(0)
}

func (m *MockGateway) Configured() bool {
	return m.Called().Bool(0)
}
