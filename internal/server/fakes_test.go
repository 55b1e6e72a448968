package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/gateway"
	"gorm.io/datatypes"
)

// memStorage is an in-memory service.Storage for handler tests.
type memStorage struct {
	mu        sync.Mutex
	donors    map[uint]*dbconnector.Donor
	donations map[uint]*dbconnector.Donation
	users     map[uint]*dbconnector.User
	nextID    uint
	listErr   error
	pingErr   error
}

func newMemStorage() *memStorage {
	return &memStorage{
		donors:    map[uint]*dbconnector.Donor{},
		donations: map[uint]*dbconnector.Donation{},
		users:     map[uint]*dbconnector.User{},
	}
}

func (s *memStorage) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStorage) addUser(u *dbconnector.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = u
}

func (s *memStorage) CreateDonation(_ context.Context, donor *dbconnector.Donor, donation *dbconnector.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.donors {
		if existing.Email == donor.Email {
			donor.ID = existing.ID
			break
		}
	}
	if donor.ID == 0 {
		donor.ID = s.id()
	}
	stored := *donor
	s.donors[donor.ID] = &stored

	donation.ID = s.id()
	donation.DonorID = donor.ID
	donation.CreatedAt = time.Now()
	copied := *donation
	s.donations[donation.ID] = &copied
	return nil
}

func (s *memStorage) get(id uint) (*dbconnector.Donation, error) {
	d, ok := s.donations[id]
	if !ok {
		return nil, apperrors.ErrDonationNotFound
	}
	out := *d
	if donor, ok := s.donors[d.DonorID]; ok {
		donorCopy := *donor
		out.Donor = &donorCopy
	}
	return &out, nil
}

func (s *memStorage) GetDonationByID(_ context.Context, id uint) (*dbconnector.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *memStorage) GetDonationByOrderID(_ context.Context, orderID string) (*dbconnector.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.donations {
		if d.RazorpayOrderID != nil && *d.RazorpayOrderID == orderID {
			return s.get(id)
		}
	}
	return nil, apperrors.ErrOrderNotFound
}

func (s *memStorage) SetDonationOrderID(_ context.Context, id uint, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return apperrors.ErrDonationNotFound
	}
	if d.Status != dbconnector.StatusPending {
		return apperrors.ErrInvalidTransition
	}
	d.RazorpayOrderID = &orderID
	return nil
}

func (s *memStorage) transition(id uint, to dbconnector.DonationStatus, apply func(*dbconnector.Donation)) (*dbconnector.Donation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, false, apperrors.ErrDonationNotFound
	}
	if d.Status != dbconnector.StatusPending {
		out, _ := s.get(id)
		if d.Status == to {
			return out, false, nil
		}
		return out, false, apperrors.ErrInvalidTransition
	}
	d.Status = to
	apply(d)
	out, _ := s.get(id)
	return out, true, nil
}

func (s *memStorage) MarkDonationSuccess(_ context.Context, id uint, upd dbconnector.SuccessUpdate) (*dbconnector.Donation, bool, error) {
	return s.transition(id, dbconnector.StatusSuccess, func(d *dbconnector.Donation) {
		d.RazorpayPaymentID = &upd.PaymentID
		d.RazorpaySignature = &upd.Signature
		method := upd.PaymentMethod
		d.PaymentMethod = &method
		d.PaymentResponse = upd.PaymentResponse
		paidAt := upd.PaidAt
		d.PaymentDate = &paidAt
	})
}

func (s *memStorage) MarkDonationFailed(_ context.Context, id uint, payload datatypes.JSON) (*dbconnector.Donation, bool, error) {
	return s.transition(id, dbconnector.StatusFailed, func(d *dbconnector.Donation) {
		d.PaymentResponse = payload
	})
}

func (s *memStorage) ListDonations(_ context.Context, filter dbconnector.DonationFilter) ([]dbconnector.Donation, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]dbconnector.Donation, 0)
	for id := range s.donations {
		d, _ := s.get(id)
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(d.Donor.Name), needle) &&
				!strings.Contains(strings.ToLower(d.Donor.Email), needle) {
				continue
			}
		}
		matched = append(matched, *d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.PerPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memStorage) GetStatistics(_ context.Context) (*dbconnector.DonationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &dbconnector.DonationStats{
		ByStatus:    map[dbconnector.DonationStatus]int64{},
		TotalDonors: int64(len(s.donors)),
	}
	for _, d := range s.donations {
		stats.ByStatus[d.Status]++
		stats.TotalTransactions++
		if d.Status == dbconnector.StatusSuccess {
			stats.TotalAmount = stats.TotalAmount.Add(d.Amount)
		}
	}
	return stats, nil
}

func (s *memStorage) GetUserByEmail(_ context.Context, email string) (*dbconnector.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (s *memStorage) GetUserByUserID(_ context.Context, userID uint) (*dbconnector.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		out := *u
		return &out, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (s *memStorage) Ping(_ context.Context) error {
	return s.pingErr
}

// fakeGateway signs with its secret and numbers orders sequentially.
type fakeGateway struct {
	mu         sync.Mutex
	secret     string
	configured bool
	orders     int
	orderErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{secret: "test_secret", configured: true}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.orders++
	return &gateway.Order{ID: fmt.Sprintf("order_%d", g.orders), Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	if paymentID == "" {
		return nil, errors.New("empty payment id")
	}
	return &gateway.Payment{
		ID:     paymentID,
		Method: "upi",
		Status: "captured",
		Raw:    map[string]interface{}{"id": paymentID, "method": "upi"},
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.configured && gateway.ComputeSignature(orderID, paymentID, g.secret) == signature
}

func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }
func (g *fakeGateway) Configured() bool { return g.configured }
