package service

import (
	"context"

	"github.com/theheadmen/donations/internal/dbconnector"
	"gorm.io/datatypes"
)

type Storage interface {
	CreateDonation(ctx context.Context, donor *dbconnector.Donor, donation *dbconnector.Donation) error
	GetDonationByID(ctx context.Context, id uint) (*dbconnector.Donation, error)
	GetDonationByOrderID(ctx context.Context, orderID string) (*dbconnector.Donation, error)
	SetDonationOrderID(ctx context.Context, id uint, orderID string) error
	MarkDonationSuccess(ctx context.Context, id uint, upd dbconnector.SuccessUpdate) (*dbconnector.Donation, bool, error)
	MarkDonationFailed(ctx context.Context, id uint, payload datatypes.JSON) (*dbconnector.Donation, bool, error)
	ListDonations(ctx context.Context, filter dbconnector.DonationFilter) ([]dbconnector.Donation, int64, error)
	GetStatistics(ctx context.Context) (*dbconnector.DonationStats, error)
	GetUserByEmail(ctx context.Context, email string) (*dbconnector.User, error)
	GetUserByUserID(ctx context.Context, userID uint) (*dbconnector.User, error)
	Ping(ctx context.Context) error
}
