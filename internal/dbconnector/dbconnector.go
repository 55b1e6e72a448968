package dbconnector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/theheadmen/donations/internal/errors"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type DBConnector struct {
	DB *gorm.DB
}

type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func OpenDBConnect(dsn string, pool PoolSettings) (*DBConnector, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return &DBConnector{DB: db}, nil
}

func (dbConnector *DBConnector) DBInitialize() error {
	return dbConnector.DB.AutoMigrate(&User{}, &Donor{}, &Donation{})
}

func (dbConnector *DBConnector) Ping(ctx context.Context) error {
	sqlDB, err := dbConnector.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (dbConnector *DBConnector) Close() error {
	sqlDB, err := dbConnector.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateDonation upserts the donor by email and inserts the donation in one
// transaction. donation.DonorID is filled from the upserted row.
func (dbConnector *DBConnector) CreateDonation(ctx context.Context, donor *Donor, donation *Donation) error {
	tx := dbConnector.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns(donorMutableColumns),
	}).Create(donor)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("upsert donor: %w", result.Error)
	}

	donation.DonorID = donor.ID
	result = tx.Create(donation)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("insert donation: %w", result.Error)
	}

	return tx.Commit().Error
}

func (dbConnector *DBConnector) GetDonationByID(ctx context.Context, id uint) (*Donation, error) {
	var donation Donation
	err := dbConnector.DB.WithContext(ctx).Preload("Donor").First(&donation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDonationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (dbConnector *DBConnector) GetDonationByOrderID(ctx context.Context, orderID string) (*Donation, error) {
	var donation Donation
	err := dbConnector.DB.WithContext(ctx).
		Where("razorpay_order_id = ?", orderID).
		Order("id DESC").
		First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// SetDonationOrderID records the gateway order id while the donation is still pending.
func (dbConnector *DBConnector) SetDonationOrderID(ctx context.Context, id uint, orderID string) error {
	result := dbConnector.DB.WithContext(ctx).Model(&Donation{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"razorpay_order_id": orderID,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := dbConnector.GetDonationByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// MarkDonationSuccess moves a pending donation to success. applied is false
// when the donation was already successful, in which case nothing is rewritten.
func (dbConnector *DBConnector) MarkDonationSuccess(ctx context.Context, id uint, upd SuccessUpdate) (*Donation, bool, error) {
	updates := map[string]interface{}{
		"razorpay_payment_id": upd.PaymentID,
		"razorpay_signature":  upd.Signature,
		"payment_response":    upd.PaymentResponse,
		"payment_date":        upd.PaidAt,
	}
	if upd.PaymentMethod != "" {
		updates["payment_method"] = upd.PaymentMethod
	}
	return dbConnector.transition(ctx, id, StatusSuccess, updates)
}

// MarkDonationFailed moves a pending donation to failed, storing the payload verbatim.
func (dbConnector *DBConnector) MarkDonationFailed(ctx context.Context, id uint, payload datatypes.JSON) (*Donation, bool, error) {
	return dbConnector.transition(ctx, id, StatusFailed, map[string]interface{}{
		"payment_response": payload,
	})
}

func (dbConnector *DBConnector) transition(ctx context.Context, id uint, to DonationStatus, updates map[string]interface{}) (*Donation, bool, error) {
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := dbConnector.DB.WithContext(ctx).Model(&Donation{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}

	donation, err := dbConnector.GetDonationByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected == 0 {
		if donation.Status == to {
			return donation, false, nil
		}
		return donation, false, apperrors.ErrInvalidTransition
	}
	return donation, true, nil
}

func (dbConnector *DBConnector) ListDonations(ctx context.Context, filter DonationFilter) ([]Donation, int64, error) {
	base := func() *gorm.DB {
		q := dbConnector.DB.WithContext(ctx).Model(&Donation{}).
			Joins("JOIN donors ON donors.id = donations.donor_id")
		if filter.Status != "" {
			q = q.Where("donations.status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := "%" + escapeLike(filter.Search) + "%"
			q = q.Where("(donors.name ILIKE ? OR donors.email ILIKE ?)", like, like)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	donations := make([]Donation, 0)
	if total == 0 {
		return donations, 0, nil
	}
	// Past the last page. Compared by page count so the offset is never computed.
	if filter.PerPage > 0 && int64(filter.Page-1) >= (total+int64(filter.PerPage)-1)/int64(filter.PerPage) {
		return donations, total, nil
	}
	err := base().
		Select("donations.*").
		Preload("Donor").
		Order("donations.created_at DESC, donations.id DESC").
		Limit(filter.PerPage).
		Offset((filter.Page - 1) * filter.PerPage).
		Find(&donations).Error
	if err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (dbConnector *DBConnector) GetStatistics(ctx context.Context) (*DonationStats, error) {
	db := dbConnector.DB.WithContext(ctx)
	stats := &DonationStats{ByStatus: map[DonationStatus]int64{}}

	err := db.Model(&Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", StatusSuccess).
		Row().Scan(&stats.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("sum successful donations: %w", err)
	}

	if err := db.Model(&Donor{}).Count(&stats.TotalDonors).Error; err != nil {
		return nil, fmt.Errorf("count donors: %w", err)
	}

	var rows []struct {
		Status DonationStatus
		Count  int64
	}
	err = db.Model(&Donation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count donations by status: %w", err)
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalTransactions += row.Count
	}

	stats.Recent = make([]Donation, 0, 5)
	err = db.Preload("Donor").
		Where("status = ?", StatusSuccess).
		Order("created_at DESC, id DESC").
		Limit(5).
		Find(&stats.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent donations: %w", err)
	}
	return stats, nil
}

func (dbConnector *DBConnector) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := dbConnector.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (dbConnector *DBConnector) GetUserByUserID(ctx context.Context, userID uint) (*User, error) {
	var user User
	err := dbConnector.DB.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser inserts the user or overwrites name, password and admin flag by email.
func (dbConnector *DBConnector) UpsertUser(ctx context.Context, user *User) error {
	return dbConnector.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password", "is_admin", "updated_at"}),
	}).Create(user).Error
}

// DeleteAllData empties every table. Used by the integration suite.
func (dbConnector *DBConnector) DeleteAllData(ctx context.Context) error {
	return dbConnector.DB.WithContext(ctx).
		Exec("TRUNCATE TABLE donations, donors, users RESTART IDENTITY CASCADE").Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
