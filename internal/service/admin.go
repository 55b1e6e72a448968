package service

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/models"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
	MaxPage        = math.MaxInt32
)

func ListDonationsLogic(ctx context.Context, storage Storage, query models.DonationListQuery) (int /*httpCode*/, *models.DonationPage, error) {
	status := dbconnector.DonationStatus(strings.ToLower(strings.TrimSpace(query.Status)))
	if status != "" && !status.Valid() {
		verr := apperrors.NewValidationError()
		verr.Add("status", "The selected status is invalid.")
		return http.StatusUnprocessableEntity, nil, verr
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	// Keeps (page-1)*per_page far from int overflow.
	if page > MaxPage {
		page = MaxPage
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	donations, total, err := storage.ListDonations(ctx, dbconnector.DonationFilter{
		Status:  status,
		Search:  strings.TrimSpace(query.Search),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return http.StatusOK, &models.DonationPage{
		Data:        donations,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

func GetDonationLogic(ctx context.Context, storage Storage, id uint) (int /*httpCode*/, *dbconnector.Donation, error) {
	if id == 0 {
		return http.StatusNotFound, nil, apperrors.ErrDonationNotFound
	}
	donation, err := storage.GetDonationByID(ctx, id)
	if err != nil {
		return codeForStorageError(err), nil, err
	}
	return http.StatusOK, donation, nil
}

func StatisticsLogic(ctx context.Context, storage Storage) (int /*httpCode*/, *models.StatisticsResponse, error) {
	stats, err := storage.GetStatistics(ctx)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	recent := stats.Recent
	if recent == nil {
		recent = []dbconnector.Donation{}
	}
	return http.StatusOK, &models.StatisticsResponse{
		TotalDonations:      models.Money{Decimal: stats.TotalAmount},
		TotalDonors:         stats.TotalDonors,
		TotalTransactions:   stats.TotalTransactions,
		SuccessfulDonations: stats.ByStatus[dbconnector.StatusSuccess],
		PendingDonations:    stats.ByStatus[dbconnector.StatusPending],
		FailedDonations:     stats.ByStatus[dbconnector.StatusFailed],
		RefundedDonations:   stats.ByStatus[dbconnector.StatusRefunded],
		RecentDonations:     recent,
	}, nil
}
