package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/models"
)

const (
	defaultCountry  = "India"
	defaultCurrency = "INR"
)

// CreateDonationLogic validates the form, upserts the donor by email and
// records a pending donation, both in one transaction.
func CreateDonationLogic(ctx context.Context, storage Storage, req models.DonationRequest) (int /*httpCode*/, *models.CreateDonationResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	amount := parseAmount(req.Amount, verr)
	age := parseAge(req.Age, verr)
	if !verr.Empty() {
		return http.StatusUnprocessableEntity, nil, verr
	}

	donor := &dbconnector.Donor{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     trimmedOrNil(req.Phone),
		Age:       age,
		Address:   trimmedOrNil(req.Address),
		City:      trimmedOrNil(req.City),
		State:     trimmedOrNil(req.State),
		Country:   valueOr(req.Country, defaultCountry),
		Pincode:   trimmedOrNil(req.Pincode),
		PanNumber: upperOrNil(req.PanNumber),
		Anonymous: boolOr(req.Anonymous, false),
	}
	donation := &dbconnector.Donation{
		Amount:                  amount,
		Currency:                strings.ToUpper(valueOr(req.Currency, defaultCurrency)),
		DonationType:            valueOr(req.DonationType, dbconnector.DonationTypeOneTime),
		Purpose:                 trimmedOrNil(req.Purpose),
		Notes:                   trimmedOrNil(req.Notes),
		TaxExemptionCertificate: boolOr(req.TaxExemptionCertificate, false),
		Status:                  dbconnector.StatusPending,
	}

	if err := storage.CreateDonation(ctx, donor, donation); err != nil {
		return http.StatusInternalServerError, nil, err
	}

	return http.StatusCreated, &models.CreateDonationResponse{
		DonationID: donation.ID,
		DonorID:    donor.ID,
	}, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func upperOrNil(s *string) *string {
	v := trimmedOrNil(s)
	if v == nil {
		return nil
	}
	upper := strings.ToUpper(*v)
	return &upper
}

func valueOr(s *string, fallback string) string {
	if v := trimmedOrNil(s); v != nil {
		return *v
	}
	return fallback
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
