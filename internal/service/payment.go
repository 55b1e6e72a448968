package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/gateway"
	"github.com/theheadmen/donations/internal/models"
	"gorm.io/datatypes"
)

// CreateOrderLogic opens a gateway order for a pending donation and stores its id.
func CreateOrderLogic(ctx context.Context, storage Storage, gw gateway.Gateway, req models.CreateOrderRequest) (int /*httpCode*/, *models.CreateOrderResponse, error) {
	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	amount := parseAmount(req.Amount, verr)
	if !verr.Empty() {
		return http.StatusUnprocessableEntity, nil, verr
	}
	if !gw.Configured() {
		return http.StatusServiceUnavailable, nil, apperrors.ErrGatewayNotConfigured
	}

	donation, err := storage.GetDonationByID(ctx, req.DonationID)
	if err != nil {
		return codeForStorageError(err), nil, err
	}
	if donation.Status != dbconnector.StatusPending {
		return http.StatusConflict, nil, apperrors.ErrInvalidTransition
	}

	order, err := gw.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   gateway.ToMinorUnits(amount),
		Currency: donation.Currency,
		Receipt:  "donation_" + strconv.FormatUint(uint64(donation.ID), 10),
		Notes: map[string]string{
			"donation_id": strconv.FormatUint(uint64(donation.ID), 10),
			"donor_id":    strconv.FormatUint(uint64(donation.DonorID), 10),
		},
	})
	if err != nil {
		return codeForGatewayError(err), nil, err
	}

	if err := storage.SetDonationOrderID(ctx, donation.ID, order.ID); err != nil {
		return codeForStorageError(err), nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = donation.Currency
	}
	return http.StatusOK, &models.CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: currency,
		Key:      gw.KeyID(),
	}, nil
}

// VerifyPaymentLogic checks the checkout signature and, when it matches,
// moves the donation behind the order to success. A mismatch leaves the
// donation untouched.
func VerifyPaymentLogic(ctx context.Context, storage Storage, gw gateway.Gateway, req models.VerifyPaymentRequest) (int /*httpCode*/, *models.VerifyPaymentResponse, bool, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)

	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	if !verr.Empty() {
		return http.StatusUnprocessableEntity, nil, false, verr
	}
	if !gw.Configured() {
		return http.StatusServiceUnavailable, nil, false, apperrors.ErrGatewayNotConfigured
	}

	if !gw.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return http.StatusBadRequest, nil, false, apperrors.ErrInvalidSignature
	}

	donation, err := storage.GetDonationByOrderID(ctx, req.OrderID)
	if err != nil {
		return codeForStorageError(err), nil, false, err
	}
	if donation.Status == dbconnector.StatusSuccess {
		return http.StatusOK, &models.VerifyPaymentResponse{DonationID: donation.ID, Status: donation.Status}, false, nil
	}
	if donation.Status != dbconnector.StatusPending {
		return http.StatusConflict, nil, false, apperrors.ErrInvalidTransition
	}

	payment, err := gw.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		return codeForGatewayError(err), nil, false, err
	}
	raw, err := json.Marshal(payment.Raw)
	if err != nil {
		return http.StatusInternalServerError, nil, false, fmt.Errorf("encode payment response: %w", err)
	}

	updated, applied, err := storage.MarkDonationSuccess(ctx, donation.ID, dbconnector.SuccessUpdate{
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
		PaymentMethod:   payment.Method,
		PaymentResponse: datatypes.JSON(raw),
		PaidAt:          time.Now(),
	})
	if err != nil {
		return codeForStorageError(err), nil, false, err
	}

	return http.StatusOK, &models.VerifyPaymentResponse{
		DonationID: updated.ID,
		Status:     updated.Status,
	}, applied, nil
}

// RecordFailureLogic marks the donation behind the order as failed and keeps
// the client-supplied error detail verbatim.
func RecordFailureLogic(ctx context.Context, storage Storage, req models.PaymentFailedRequest) (int /*httpCode*/, bool, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)

	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	payload := bytes.TrimSpace(req.Error)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	} else if !json.Valid(payload) {
		verr.Add("error", "The error must be valid JSON.")
	}
	if !verr.Empty() {
		return http.StatusUnprocessableEntity, false, verr
	}

	donation, err := storage.GetDonationByOrderID(ctx, req.OrderID)
	if err != nil {
		return codeForStorageError(err), false, err
	}

	_, applied, err := storage.MarkDonationFailed(ctx, donation.ID, datatypes.JSON(payload))
	if err != nil {
		return codeForStorageError(err), false, err
	}
	return http.StatusOK, applied, nil
}

func codeForStorageError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrDonationNotFound), errors.Is(err, apperrors.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func codeForGatewayError(err error) int {
	if errors.Is(err, apperrors.ErrGatewayNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
