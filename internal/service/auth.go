package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/theheadmen/donations/internal/auth"
	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/models"
)

// LoginLogic answers the same 401 for an unknown email and a wrong password.
func LoginLogic(ctx context.Context, storage Storage, tokens *auth.TokenManager, req models.LoginRequest) (int /*httpCode*/, *models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	if !verr.Empty() {
		return http.StatusUnprocessableEntity, nil, verr
	}

	user, err := storage.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		auth.BurnPasswordCheck(req.Password)
		return http.StatusUnauthorized, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		return http.StatusUnauthorized, nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsAdmin {
		return http.StatusForbidden, nil, apperrors.ErrNotAdmin
	}

	token, expiresAt, err := tokens.Issue(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	return http.StatusOK, &models.LoginResponse{
		User:      ToUserResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// AuthenticateLogic resolves a bearer token to its user. The user is re-read
// so that a deleted account stops authenticating even with a live token.
func AuthenticateLogic(ctx context.Context, storage Storage, tokens *auth.TokenManager, token string) (int /*httpCode*/, *dbconnector.User, error) {
	claims, err := tokens.Parse(token)
	if err != nil {
		return http.StatusUnauthorized, nil, err
	}
	user, err := storage.GetUserByUserID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return http.StatusUnauthorized, nil, apperrors.ErrUnauthenticated
	}
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	return http.StatusOK, user, nil
}

func ToUserResponse(user *dbconnector.User) models.UserResponse {
	return models.UserResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
}
