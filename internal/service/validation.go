package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	apperrors "github.com/theheadmen/donations/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and folds the result into a ValidationError.
func validateStruct(s interface{}, verr *apperrors.ValidationError) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("body", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", field, fe.Param())
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
	case "len":
		return fmt.Sprintf("The %s must be %s characters.", field, fe.Param())
	case "alpha":
		return fmt.Sprintf("The %s may only contain letters.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return fmt.Sprintf("The %s is invalid.", field)
}

var (
	minAmount = decimal.NewFromInt(1)
	// numeric(10,2)
	maxAmount = decimal.RequireFromString("99999999.99")
)

// parseAmount accepts a JSON number or a numeric string and enforces amount >= 1.
func parseAmount(raw json.RawMessage, verr *apperrors.ValidationError) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		verr.Add("amount", "The amount field is required.")
		return decimal.Zero
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			verr.Add("amount", "The amount must be a number.")
			return decimal.Zero
		}
		text = strings.TrimSpace(text)
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		verr.Add("amount", "The amount must be a number.")
		return decimal.Zero
	}
	if amount.LessThan(minAmount) {
		verr.Add("amount", "The amount must be at least 1.")
		return decimal.Zero
	}
	if amount.GreaterThan(maxAmount) {
		verr.Add("amount", "The amount may not be greater than "+maxAmount.StringFixed(2)+".")
		return decimal.Zero
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		verr.Add("amount", "The amount may not have more than 2 decimal places.")
		return decimal.Zero
	}
	return amount
}

const (
	minAge = 1
	maxAge = 120
)

// parseAge accepts a JSON integer or an integer string. Absent, null and ""
// mean no age was given.
func parseAge(raw json.RawMessage, verr *apperrors.ValidationError) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			verr.Add("age", "The age must be an integer.")
			return nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
	}
	age, err := strconv.Atoi(text)
	if err != nil {
		verr.Add("age", "The age must be an integer.")
		return nil
	}
	if age < minAge {
		verr.Add("age", fmt.Sprintf("The age must be at least %d.", minAge))
		return nil
	}
	if age > maxAge {
		verr.Add("age", fmt.Sprintf("The age may not be greater than %d.", maxAge))
		return nil
	}
	return &age
}
