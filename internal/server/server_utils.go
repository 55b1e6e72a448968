package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/models"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// publicErrors may be shown to the client as is.
var publicErrors = []error{
	apperrors.ErrDonationNotFound,
	apperrors.ErrOrderNotFound,
	apperrors.ErrInvalidTransition,
	apperrors.ErrInvalidSignature,
	apperrors.ErrGatewayNotConfigured,
	apperrors.ErrInvalidCredentials,
	apperrors.ErrNotAdmin,
	apperrors.ErrUnauthenticated,
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError writes the error envelope. Server-side failures are logged and
// answered with a generic message so that internal details never leak.
func (ls *ServerSystem) respondError(w http.ResponseWriter, r *http.Request, code int, err error) {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, models.Response{
			Success: false,
			Message: "The given data was invalid.",
			Errors:  verr.Fields,
		})
		return
	}

	if code >= http.StatusInternalServerError {
		ls.Logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	writeJSON(w, code, models.Response{Success: false, Message: publicMessage(code, err)})
}

func publicMessage(code int, err error) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	if code >= http.StatusInternalServerError {
		return "Something went wrong, please try again later"
	}
	return http.StatusText(code)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// decodeJSON reads the body into dst and answers itself when it cannot: 422
// for a value of the wrong JSON type, 400 for anything unparseable.
func (ls *ServerSystem) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			ls.respondError(w, r, http.StatusUnprocessableEntity, typeMismatch(typeErr))
			return false
		}
		message := "Malformed JSON request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "Request body too large"
		}
		writeJSON(w, http.StatusBadRequest, models.Response{Success: false, Message: message})
		return false
	}
	return true
}

func typeMismatch(typeErr *json.UnmarshalTypeError) *apperrors.ValidationError {
	verr := apperrors.NewValidationError()
	if typeErr.Field == "" {
		verr.Add("body", "The request body must be a JSON object.")
		return verr
	}
	field := strings.ReplaceAll(typeErr.Field, "_", " ")
	var msg string
	switch typeErr.Type.Kind() {
	case reflect.String:
		msg = "The " + field + " must be a string."
	case reflect.Bool:
		msg = "The " + field + " field must be true or false."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		msg = "The " + field + " must be an integer."
	case reflect.Float32, reflect.Float64:
		msg = "The " + field + " must be a number."
	default:
		msg = "The " + field + " is invalid."
	}
	verr.Add(typeErr.Field, msg)
	return verr
}

// queryInt returns 0 for an absent parameter so that the service applies its default.
func queryInt(q url.Values, key string, verr *apperrors.ValidationError) int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(key, "The "+strings.ReplaceAll(key, "_", " ")+" must be an integer.")
		return 0
	}
	return n
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// clientIP uses the connection address only; forwarded headers are client controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
