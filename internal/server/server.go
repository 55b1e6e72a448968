package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/theheadmen/donations/internal/auth"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/gateway"
	"github.com/theheadmen/donations/internal/metrics"
	"github.com/theheadmen/donations/internal/models"
	"github.com/theheadmen/donations/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ServerSystem struct {
	Storage service.Storage
	Gateway gateway.Gateway
	Tokens  *auth.TokenManager
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	loginLimiter *RateLimiter
}

type Option func(*ServerSystem)

func WithLogger(logger *zap.Logger) Option {
	return func(ls *ServerSystem) { ls.Logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(ls *ServerSystem) { ls.Metrics = m }
}

// WithLoginRate limits login attempts per client IP.
func WithLoginRate(perMinute, burst int) Option {
	return func(ls *ServerSystem) {
		if perMinute <= 0 || burst <= 0 {
			return
		}
		ls.loginLimiter = NewRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

func NewServerSystem(storage service.Storage, gw gateway.Gateway, tokens *auth.TokenManager, opts ...Option) *ServerSystem {
	ls := &ServerSystem{
		Storage:      storage,
		Gateway:      gw,
		Tokens:       tokens,
		Logger:       zap.NewNop(),
		loginLimiter: NewRateLimiter(rate.Every(time.Minute/10), 5),
	}
	for _, opt := range opts {
		opt(ls)
	}
	if ls.Metrics == nil {
		ls.Metrics = metrics.New()
	}
	return ls
}

// Router serves every route both at the root and under /api.
func (ls *ServerSystem) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(ls.requestLogger, ls.metricsMiddleware, ls.recoverer)

	r.HandleFunc("/healthz", ls.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", ls.Metrics.Handler()).Methods(http.MethodGet)

	ls.registerRoutes(r.PathPrefix("/api").Subrouter())
	ls.registerRoutes(r)

	// mux does not run middleware for its fallback handlers.
	r.NotFoundHandler = ls.requestLogger(ls.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, models.Response{Success: false, Message: "Not found"})
	})))
	r.MethodNotAllowedHandler = ls.requestLogger(ls.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, models.Response{Success: false, Message: "Method not allowed"})
	})))
	return r
}

func (ls *ServerSystem) registerRoutes(r *mux.Router) {
	r.HandleFunc("/donations", ls.CreateDonationHandler).Methods(http.MethodPost)
	r.HandleFunc("/payment/create-order", ls.CreateOrderHandler).Methods(http.MethodPost)
	r.HandleFunc("/payment/verify", ls.VerifyPaymentHandler).Methods(http.MethodPost)
	r.HandleFunc("/payment/failed", ls.PaymentFailedHandler).Methods(http.MethodPost)

	r.Handle("/auth/login", ls.loginLimiter.Middleware(http.HandlerFunc(ls.LoginHandler))).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", ls.LogoutHandler).Methods(http.MethodPost)
	r.Handle("/auth/user", ls.RequireAuth(http.HandlerFunc(ls.CurrentUserHandler))).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(ls.RequireAdmin)
	admin.HandleFunc("/donations", ls.ListDonationsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/donations/{id:[0-9]+}", ls.GetDonationHandler).Methods(http.MethodGet)
	admin.HandleFunc("/statistics", ls.StatisticsHandler).Methods(http.MethodGet)
}

func (ls *ServerSystem) MakeServer(serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      ls.Router(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}

func (ls *ServerSystem) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DonationRequest
	if !ls.decodeJSON(w, r, &req) {
		return
	}

	code, resp, err := service.CreateDonationLogic(r.Context(), ls.Storage, req)
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}
	ls.Metrics.RecordDonationCreated()
	ls.Logger.Info("donation created",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.Uint("donation_id", resp.DonationID),
		zap.Uint("donor_id", resp.DonorID),
	)

	writeJSON(w, code, models.Response{
		Success: true,
		Message: "Donation created successfully",
		Data:    resp,
	})
}

func (ls *ServerSystem) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if !ls.decodeJSON(w, r, &req) {
		return
	}

	code, resp, err := service.CreateOrderLogic(r.Context(), ls.Storage, ls.Gateway, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrGateway) {
			ls.Metrics.RecordGatewayError("create_order")
		}
		ls.respondError(w, r, code, err)
		return
	}

	writeJSON(w, code, models.Response{Success: true, Data: resp})
}

func (ls *ServerSystem) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if !ls.decodeJSON(w, r, &req) {
		return
	}

	code, resp, applied, err := service.VerifyPaymentLogic(r.Context(), ls.Storage, ls.Gateway, req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidSignature):
			ls.Logger.Warn("payment signature mismatch",
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.String("order_id", req.OrderID),
			)
		case errors.Is(err, apperrors.ErrGateway):
			ls.Metrics.RecordGatewayError("fetch_payment")
		}
		ls.respondError(w, r, code, err)
		return
	}
	if applied {
		ls.Metrics.RecordTransition(string(resp.Status))
		ls.Logger.Info("payment verified",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Uint("donation_id", resp.DonationID),
		)
	}

	writeJSON(w, code, models.Response{
		Success: true,
		Message: "Payment verified successfully",
		Data:    resp,
	})
}

func (ls *ServerSystem) PaymentFailedHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentFailedRequest
	if !ls.decodeJSON(w, r, &req) {
		return
	}

	code, applied, err := service.RecordFailureLogic(r.Context(), ls.Storage, req)
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}
	if applied {
		ls.Metrics.RecordTransition("failed")
		ls.Logger.Info("payment failure recorded",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("order_id", req.OrderID),
		)
	}

	writeJSON(w, code, models.Response{Success: true, Message: "Payment failure recorded"})
}

func (ls *ServerSystem) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !ls.decodeJSON(w, r, &req) {
		return
	}

	code, resp, err := service.LoginLogic(r.Context(), ls.Storage, ls.Tokens, req)
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}

	writeJSON(w, code, models.Response{Success: true, Message: "Login successful", Data: resp})
}

// LogoutHandler only acknowledges: tokens are stateless and expire on their own.
func (ls *ServerSystem) LogoutHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Response{Success: true, Message: "Logged out successfully"})
}

func (ls *ServerSystem) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		ls.respondError(w, r, http.StatusUnauthorized, apperrors.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: service.ToUserResponse(user)})
}

func (ls *ServerSystem) ListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verr := apperrors.NewValidationError()
	query := models.DonationListQuery{
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		Page:    queryInt(q, "page", verr),
		PerPage: queryInt(q, "per_page", verr),
	}
	if !verr.Empty() {
		ls.respondError(w, r, http.StatusUnprocessableEntity, verr)
		return
	}

	code, page, err := service.ListDonationsLogic(r.Context(), ls.Storage, query)
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}
	writeJSON(w, code, models.Response{Success: true, Data: page})
}

func (ls *ServerSystem) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		ls.respondError(w, r, http.StatusNotFound, apperrors.ErrDonationNotFound)
		return
	}

	code, donation, err := service.GetDonationLogic(r.Context(), ls.Storage, uint(id))
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}
	writeJSON(w, code, models.Response{Success: true, Data: donation})
}

func (ls *ServerSystem) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	code, stats, err := service.StatisticsLogic(r.Context(), ls.Storage)
	if err != nil {
		ls.respondError(w, r, code, err)
		return
	}
	writeJSON(w, code, models.Response{Success: true, Data: stats})
}

func (ls *ServerSystem) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := ls.Storage.Ping(ctx); err != nil {
		ls.Logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
