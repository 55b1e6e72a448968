package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/theheadmen/donations/internal/dbconnector"
	apperrors "github.com/theheadmen/donations/internal/errors"
	"github.com/theheadmen/donations/internal/models"
	"github.com/theheadmen/donations/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

const requestIDHeader = "X-Request-ID"

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func userFrom(ctx context.Context) *dbconnector.User {
	user, _ := ctx.Value(userKey).(*dbconnector.User)
	return user
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.size += n
	return n, err
}

func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// requestLogger tags the request with an id and emits one http_request line
// per request, leveled by status class.
func (ls *ServerSystem) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", clientIP(r)),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("body_size", rec.size),
		}
		switch {
		case status >= 500:
			ls.Logger.Error("http_request", fields...)
		case status >= 400:
			ls.Logger.Warn("http_request", fields...)
		default:
			ls.Logger.Info("http_request", fields...)
		}
	})
}

// metricsMiddleware labels by route template to keep label cardinality bounded.
func (ls *ServerSystem) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		ls.Metrics.RecordHTTPRequest(route, r.Method, rec.Status(), time.Since(start))
	})
}

func (ls *ServerSystem) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ls.Logger.Error("panic while serving request",
					zap.String("request_id", requestIDFrom(r.Context())),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, models.Response{
					Success: false,
					Message: "Something went wrong, please try again later",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequireAuth resolves the bearer token to a user and stores it in the context.
func (ls *ServerSystem) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, user, err := service.AuthenticateLogic(r.Context(), ls.Storage, ls.Tokens, bearerToken(r))
		if err != nil {
			ls.respondError(w, r, code, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (ls *ServerSystem) RequireAdmin(next http.Handler) http.Handler {
	return ls.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := userFrom(r.Context()); user == nil || !user.IsAdmin {
			ls.respondError(w, r, http.StatusForbidden, apperrors.ErrNotAdmin)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if v, ok := rl.visitors[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}

	// Sweep idle entries before growing the map.
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
		}
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: now}
	return limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.GetLimiter(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, models.Response{
				Success: false,
				Message: "Too many login attempts, please try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
