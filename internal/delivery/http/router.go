package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"archon-backend/internal/domain"
	"archon-backend/internal/usecase"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterConfig wires the services behind the HTTP surface.
type RouterConfig struct {
	API       *usecase.TradingAPI
	Dashboard *usecase.DashboardService
	Tokens    domain.DeviceTokenRepository
	// Live serves the /ws feed. Optional.
	Live http.Handler

	APIKey         string
	RateLimit      float64
	RateLimitBurst int
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *mux.Router {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	pages := NewPageHandler(cfg.Dashboard, log)
	profiles := NewProfileHandler(cfg.API, log)
	bots := NewBotHandler(cfg.API, log)
	trades := NewTradeHandler(cfg.API, log)
	performance := NewPerformanceHandler(cfg.API, log)
	tokens := NewTokenHandler(cfg.Tokens)

	r := mux.NewRouter()
	r.Use(requestLogger(log))

	r.HandleFunc("/", pages.Landing).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Browsers cannot set headers on a WebSocket handshake, so the dashboard
	// and its feed also take the key from ?apikey=.
	keyed := requireAPIKey(cfg.APIKey, true)
	r.Handle("/dashboard", keyed(http.HandlerFunc(pages.Dashboard))).Methods("GET")
	if cfg.Live != nil {
		r.Handle("/ws", keyed(cfg.Live)).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireAPIKey(cfg.APIKey, false))
	api.Use(rateLimit(cfg.RateLimit, cfg.RateLimitBurst))

	api.HandleFunc("/dashboard", pages.DashboardJSON).Methods("GET")

	api.HandleFunc("/profiles", profiles.Create).Methods("POST")
	api.HandleFunc("/profiles/{id}", profiles.Get).Methods("GET")
	api.HandleFunc("/profiles/{id}", profiles.Update).Methods("PATCH")

	api.HandleFunc("/bots", bots.List).Methods("GET")
	api.HandleFunc("/bots", bots.Create).Methods("POST")
	api.HandleFunc("/bots/{id}", bots.Get).Methods("GET")
	api.HandleFunc("/bots/{id}", bots.Update).Methods("PATCH")
	api.HandleFunc("/bots/{id}", bots.Delete).Methods("DELETE")
	api.HandleFunc("/bots/{id}/trades", bots.Trades).Methods("GET")

	api.HandleFunc("/trades", trades.List).Methods("GET")
	api.HandleFunc("/trades/open", trades.Open).Methods("GET")
	api.HandleFunc("/trades/{id}/close", trades.Close).Methods("POST")

	api.HandleFunc("/performance", performance.List).Methods("GET")
	api.HandleFunc("/performance", performance.Record).Methods("POST")

	api.HandleFunc("/tokens/register", tokens.HandleRegisterToken).Methods("POST")
	api.HandleFunc("/tokens/unregister", tokens.HandleUnregisterToken).Methods("POST")
	api.HandleFunc("/tokens/count", tokens.HandleGetTokenCount).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Upgrade requests need the raw writer for hijacking.
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", time.Since(start)))
		})
	}
}

// requireAPIKey accepts the key in an "apikey" header or as a bearer token,
// and in an "apikey" query parameter when fromQuery is set.
func requireAPIKey(key string, fromQuery bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("apikey")
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if got == "" && fromQuery {
				got = r.URL.Query().Get("apikey")
			}
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or missing api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimit(rps float64, burst int) mux.MiddlewareFunc {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
