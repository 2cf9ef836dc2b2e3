package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/users-server/internal/logger"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Info describes the service on the index endpoint.
type Info struct {
	Service     string
	Version     string
	Description string
	Endpoints   []string
	GRPCPort    string
}

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

type infoResponse struct {
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
	GRPCPort    string   `json:"grpcPort"`
	HealthCheck string   `json:"healthCheck"`
}

type handlers struct {
	info   Info
	pinger Pinger
	logger *logger.Logger
	now    func() time.Time
}

// NewRouter builds the admin router serving /, /health and /metrics.
func NewRouter(info Info, pinger Pinger, gatherer prometheus.Gatherer, logger *logger.Logger) http.Handler {
	h := &handlers{info: info, pinger: pinger, logger: logger, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))

	r.Get("/", h.handleInfo)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "Healthy", Service: h.info.Service, Timestamp: h.now().UTC()}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("Admin HTTP: database ping failed", "error", err)
			resp.Status = "Unhealthy"
			resp.Error = "database unavailable"
			h.respondJSON(w, resp, http.StatusServiceUnavailable)
			return
		}
	}

	h.respondJSON(w, resp, http.StatusOK)
}

func (h *handlers) handleInfo(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, infoResponse{
		Service:     h.info.Service,
		Version:     h.info.Version,
		Description: h.info.Description,
		Endpoints:   h.info.Endpoints,
		GRPCPort:    h.info.GRPCPort,
		HealthCheck: "/health",
	}, http.StatusOK)
}

func (h *handlers) respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Admin HTTP: failed to encode response", "error", err)
	}
}

func requestLogger(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("Admin HTTP: request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
