package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterOptions holds the optional pieces mounted next to the API.
type RouterOptions struct {
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
	// Inngest serves /api/inngest when set.
	Inngest http.Handler
	// RequestTimeout bounds each API request. Zero disables it.
	RequestTimeout time.Duration
	// AllowedOrigins enables CORS for browser clients when not empty.
	AllowedOrigins []string
}

func NewRouter(h *Handler, logger zerolog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"service": "senso-visibility", "status": "running"})
	})
	r.Get("/health", h.Health)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Inngest != nil {
		r.Handle("/api/inngest", opts.Inngest)
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}
		r.Post("/analyze", h.Analyze)
		r.Post("/analyze/async", h.AnalyzeAsync)
		r.Get("/reports", h.ListReports)
		r.Get("/reports/{id}", h.GetReport)
		r.Get("/pricing", h.Pricing)
		r.Get("/schema", h.Schema)
	})

	return r
}
