// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/store"
	"github.com/AI-Template-SDK/senso-visibility/services"
	"github.com/AI-Template-SDK/senso-visibility/workflows"
)

const maxRequestBytes = 1 << 20

// ReportStore is the report history backing the /v1/reports routes.
type ReportStore interface {
	Save(ctx context.Context, report *models.AggregateReport) error
	Get(ctx context.Context, id string) (*models.AggregateReport, error)
	List(ctx context.Context, brand string, limit int) ([]store.ReportSummary, error)
}

// EventSender is satisfied by inngestgo.Client.
type EventSender interface {
	Send(ctx context.Context, evt any) (string, error)
}

type Handler struct {
	analysis services.AnalysisService
	costs    services.CostService
	reports  ReportStore
	events   EventSender
	now      func() time.Time
}

// NewHandler wires the handlers. reports and events may be nil; the routes
// that need them then answer 503.
func NewHandler(analysis services.AnalysisService, costs services.CostService, reports ReportStore, events EventSender) *Handler {
	return &Handler{
		analysis: analysis,
		costs:    costs,
		reports:  reports,
		events:   events,
		now:      time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type asyncResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "senso-visibility"})
}

// Analyze runs the pipeline synchronously.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	report, err := h.analysis.Analyze(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, r, req, err)
		return
	}

	if h.reports != nil {
		if err := h.reports.Save(r.Context(), report); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("report_id", report.ID).Msg("failed to store report")
		}
	}
	writeJSON(w, http.StatusOK, report)
}

// AnalyzeAsync queues the analysis as an inngest event and returns its report id.
func (h *Handler) AnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "async analysis is not configured")
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingQuery.Error())
		return
	}
	if strings.TrimSpace(req.Brand) == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingBrand.Error())
		return
	}

	id := uuid.NewString()
	eventID, err := h.events.Send(r.Context(), workflows.NewAnalysisRequestedEvent(id, req, h.now()))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to send analysis event")
		writeError(w, http.StatusBadGateway, "failed to queue analysis")
		return
	}
	writeJSON(w, http.StatusAccepted, asyncResponse{ID: id, Status: "queued", EventID: eventID})
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report history is not configured")
		return
	}
	report, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load report")
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report history is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	summaries, err := h.reports.List(r.Context(), r.URL.Query().Get("brand"), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list reports")
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.costs.PriceTable())
}

func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.ReportSchema())
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, r *http.Request, req models.AnalysisRequest, err error) {
	switch {
	case services.IsConfigurationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAnalysisTimeout):
		writeJSON(w, http.StatusGatewayTimeout, services.NewAnalysisFailure(req, err, h.now()))
	case errors.Is(err, services.ErrAllContextsFailed):
		writeJSON(w, http.StatusBadGateway, services.NewAnalysisFailure(req, err, h.now()))
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("analysis failed unexpectedly")
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (models.AnalysisRequest, bool) {
	var req models.AnalysisRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
