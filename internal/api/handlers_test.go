package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inngest/inngestgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-visibility/internal/api"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/store"
	"github.com/AI-Template-SDK/senso-visibility/services"
	"github.com/AI-Template-SDK/senso-visibility/workflows"
)

type mockAnalysis struct {
	mock.Mock
}

func (m *mockAnalysis) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AggregateReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateReport), args.Error(1)
}

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Save(ctx context.Context, report *models.AggregateReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockReports) Get(ctx context.Context, id string) (*models.AggregateReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateReport), args.Error(1)
}

func (m *mockReports) List(ctx context.Context, brand string, limit int) ([]store.ReportSummary, error) {
	args := m.Called(ctx, brand, limit)
	return args.Get(0).([]store.ReportSummary), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, evt any) (string, error) {
	args := m.Called(ctx, evt)
	return args.String(0), args.Error(1)
}

func newServer(analysis services.AnalysisService, reports api.ReportStore, events api.EventSender) http.Handler {
	h := api.NewHandler(analysis, services.NewCostService(), reports, events)
	return api.NewRouter(h, zerolog.Nop(), api.RouterOptions{Gatherer: prometheus.NewRegistry()})
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sampleRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Query:       "best project management tool",
		Brand:       "Acme",
		Competitors: []string{"BetaCorp"},
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(new(mockAnalysis), nil, nil), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestAnalyzeReturnsAndStoresReport(t *testing.T) {
	analysis := new(mockAnalysis)
	reports := new(mockReports)
	report := &models.AggregateReport{ID: "r-1", Status: models.ReportStatusCompleted, Brand: "Acme", GlobalScore: 64}

	analysis.On("Analyze", mock.Anything, sampleRequest()).Return(report, nil)
	reports.On("Save", mock.Anything, report).Return(nil)

	rec := do(t, newServer(analysis, reports, nil), http.MethodPost, "/v1/analyze", sampleRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.AggregateReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, 64, got.GlobalScore)
	analysis.AssertExpectations(t)
	reports.AssertExpectations(t)
}

func TestAnalyzeStillAnswersWhenSaveFails(t *testing.T) {
	analysis := new(mockAnalysis)
	reports := new(mockReports)
	report := &models.AggregateReport{ID: "r-1", Status: models.ReportStatusCompleted}

	analysis.On("Analyze", mock.Anything, mock.Anything).Return(report, nil)
	reports.On("Save", mock.Anything, report).Return(errors.New("db down"))

	rec := do(t, newServer(analysis, reports, nil), http.MethodPost, "/v1/analyze", sampleRequest())

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeRejectsInvalidBody(t *testing.T) {
	analysis := new(mockAnalysis)
	srv := newServer(analysis, nil, nil)

	for _, body := range []string{"{not json", `{"query":"q","brand":"b","unexpected":1}`} {
		rec := do(t, srv, http.MethodPost, "/v1/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	analysis.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAnalyzeMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing brand", services.ErrMissingBrand, http.StatusBadRequest, ""},
		{"all contexts failed", &services.RunFailure{Failed: 8}, http.StatusBadGateway, services.FailureAllContextsFailed},
		{"timeout", services.ErrAnalysisTimeout, http.StatusGatewayTimeout, services.FailureTimeout},
		{"request deadline", fmt.Errorf("%w: %w", services.ErrAnalysisTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout, services.FailureTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := new(mockAnalysis)
			analysis.On("Analyze", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newServer(analysis, nil, nil), http.MethodPost, "/v1/analyze", sampleRequest())

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				var failure models.AnalysisFailure
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
				assert.Equal(t, "failed", failure.Status)
				assert.Equal(t, tt.code, failure.Error)
				assert.Equal(t, "Acme", failure.Brand)
			}
		})
	}
}

func TestAnalyzeAsyncQueuesEvent(t *testing.T) {
	sender := new(mockSender)
	req := sampleRequest()
	req.Credential = "sk-caller"

	var sent inngestgo.Event
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(inngestgo.Event) }).
		Return("evt-1", nil)

	rec := do(t, newServer(new(mockAnalysis), nil, sender), http.MethodPost, "/v1/analyze/async", req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, "evt-1", body["event_id"])
	assert.NotEmpty(t, body["id"])

	assert.Equal(t, workflows.AnalysisRequestedEvent, sent.Name)
	assert.Equal(t, body["id"], sent.Data["report_id"])
	queued := sent.Data["request"].(models.AnalysisRequest)
	assert.Empty(t, queued.Credential)
}

func TestAnalyzeAsyncValidatesBeforeQueueing(t *testing.T) {
	sender := new(mockSender)
	req := sampleRequest()
	req.Brand = "  "

	rec := do(t, newServer(new(mockAnalysis), nil, sender), http.MethodPost, "/v1/analyze/async", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAnalyzeAsyncWithoutSender(t *testing.T) {
	rec := do(t, newServer(new(mockAnalysis), nil, nil), http.MethodPost, "/v1/analyze/async", sampleRequest())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetReport(t *testing.T) {
	reports := new(mockReports)
	reports.On("Get", mock.Anything, "r-1").Return(&models.AggregateReport{ID: "r-1"}, nil)
	reports.On("Get", mock.Anything, "missing").Return(nil, store.ErrReportNotFound)
	srv := newServer(new(mockAnalysis), reports, nil)

	rec := do(t, srv, http.MethodGet, "/v1/reports/r-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r-1"`)

	rec = do(t, srv, http.MethodGet, "/v1/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReports(t *testing.T) {
	reports := new(mockReports)
	reports.On("List", mock.Anything, "Acme", 5).Return([]store.ReportSummary{{ID: "r-1", Brand: "Acme", GlobalScore: 70}}, nil)
	srv := newServer(new(mockAnalysis), reports, nil)

	rec := do(t, srv, http.MethodGet, "/v1/reports?brand=Acme&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []store.ReportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 70, got[0].GlobalScore)

	rec = do(t, srv, http.MethodGet, "/v1/reports?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsWithoutStore(t *testing.T) {
	rec := do(t, newServer(new(mockAnalysis), nil, nil), http.MethodGet, "/v1/reports", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPricingAndSchema(t *testing.T) {
	srv := newServer(new(mockAnalysis), nil, nil)

	rec := do(t, srv, http.MethodGet, "/v1/pricing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prices map[string]services.ModelPrice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	assert.Contains(t, prices, "gpt-4.1")

	rec = do(t, srv, http.MethodGet, "/v1/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "global_score")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newServer(new(mockAnalysis), nil, nil), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := api.NewHandler(new(mockAnalysis), services.NewCostService(), nil, nil)
	srv := api.NewRouter(h, zerolog.Nop(), api.RouterOptions{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
