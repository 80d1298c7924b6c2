package workflows_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/workflows"
)

func failedReport() *models.AggregateReport {
	return &models.AggregateReport{
		ID:             "report-9",
		Status:         models.ReportStatusFailed,
		Brand:          "Acme",
		Query:          "best crm?",
		ContextsFailed: 16,
		Error:          "all_contexts_failed",
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifierPostsFailure(t *testing.T) {
	var got workflows.SlackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := workflows.NewSlackNotifier(server.URL).NotifyFailure(context.Background(), failedReport())
	require.NoError(t, err)
	assert.Contains(t, got.Text, "report-9")
	assert.Contains(t, got.Text, "Acme")
	assert.Contains(t, got.Text, "all_contexts_failed")
	assert.Contains(t, got.Text, "*Contexts failed:* 16")
}

func TestSlackNotifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, workflows.NewSlackNotifier(server.URL).NotifyFailure(context.Background(), failedReport()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSlackNotifierRejectsClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := workflows.NewSlackNotifier(server.URL).NotifyFailure(context.Background(), failedReport())
	assert.EqualError(t, err, "slack webhook returned status 404")
}
