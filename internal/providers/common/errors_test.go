package common_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      common.ErrorKind
		retryable bool
	}{
		{http.StatusBadRequest, common.KindClient, false},
		{http.StatusUnauthorized, common.KindAuthentication, false},
		{http.StatusForbidden, common.KindAuthentication, false},
		{http.StatusNotFound, common.KindClient, false},
		{http.StatusTooManyRequests, common.KindClient, false},
		{http.StatusInternalServerError, common.KindTransient, true},
		{http.StatusBadGateway, common.KindTransient, true},
		{http.StatusServiceUnavailable, common.KindTransient, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := common.FromStatus("openai", tt.status, errors.New("boom"))
			if err.Kind != tt.kind {
				t.Errorf("Expected kind %s for %d, got %s", tt.kind, tt.status, err.Kind)
			}
			if common.IsRetryable(err) != tt.retryable {
				t.Errorf("Expected retryable=%v for %d", tt.retryable, tt.status)
			}
			if err.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
}

func TestFromTransportError(t *testing.T) {
	t.Run("network failure is transient", func(t *testing.T) {
		err := common.FromTransportError("anthropic", errors.New("connection reset by peer"))
		if common.KindOf(err) != common.KindTransient {
			t.Errorf("Expected transient, got %v", err)
		}
	})

	t.Run("decode failure is parse", func(t *testing.T) {
		var target map[string]any
		decodeErr := json.Unmarshal([]byte("{not json"), &target)
		err := common.FromTransportError("openai", fmt.Errorf("decoding response: %w", decodeErr))
		if common.KindOf(err) != common.KindParse {
			t.Errorf("Expected parse, got %v", err)
		}
		if common.IsRetryable(err) {
			t.Error("Parse errors must not be retried")
		}
	})

	t.Run("context cancellation passes through", func(t *testing.T) {
		err := common.FromTransportError("openai", context.Canceled)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if common.KindOf(err) != "" {
			t.Errorf("Cancellation should not be classified, got %s", common.KindOf(err))
		}
	})
}

func TestProviderErrorWrapping(t *testing.T) {
	cause := errors.New("upstream")
	wrapped := fmt.Errorf("context europe/developer: %w", common.FromStatus("openai", 503, cause))

	var perr *common.ProviderError
	if !errors.As(wrapped, &perr) {
		t.Fatal("Expected ProviderError in chain")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
	if perr.Provider != "openai" {
		t.Errorf("Expected provider openai, got %s", perr.Provider)
	}
}

func TestKindOfNonProviderError(t *testing.T) {
	if kind := common.KindOf(errors.New("plain")); kind != "" {
		t.Errorf("Expected empty kind, got %s", kind)
	}
	if common.IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
