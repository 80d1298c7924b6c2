// services/usage_service.go
package services

import (
	"sync"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// UsageTracker accumulates token usage from concurrent provider calls.
type UsageTracker struct {
	mu    sync.Mutex
	total models.TokenUsage
	calls int
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Add records one call's usage.
func (t *UsageTracker) Add(usage models.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = t.total.Add(usage)
	t.calls++
}

// Total returns the usage recorded so far.
func (t *UsageTracker) Total() models.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Calls returns how many usages were recorded.
func (t *UsageTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// UsageCost prices usage against the model's entry in the cost table.
func UsageCost(costs CostService, model string, usage models.TokenUsage) models.ReportUsage {
	return models.ReportUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Cost:         costs.CalculateCost(model, usage.InputTokens, usage.OutputTokens),
	}
}
