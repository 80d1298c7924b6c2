package testutil

import (
	"context"
	"sync"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// MockGenerator is a mock implementation of TextGenerator for testing
type MockGenerator struct {
	Name         string
	GenerateFunc func(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error)

	mu       sync.Mutex
	requests []common.GenerationRequest
}

// NewMockGenerator creates a mock that answers every request with fn
func NewMockGenerator(fn func(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error)) *MockGenerator {
	return &MockGenerator{Name: "mock", GenerateFunc: fn}
}

func (m *MockGenerator) Generate(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return TextResponse("", 0, 0), nil
}

func (m *MockGenerator) GetProviderName() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

// Calls returns how many times Generate was invoked
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received so far
func (m *MockGenerator) Requests() []common.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.GenerationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// TextResponse builds a generation response with the given usage
func TextResponse(text string, promptTokens, completionTokens int) *common.GenerationResponse {
	return &common.GenerationResponse{
		Text: text,
		Usage: common.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		},
	}
}

// SequenceGenerator returns errs in order and then succeeds with resp
func SequenceGenerator(resp *common.GenerationResponse, errs ...error) *MockGenerator {
	var mu sync.Mutex
	next := 0
	return NewMockGenerator(func(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if next < len(errs) {
			err := errs[next]
			next++
			return nil, err
		}
		return resp, nil
	})
}
