package providers

import (
	"context"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// TextGenerator is the contract every LLM provider client satisfies
type TextGenerator interface {
	Generate(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error)
	GetProviderName() string
}
