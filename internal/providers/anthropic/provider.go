package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 1024
)

// Provider generates text through the Anthropic messages API.
type Provider struct {
	client anthropic.Client
	model  string
}

// NewProvider creates a client for model with SDK retries disabled.
func NewProvider(apiKey, model string, opts ...option.RequestOption) *Provider {
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Provider{
		client: anthropic.NewClient(clientOpts...),
		model:  model,
	}
}

func (p *Provider) GetProviderName() string {
	return providerName
}

func (p *Provider) Generate(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	// max_tokens is mandatory on this API
	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, common.ParseError(providerName, "response contained no text blocks", nil)
	}

	return &common.GenerationResponse{
		Text: text.String(),
		Usage: common.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return common.FromStatus(providerName, apiErr.StatusCode, err)
	}
	return common.FromTransportError(providerName, err)
}
