package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

const providerName = "openai"

// Provider generates text through the OpenAI chat completions API.
type Provider struct {
	client openai.Client
	model  string
}

// NewProvider creates a client for model. Retries are owned by the caller, so
// the SDK's own retry loop is disabled.
func NewProvider(apiKey, model string, opts ...option.RequestOption) *Provider {
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Provider{
		client: openai.NewClient(clientOpts...),
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

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.Temperature != nil && supportsTemperature(model) {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, common.ParseError(providerName, "response contained no choices", nil)
	}

	return &common.GenerationResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: common.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// Reasoning models reject a non-default temperature.
func supportsTemperature(model string) bool {
	m := strings.ToLower(model)
	return !strings.HasPrefix(m, "o1") && !strings.HasPrefix(m, "o3") &&
		!strings.HasPrefix(m, "o4") && !strings.HasPrefix(m, "gpt-5")
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return common.FromStatus(providerName, apiErr.StatusCode, err)
	}
	return common.FromTransportError(providerName, err)
}
