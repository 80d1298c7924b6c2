package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/metrics"
	anthropicprovider "github.com/AI-Template-SDK/senso-visibility/internal/providers/anthropic"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
	openaiprovider "github.com/AI-Template-SDK/senso-visibility/internal/providers/openai"
)

// ErrUnsupportedModel is returned for model ids no provider serves.
var ErrUnsupportedModel = errors.New("unsupported model")

// ProviderForModel maps a model identifier to the provider that serves it
func ProviderForModel(modelName string) (string, error) {
	modelLower := strings.ToLower(strings.TrimSpace(modelName))

	switch {
	case modelLower == "":
		return "", fmt.Errorf("%w: model name is empty", ErrUnsupportedModel)
	case strings.Contains(modelLower, "claude") || strings.Contains(modelLower, "sonnet") ||
		strings.Contains(modelLower, "opus") || strings.Contains(modelLower, "haiku"):
		return config.ProviderAnthropic, nil
	case strings.Contains(modelLower, "gpt") || strings.Contains(modelLower, "4.1") ||
		strings.HasPrefix(modelLower, "o1") || strings.HasPrefix(modelLower, "o3") ||
		strings.HasPrefix(modelLower, "o4"):
		return config.ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, modelName)
	}
}

// Factory builds rate-limited, retrying generators. Breakers and limiters are
// shared per provider across every generator it hands out.
type Factory struct {
	cfg      *config.Config
	recorder *metrics.Recorder

	mu     sync.Mutex
	guards map[string]*Guard
}

func NewFactory(cfg *config.Config, recorder *metrics.Recorder) *Factory {
	return &Factory{
		cfg:      cfg,
		recorder: recorder,
		guards:   make(map[string]*Guard),
	}
}

// NewProvider creates the generator for modelName. An empty credential falls back
// to the server-side key. The credential is validated before any client exists.
func (f *Factory) NewProvider(modelName, credential string) (TextGenerator, error) {
	providerName, err := ProviderForModel(modelName)
	if err != nil {
		return nil, err
	}

	if credential == "" {
		credential = f.cfg.CredentialFor(providerName)
	}
	if err := config.ValidateCredential(providerName, credential); err != nil {
		return nil, common.AuthenticationError(providerName, err)
	}

	var inner TextGenerator
	switch providerName {
	case config.ProviderAnthropic:
		inner = anthropicprovider.NewProvider(credential, modelName)
	default:
		inner = openaiprovider.NewProvider(credential, modelName)
	}

	opts := f.retryOptions()
	return NewResilientGenerator(inner, f.guard(providerName, opts), opts, f.recorder), nil
}

func (f *Factory) retryOptions() RetryOptions {
	if f.cfg == nil {
		return RetryOptions{MaxAttempts: 3}
	}
	return RetryOptionsFromConfig(f.cfg.Provider)
}

func (f *Factory) guard(providerName string, opts RetryOptions) *Guard {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.guards[providerName]; ok {
		return g
	}
	g := NewGuard(providerName, opts)
	f.guards[providerName] = g
	return g
}
