package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// credentialPrefixes lists the key prefix each provider issues.
var credentialPrefixes = map[string]string{
	ProviderOpenAI:    "sk-",
	ProviderAnthropic: "sk-ant-",
}

// ValidateCredential rejects an empty key or one without the provider's prefix.
// It never touches the network.
func ValidateCredential(provider, credential string) error {
	prefix, ok := credentialPrefixes[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return fmt.Errorf("%s: %w", provider, ErrMissingCredential)
	}
	if !strings.HasPrefix(credential, prefix) || len(credential) <= len(prefix) {
		return fmt.Errorf("%s key must start with %q: %w", provider, prefix, ErrMalformedCredential)
	}
	return nil
}

// CredentialFor returns the server-side key configured for provider.
func (c *Config) CredentialFor(provider string) string {
	if c == nil {
		return ""
	}
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}
