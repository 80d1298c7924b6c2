package testutil

import (
	"time"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// SampleResponse is the worked example used across pipeline tests
const SampleResponse = "Acme is great. Acme is affordable. BetaCorp is cheaper."

// SampleConfig returns a test configuration with fast retries and no rate limit
func SampleConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		OpenAIAPIKey:    "sk-test-openai-key",
		AnthropicAPIKey: "sk-ant-test-key",
		Analysis: config.AnalysisConfig{
			DefaultModel:    "gpt-4.1-mini",
			Mode:            string(models.ModeSentence),
			MaxConcurrency:  4,
			Timeout:         5 * time.Second,
			MaxOutputTokens: 500,
		},
		Provider: config.ProviderConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     4 * time.Millisecond,
		},
	}
}

// SampleRequest returns a small two-context analysis request
func SampleRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Query:       "What is the best project management tool?",
		Brand:       "Acme",
		Competitors: []string{"BetaCorp"},
		Regions:     []models.Region{models.RegionNorthAmerica, models.RegionEurope},
		Personas:    []models.Persona{models.PersonaDeveloper},
		Mode:        models.ModeSentence,
	}
}
