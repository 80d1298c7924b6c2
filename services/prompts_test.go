package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/services"
)

func TestEveryContextHasAPrompt(t *testing.T) {
	contexts, err := services.BuildContexts(nil, nil)
	require.NoError(t, err)
	require.Len(t, contexts, len(models.AllRegions)*len(models.AllPersonas))

	prompts := make(map[string]bool)
	for _, c := range contexts {
		prompt, err := services.BuildSystemPrompt(c)
		require.NoError(t, err, c.Key())
		assert.NotEmpty(t, prompt)
		assert.False(t, prompts[prompt], "duplicate prompt for %s", c.Key())
		prompts[prompt] = true
	}
}

func TestBuildSystemPromptLanguage(t *testing.T) {
	spanish, err := services.BuildSystemPrompt(models.NewContextConfig(models.RegionLatinAmerica, models.PersonaConsumer))
	require.NoError(t, err)
	assert.Contains(t, spanish, "Respond in Spanish")

	english, err := services.BuildSystemPrompt(models.NewContextConfig(models.RegionEurope, models.PersonaConsumer))
	require.NoError(t, err)
	assert.NotContains(t, english, "Spanish")
}

func TestBuildSystemPromptRejectsUnknownValues(t *testing.T) {
	_, err := services.BuildSystemPrompt(models.ContextConfig{Region: "antarctica", Persona: models.PersonaDeveloper})
	assert.ErrorIs(t, err, services.ErrUnknownRegion)

	_, err = services.BuildSystemPrompt(models.ContextConfig{Region: models.RegionEurope, Persona: "astronaut"})
	assert.ErrorIs(t, err, services.ErrUnknownPersona)
}

func TestBuildContexts(t *testing.T) {
	t.Run("cartesian product in request order", func(t *testing.T) {
		contexts, err := services.BuildContexts(
			[]models.Region{models.RegionEurope, models.RegionLatinAmerica},
			[]models.Persona{models.PersonaDeveloper, models.PersonaConsumer},
		)
		require.NoError(t, err)

		keys := make([]string, len(contexts))
		for i, c := range contexts {
			keys[i] = c.Key()
		}
		assert.Equal(t, []string{
			"europe/developer", "europe/consumer",
			"latin_america/developer", "latin_america/consumer",
		}, keys)
		assert.Equal(t, "es", contexts[2].Language)
		assert.Equal(t, "en", contexts[0].Language)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		contexts, err := services.BuildContexts(
			[]models.Region{models.RegionEurope, models.RegionEurope},
			[]models.Persona{models.PersonaDeveloper},
		)
		require.NoError(t, err)
		assert.Len(t, contexts, 1)
	})

	t.Run("unknown values are configuration errors", func(t *testing.T) {
		_, err := services.BuildContexts([]models.Region{"mars"}, nil)
		assert.ErrorIs(t, err, services.ErrUnknownRegion)

		_, err = services.BuildContexts(nil, []models.Persona{"pirate"})
		assert.ErrorIs(t, err, services.ErrUnknownPersona)
	})
}
