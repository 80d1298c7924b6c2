// services/prompts.go
package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

const baseSystemPrompt = `You are a helpful assistant answering a user's question about products and services.
Give a direct, balanced answer. Name specific companies, products or tools where relevant and explain why you recommend them.`

func regionPrompt(region models.Region) (string, error) {
	switch region {
	case models.RegionNorthAmerica:
		return "The user is based in North America (United States and Canada). Prefer vendors, pricing in USD and regulations relevant there.", nil
	case models.RegionEurope:
		return "The user is based in Europe. Prefer vendors available in the EU, pricing in EUR, and mention GDPR considerations where relevant.", nil
	case models.RegionAsiaPacific:
		return "The user is based in the Asia-Pacific region. Prefer vendors with regional presence and data centers in APAC.", nil
	case models.RegionLatinAmerica:
		return "The user is based in Latin America. Prefer vendors that support local payment methods and Spanish or Portuguese speaking teams.", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
}

func personaPrompt(persona models.Persona) (string, error) {
	switch persona {
	case models.PersonaB2BDecisionMaker:
		return "The user is a B2B decision maker evaluating vendors for their organization. Focus on ROI, security, support and total cost of ownership.", nil
	case models.PersonaDeveloper:
		return "The user is a software developer. Focus on APIs, integrations, documentation quality and developer experience.", nil
	case models.PersonaConsumer:
		return "The user is an individual consumer. Focus on ease of use, price and everyday value.", nil
	case models.PersonaSmallBusinessOwner:
		return "The user owns a small business. Focus on affordability, quick setup and tools that do not need a dedicated IT team.", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPersona, persona)
	}
}

// languagePrompt asks for a non-English answer. Unknown codes are ignored.
func languagePrompt(code string) string {
	if code == "" || code == "en" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return ""
	}
	return "Respond in " + name + "."
}

// BuildSystemPrompt composes the system prompt for one context.
func BuildSystemPrompt(c models.ContextConfig) (string, error) {
	region, err := regionPrompt(c.Region)
	if err != nil {
		return "", err
	}
	persona, err := personaPrompt(c.Persona)
	if err != nil {
		return "", err
	}

	parts := []string{baseSystemPrompt, region, persona}
	if lang := languagePrompt(c.Language); lang != "" {
		parts = append(parts, lang)
	}
	return strings.Join(parts, "\n\n"), nil
}

// BuildContexts returns the regions x personas product, defaulting either
// side to its full set when empty.
func BuildContexts(regions []models.Region, personas []models.Persona) ([]models.ContextConfig, error) {
	if len(regions) == 0 {
		regions = models.AllRegions
	}
	if len(personas) == 0 {
		personas = models.AllPersonas
	}

	for _, r := range regions {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, r)
		}
	}
	for _, p := range personas {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, p)
		}
	}

	seen := make(map[string]bool)
	contexts := make([]models.ContextConfig, 0, len(regions)*len(personas))
	for _, r := range regions {
		for _, p := range personas {
			c := models.NewContextConfig(r, p)
			if seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
			contexts = append(contexts, c)
		}
	}
	return contexts, nil
}
