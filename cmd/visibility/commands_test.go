package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPricingCommand(t *testing.T) {
	out, err := execute(t, "pricing")
	require.NoError(t, err)
	assert.Contains(t, out, "MODEL")
	assert.Contains(t, out, "gpt-4.1")

	out, err = execute(t, "pricing", "--json")
	require.NoError(t, err)
	var table map[string]map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	assert.Contains(t, table, "gpt-4.1")
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "competitor_mentions")
}

func TestAnalyzeRequiresQueryAndBrand(t *testing.T) {
	_, err := execute(t, "analyze", "--brand", "Acme")
	assert.ErrorContains(t, err, "query")
}

func TestLoadRequestFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
query: best crm for startups
brand: Acme
competitors: [BetaCorp, Gamma]
regions: [europe]
personas: [developer, consumer]
mode: flat
`), 0o600))

	req, err := loadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisRequest{
		Query:       "best crm for startups",
		Brand:       "Acme",
		Competitors: []string{"BetaCorp", "Gamma"},
		Regions:     []models.Region{models.RegionEurope},
		Personas:    []models.Persona{models.PersonaDeveloper, models.PersonaConsumer},
		Mode:        models.ModeFlat,
	}, req)
}

func TestLoadRequestRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query: [unterminated"), 0o600))

	_, err := loadRequest(path)
	assert.ErrorContains(t, err, "parse request file")
}
