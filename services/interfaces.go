// services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers"
)

// Configuration errors: returned before any provider call is made.
var (
	ErrMissingQuery   = errors.New("query is required")
	ErrMissingBrand   = errors.New("brand is required")
	ErrUnknownRegion  = errors.New("unknown region")
	ErrUnknownPersona = errors.New("unknown persona")
	ErrUnknownMode    = errors.New("unknown analysis mode")
)

var (
	// ErrAllContextsFailed is the only failure that aborts a whole analysis run.
	ErrAllContextsFailed = errors.New("all contexts failed")
	// ErrAnalysisTimeout means the run exceeded its wall-clock budget.
	ErrAnalysisTimeout = errors.New("analysis exceeded its time budget")
	// ErrUnparseableSentiment is reported when the classifier answers with something other than a label.
	ErrUnparseableSentiment = errors.New("unparseable sentiment label")
)

// CostService prices token usage per model
type CostService interface {
	CalculateCost(model string, inputTokens, outputTokens int) float64
	GetPrice(model string) ModelPrice
	PriceTable() map[string]ModelPrice
}

// ModelPrice is USD per 1M tokens
type ModelPrice struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// ScanResult holds one BrandMention per requested name, in request order
type ScanResult struct {
	Mentions       []models.BrandMention
	TotalSentences int
}

// MentionService finds brand occurrences in generated text
type MentionService interface {
	Scan(text string, names []string, mode models.AnalysisMode) ScanResult
}

// SentimentService classifies how a response talks about a brand
type SentimentService interface {
	// Classify returns the raw outcome, including any failure.
	Classify(ctx context.Context, text, brand string) (models.Sentiment, models.TokenUsage, error)
	// Resolve maps every failure to neutral.
	Resolve(ctx context.Context, text, brand string) (models.Sentiment, models.TokenUsage)
}

// SentimentCache is satisfied by cache.Client
type SentimentCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ScoreInput is everything the visibility score depends on
type ScoreInput struct {
	Mention             models.BrandMention
	TotalSentences      int
	CompetitorMentioned bool
}

// ScoringService computes the 0-100 visibility score
type ScoringService interface {
	Score(input ScoreInput, weights ScoringWeights) int
}

// CitationService extracts links and attributes them to brands
type CitationService interface {
	ExtractLinks(text string, brands []string) []models.Link
}

// RunInput describes one fan-out over contexts
type RunInput struct {
	Generator       providers.TextGenerator
	Sentiment       SentimentService
	Query           string
	Brand           string
	Competitors     []string
	Contexts        []models.ContextConfig
	Model           string
	Mode            models.AnalysisMode
	MaxOutputTokens int
}

// RunOutput holds the successful contexts and the accumulated usage
type RunOutput struct {
	Results []models.ContextResult
	Failed  int
	Usage   models.TokenUsage
}

// ContextRunnerService evaluates a query under every context concurrently
type ContextRunnerService interface {
	Run(ctx context.Context, input RunInput) (*RunOutput, error)
}

// ReportInput carries the run metadata the report echoes
type ReportInput struct {
	Query          string
	Brand          string
	Competitors    []string
	Model          string
	Mode           models.AnalysisMode
	Usage          models.TokenUsage
	ContextsFailed int
}

// ReportService builds the aggregate report from successful contexts
type ReportService interface {
	Build(results []models.ContextResult, input ReportInput) *models.AggregateReport
}

// AnalyticsService derives recommendations from a built report
type AnalyticsService interface {
	GenerateInsights(report *models.AggregateReport) []string
}

// GeneratorFactory builds a generator for a model and caller credential
type GeneratorFactory interface {
	NewProvider(modelName, credential string) (providers.TextGenerator, error)
}

// AnalysisService is the pipeline entry point
type AnalysisService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AggregateReport, error)
}
