// services/analysis_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/metrics"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// Failure codes reported in AnalysisFailure.Error.
const (
	FailureAllContextsFailed = "all_contexts_failed"
	FailureTimeout           = "timeout"
)

type analysisService struct {
	cfg           *config.Config
	factory       GeneratorFactory
	runner        ContextRunnerService
	reportService ReportService
	cache         SentimentCache
	recorder      *metrics.Recorder
	now           func() time.Time
}

func NewAnalysisService(cfg *config.Config, factory GeneratorFactory, runner ContextRunnerService, reportService ReportService, cache SentimentCache, recorder *metrics.Recorder) AnalysisService {
	return &analysisService{
		cfg:           cfg,
		factory:       factory,
		runner:        runner,
		reportService: reportService,
		cache:         cache,
		recorder:      recorder,
		now:           time.Now,
	}
}

// Analyze validates req, fans the query out over its contexts and builds the report.
func (s *analysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AggregateReport, error) {
	query := strings.TrimSpace(req.Query)
	brand := strings.TrimSpace(req.Brand)
	if query == "" {
		return nil, ErrMissingQuery
	}
	if brand == "" {
		return nil, ErrMissingBrand
	}

	mode := req.Mode
	if mode == "" {
		mode = models.AnalysisMode(s.cfg.Analysis.Mode)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.cfg.Analysis.DefaultModel
	}

	contexts, err := BuildContexts(req.Regions, req.Personas)
	if err != nil {
		return nil, err
	}

	generator, err := s.factory.NewProvider(model, req.Credential)
	if err != nil {
		return nil, fmt.Errorf("create provider for %s: %w", model, err)
	}
	sentimentGenerator, sentimentModel := s.sentimentGenerator(generator, model, req.Credential)

	logger := zerolog.Ctx(ctx).With().
		Str("brand", brand).
		Str("model", model).
		Str("mode", string(mode)).
		Logger()
	ctx = logger.WithContext(ctx)

	competitors := cleanCompetitors(req.Competitors, brand)

	out, err := s.runner.Run(ctx, RunInput{
		Generator:       generator,
		Sentiment:       NewSentimentService(sentimentGenerator, sentimentModel, s.cache, s.cfg.Redis.TTL),
		Query:           query,
		Brand:           brand,
		Competitors:     competitors,
		Contexts:        contexts,
		Model:           model,
		Mode:            mode,
		MaxOutputTokens: s.cfg.Analysis.MaxOutputTokens,
	})
	if err != nil {
		s.recorder.ObserveAnalysis(FailureCode(err))
		logger.Error().Err(err).Msg("analysis failed")
		return nil, err
	}

	report := s.reportService.Build(out.Results, ReportInput{
		Query:          query,
		Brand:          brand,
		Competitors:    competitors,
		Model:          model,
		Mode:           mode,
		Usage:          out.Usage,
		ContextsFailed: out.Failed,
	})
	report.ID = uuid.NewString()
	report.Timestamp = s.now().UTC()

	s.recorder.ObserveAnalysis(models.ReportStatusCompleted)
	s.recorder.AddUsage(report.Usage.InputTokens, report.Usage.OutputTokens, report.Usage.Cost)

	logger.Info().
		Str("report_id", report.ID).
		Int("global_score", report.GlobalScore).
		Int("contexts", report.ContextsEvaluated).
		Int("failed", report.ContextsFailed).
		Float64("cost", report.Usage.Cost).
		Msg("analysis completed")

	return report, nil
}

// sentimentGenerator uses the configured sentiment model only when the same
// provider serves it, so one credential covers both calls.
func (s *analysisService) sentimentGenerator(main providers.TextGenerator, model, credential string) (providers.TextGenerator, string) {
	sentimentModel := s.cfg.Analysis.SentimentModel
	if sentimentModel == "" || sentimentModel == model {
		return main, model
	}
	mainProvider, err := providers.ProviderForModel(model)
	if err != nil {
		return main, model
	}
	if p, err := providers.ProviderForModel(sentimentModel); err != nil || p != mainProvider {
		return main, model
	}
	gen, err := s.factory.NewProvider(sentimentModel, credential)
	if err != nil {
		return main, model
	}
	return gen, sentimentModel
}

// cleanCompetitors trims names and drops blanks and the brand itself.
func cleanCompetitors(names []string, brand string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, brand) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// IsConfigurationError reports whether err was raised before any provider call.
func IsConfigurationError(err error) bool {
	for _, target := range []error{
		ErrMissingQuery, ErrMissingBrand, ErrUnknownRegion, ErrUnknownPersona, ErrUnknownMode,
		providers.ErrUnsupportedModel, config.ErrMissingCredential, config.ErrMalformedCredential,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return common.KindOf(err) == common.KindAuthentication
}

// FailureCode maps a run error to the code reported to callers.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrAnalysisTimeout):
		return FailureTimeout
	case errors.Is(err, ErrAllContextsFailed):
		return FailureAllContextsFailed
	default:
		return models.ReportStatusFailed
	}
}

// NewAnalysisFailure builds the terminal-failure shape, which never carries a score.
func NewAnalysisFailure(req models.AnalysisRequest, err error, at time.Time) *models.AnalysisFailure {
	failure := &models.AnalysisFailure{
		Status:    models.ReportStatusFailed,
		Error:     FailureCode(err),
		Query:     strings.TrimSpace(req.Query),
		Brand:     strings.TrimSpace(req.Brand),
		Timestamp: at.UTC(),
	}
	var runFailure *RunFailure
	if errors.As(err, &runFailure) {
		failure.ContextsFailed = runFailure.Failed
	}
	return failure
}

// ReportSchema returns the JSON schema of AggregateReport.
func ReportSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&models.AggregateReport{})
}
