// services/context_runner_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/metrics"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// RunFailure reports a run in which no context succeeded.
type RunFailure struct {
	Failed int
	// Last is the error from the last context that failed.
	Last error
}

func (e *RunFailure) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s (%d contexts)", ErrAllContextsFailed, e.Failed)
	}
	return fmt.Sprintf("%s (%d contexts): %v", ErrAllContextsFailed, e.Failed, e.Last)
}

func (e *RunFailure) Is(target error) bool {
	return target == ErrAllContextsFailed
}

func (e *RunFailure) Unwrap() error {
	return e.Last
}

type contextRunnerService struct {
	mentions       MentionService
	scoring        ScoringService
	citations      CitationService
	recorder       *metrics.Recorder
	maxConcurrency int
	timeout        time.Duration
}

func NewContextRunnerService(cfg config.AnalysisConfig, mentions MentionService, scoring ScoringService, citations CitationService, recorder *metrics.Recorder) ContextRunnerService {
	return &contextRunnerService{
		mentions:       mentions,
		scoring:        scoring,
		citations:      citations,
		recorder:       recorder,
		maxConcurrency: cfg.MaxConcurrency,
		timeout:        cfg.Timeout,
	}
}

// Run evaluates input.Query once per context. Failed contexts are logged and
// dropped; only a run where every context fails returns an error.
func (s *contextRunnerService) Run(ctx context.Context, input RunInput) (*RunOutput, error) {
	logger := zerolog.Ctx(ctx)
	if input.Generator == nil {
		return nil, errors.New("context runner: generator is required")
	}
	if strings.TrimSpace(input.Brand) == "" {
		return nil, ErrMissingBrand
	}
	if len(input.Contexts) == 0 {
		return nil, &RunFailure{}
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info().
		Int("contexts", len(input.Contexts)).
		Str("model", input.Model).
		Str("mode", string(input.Mode)).
		Msg("starting context fan-out")

	tracker := NewUsageTracker()
	results := make([]*models.ContextResult, len(input.Contexts))
	failures := make([]error, len(input.Contexts))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, cfg := range input.Contexts {
		g.Go(func() error {
			result, err := s.runOne(runCtx, input, cfg, tracker)
			if err != nil {
				failures[i] = err
				s.recorder.ObserveContext("failed")
				logger.Warn().
					Err(err).
					Str("context", cfg.Key()).
					Msg("context failed, dropping it from the report")
				return nil
			}
			results[i] = result
			s.recorder.ObserveContext("succeeded")
			s.recorder.ObserveScore(result.VisibilityScore)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// a caller deadline, such as the HTTP request timeout, is still a timeout
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrAnalysisTimeout, err)
		}
		return nil, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrAnalysisTimeout, s.timeout)
	}

	out := &RunOutput{Usage: tracker.Total()}
	var last error
	for i := range input.Contexts {
		if results[i] != nil {
			out.Results = append(out.Results, *results[i])
			continue
		}
		out.Failed++
		last = failures[i]
	}

	logger.Info().
		Int("succeeded", len(out.Results)).
		Int("failed", out.Failed).
		Int("input_tokens", out.Usage.InputTokens).
		Int("output_tokens", out.Usage.OutputTokens).
		Msg("context fan-out finished")

	if len(out.Results) == 0 {
		return nil, &RunFailure{Failed: out.Failed, Last: last}
	}
	return out, nil
}

// runOne is strictly sequential: generate, scan, classify, score.
func (s *contextRunnerService) runOne(ctx context.Context, input RunInput, cfg models.ContextConfig, tracker *UsageTracker) (*models.ContextResult, error) {
	systemPrompt, err := BuildSystemPrompt(cfg)
	if err != nil {
		return nil, err
	}

	resp, err := input.Generator.Generate(ctx, common.GenerationRequest{
		SystemPrompt:    systemPrompt,
		UserPrompt:      input.Query,
		Model:           input.Model,
		MaxOutputTokens: input.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate for %s: %w", cfg.Key(), err)
	}
	usage := models.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	tracker.Add(usage)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, common.ParseError(input.Generator.GetProviderName(), "empty response text", nil)
	}

	names := append([]string{input.Brand}, input.Competitors...)
	scan := s.mentions.Scan(text, names, input.Mode)

	for i := range scan.Mentions {
		m := &scan.Mentions[i]
		if m.Count == 0 || input.Sentiment == nil {
			continue
		}
		label, sentimentUsage := input.Sentiment.Resolve(ctx, text, m.Brand)
		m.Sentiment = label
		usage = usage.Add(sentimentUsage)
		tracker.Add(sentimentUsage)
	}

	primary := scan.Mentions[0]
	detected := make([]string, 0, len(scan.Mentions)-1)
	for _, m := range scan.Mentions[1:] {
		if m.Found {
			detected = append(detected, m.Brand)
		}
	}

	score := s.scoring.Score(ScoreInput{
		Mention:             primary,
		TotalSentences:      scan.TotalSentences,
		CompetitorMentioned: len(detected) > 0,
	}, WeightsFor(input.Mode))

	return &models.ContextResult{
		Context:             cfg,
		AIResponse:          text,
		BrandMentions:       scan.Mentions,
		VisibilityScore:     score,
		DetectedCompetitors: detected,
		Links:               s.citations.ExtractLinks(text, names),
		TotalSentences:      scan.TotalSentences,
		Usage:               usage,
	}, nil
}
