// services/sentiment_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/cache"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// SentimentMaxTokens is the output budget for a one-word label.
const SentimentMaxTokens = 10

const sentimentSystemPrompt = `You classify sentiment. Answer with exactly one word: positive, neutral, or negative.`

const sentimentUserPrompt = `How does the following text portray "%s"?

Text:
%s

Answer with one word: positive, neutral, or negative.`

type sentimentService struct {
	generator providers.TextGenerator
	model     string
	cache     SentimentCache
	cacheTTL  time.Duration
}

// NewSentimentService classifies with generator. cache may be nil.
func NewSentimentService(generator providers.TextGenerator, model string, cache SentimentCache, cacheTTL time.Duration) SentimentService {
	return &sentimentService{
		generator: generator,
		model:     model,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func (s *sentimentService) Classify(ctx context.Context, text, brand string) (models.Sentiment, models.TokenUsage, error) {
	logger := zerolog.Ctx(ctx)
	key := s.cacheKey(text, brand)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			if label, ok := ParseSentiment(string(cached)); ok {
				return label, models.TokenUsage{}, nil
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Str("brand", brand).Msg("sentiment cache read failed")
		}
	}

	resp, err := s.generator.Generate(ctx, common.GenerationRequest{
		SystemPrompt:    sentimentSystemPrompt,
		UserPrompt:      fmt.Sprintf(sentimentUserPrompt, brand, text),
		Model:           s.model,
		MaxOutputTokens: SentimentMaxTokens,
		Temperature:     common.Float64Ptr(0),
	})
	if err != nil {
		return models.SentimentNeutral, models.TokenUsage{}, fmt.Errorf("classify sentiment for %s: %w", brand, err)
	}

	usage := models.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	label, ok := ParseSentiment(resp.Text)
	if !ok {
		return models.SentimentNeutral, usage, fmt.Errorf("classify sentiment for %s: %w: %q", brand, ErrUnparseableSentiment, resp.Text)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(label), s.cacheTTL); err != nil {
			logger.Warn().Err(err).Str("brand", brand).Msg("sentiment cache write failed")
		}
	}
	return label, usage, nil
}

func (s *sentimentService) Resolve(ctx context.Context, text, brand string) (models.Sentiment, models.TokenUsage) {
	label, usage, err := s.Classify(ctx, text, brand)
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("brand", brand).
			Msg("sentiment classification failed, defaulting to neutral")
		return models.SentimentNeutral, usage
	}
	return label, usage
}

func (s *sentimentService) cacheKey(text, brand string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + strings.ToLower(brand) + "\x00" + text))
	return cache.Key("sentiment", hex.EncodeToString(sum[:]))
}

// ParseSentiment lower-cases and trims the answer, then checks for "positive"
// before "negative". ok is false when no label word is present.
func ParseSentiment(answer string) (models.Sentiment, bool) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.Contains(normalized, "positive"):
		return models.SentimentPositive, true
	case strings.Contains(normalized, "negative"):
		return models.SentimentNegative, true
	case strings.Contains(normalized, "neutral"):
		return models.SentimentNeutral, true
	default:
		return models.SentimentNeutral, false
	}
}
