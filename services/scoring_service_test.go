package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/testutil"
	"github.com/AI-Template-SDK/senso-visibility/services"
)

func found(count, first int, sentiment models.Sentiment) models.BrandMention {
	positions := make([]int, count)
	for i := range positions {
		positions[i] = first + i
	}
	return models.BrandMention{
		Brand:         "Acme",
		Found:         count > 0,
		Count:         count,
		Positions:     positions,
		FirstSentence: first,
		Sentiment:     sentiment,
	}
}

func TestScoreSingleShot(t *testing.T) {
	scorer := services.NewScoringService()

	tests := []struct {
		name  string
		input services.ScoreInput
		want  int
	}{
		{"not found", services.ScoreInput{Mention: models.BrandMention{Brand: "Acme"}}, 0},
		{"one late neutral mention", services.ScoreInput{Mention: found(1, 5, models.SentimentNeutral), TotalSentences: 6}, 40 + 10 + 15},
		{"early positive", services.ScoreInput{Mention: found(1, 2, models.SentimentPositive), TotalSentences: 6}, 40 + 10 + 15 + 25},
		{"volume capped", services.ScoreInput{Mention: found(5, 4, models.SentimentNegative), TotalSentences: 9}, 40 + 20},
		{"competitive context", services.ScoreInput{Mention: found(1, 3, models.SentimentNegative), TotalSentences: 3, CompetitorMentioned: true}, 40 + 10 + 10},
		{"clamped", services.ScoreInput{Mention: found(3, 1, models.SentimentPositive), TotalSentences: 3, CompetitorMentioned: true}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scorer.Score(tt.input, services.SingleShotWeights))
		})
	}
}

func TestScoreMultiContextTertiles(t *testing.T) {
	scorer := services.NewScoringService()

	tests := []struct {
		name  string
		first int
		total int
		want  int
	}{
		{"first sentence", 1, 9, 40 + 10 + 30 + 10},
		{"end of first third", 3, 9, 40 + 10 + 30 + 10},
		{"middle third", 4, 9, 40 + 10 + 20 + 10},
		{"last third", 7, 9, 40 + 10 + 10 + 10},
		{"last sentence", 9, 9, 40 + 10 + 10 + 10},
		{"three sentences, second", 2, 3, 40 + 10 + 20 + 10},
		{"single sentence", 1, 1, 40 + 10 + 30 + 10},
		{"unknown total", 4, 0, 40 + 10 + 10 + 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := services.ScoreInput{Mention: found(1, tt.first, models.SentimentNeutral), TotalSentences: tt.total}
			assert.Equal(t, tt.want, scorer.Score(input, services.MultiContextWeights))
		})
	}
}

func TestScoreSentimentScales(t *testing.T) {
	scorer := services.NewScoringService()
	base := services.ScoreInput{TotalSentences: 10}

	single := map[models.Sentiment]int{
		models.SentimentPositive: 25,
		models.SentimentNeutral:  15,
		models.SentimentNegative: 0,
	}
	multi := map[models.Sentiment]int{
		models.SentimentPositive: 20,
		models.SentimentNeutral:  10,
		models.SentimentNegative: 0,
	}

	for sentiment, points := range single {
		base.Mention = found(1, 9, sentiment)
		assert.Equal(t, 40+10+points, scorer.Score(base, services.SingleShotWeights), sentiment)
	}
	for sentiment, points := range multi {
		base.Mention = found(1, 9, sentiment)
		assert.Equal(t, 40+10+10+points, scorer.Score(base, services.MultiContextWeights), sentiment)
	}
}

func TestScoreWorkedExample(t *testing.T) {
	scanner := services.NewMentionService()
	scorer := services.NewScoringService()

	scan := scanner.Scan(testutil.SampleResponse, []string{"Acme", "BetaCorp"}, models.ModeSentence)
	acme := scan.Mentions[0]

	score := scorer.Score(services.ScoreInput{
		Mention:             acme,
		TotalSentences:      scan.TotalSentences,
		CompetitorMentioned: scan.Mentions[1].Found,
	}, services.SingleShotWeights)

	// found + volume + early position + competitive, before sentiment
	assert.GreaterOrEqual(t, score, 75)
	assert.LessOrEqual(t, score, 100)
}

func TestScoreBounded(t *testing.T) {
	scorer := services.NewScoringService()
	sentiments := []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative, ""}

	for _, weights := range []services.ScoringWeights{services.SingleShotWeights, services.MultiContextWeights} {
		for count := 0; count <= 12; count++ {
			for first := 0; first <= 12; first++ {
				for _, sentiment := range sentiments {
					for _, competitor := range []bool{false, true} {
						input := services.ScoreInput{
							Mention:             found(count, first, sentiment),
							TotalSentences:      first + count,
							CompetitorMentioned: competitor,
						}
						score := scorer.Score(input, weights)
						assert.GreaterOrEqual(t, score, 0)
						assert.LessOrEqual(t, score, 100)
						if count == 0 {
							assert.Equal(t, 0, score)
						}
					}
				}
			}
		}
	}
}

func TestWeightsFor(t *testing.T) {
	assert.Equal(t, "single_shot", services.WeightsFor(models.ModeFlat).Name)
	assert.Equal(t, "multi_context", services.WeightsFor(models.ModeSentence).Name)
}
