// services/scoring_service.go
package services

import "github.com/AI-Template-SDK/senso-visibility/internal/models"

// ScoringWeights is one named policy band for the visibility score.
type ScoringWeights struct {
	Name       string
	Found      int
	PerMention int
	VolumeCap  int
	// EarlyMaxSentence and EarlyBonus apply when Tertiles is nil.
	EarlyMaxSentence int
	EarlyBonus       int
	// Tertiles awards points by which third of the response holds the first mention.
	Tertiles         []int
	Sentiment        map[models.Sentiment]int
	CompetitiveBonus int
}

// SingleShotWeights scores flat analyses.
var SingleShotWeights = ScoringWeights{
	Name:             "single_shot",
	Found:            40,
	PerMention:       10,
	VolumeCap:        20,
	EarlyMaxSentence: 2,
	EarlyBonus:       15,
	Sentiment: map[models.Sentiment]int{
		models.SentimentPositive: 25,
		models.SentimentNeutral:  15,
		models.SentimentNegative: 0,
	},
	CompetitiveBonus: 10,
}

// MultiContextWeights scores sentence-aware analyses.
var MultiContextWeights = ScoringWeights{
	Name:       "multi_context",
	Found:      40,
	PerMention: 10,
	VolumeCap:  20,
	Tertiles:   []int{30, 20, 10},
	Sentiment: map[models.Sentiment]int{
		models.SentimentPositive: 20,
		models.SentimentNeutral:  10,
		models.SentimentNegative: 0,
	},
	CompetitiveBonus: 10,
}

// WeightsFor returns the policy band bound to mode.
func WeightsFor(mode models.AnalysisMode) ScoringWeights {
	if mode == models.ModeFlat {
		return SingleShotWeights
	}
	return MultiContextWeights
}

type scoringService struct{}

func NewScoringService() ScoringService {
	return &scoringService{}
}

func (s *scoringService) Score(input ScoreInput, w ScoringWeights) int {
	m := input.Mention
	if !m.Found || m.Count == 0 {
		return 0
	}

	score := w.Found + min(m.Count*w.PerMention, w.VolumeCap)
	score += positionPoints(m.FirstSentence, input.TotalSentences, w)
	score += w.Sentiment[m.Sentiment]
	if input.CompetitorMentioned {
		score += w.CompetitiveBonus
	}

	return max(0, min(score, 100))
}

func positionPoints(first, total int, w ScoringWeights) int {
	if first < 1 {
		return 0
	}
	if len(w.Tertiles) != 3 {
		if first <= w.EarlyMaxSentence {
			return w.EarlyBonus
		}
		return 0
	}

	if total < first {
		total = first
	}
	// integer comparison of (first-1)/total against 1/3 and 2/3
	switch offset := 3 * (first - 1); {
	case offset < total:
		return w.Tertiles[0]
	case offset < 2*total:
		return w.Tertiles[1]
	default:
		return w.Tertiles[2]
	}
}
