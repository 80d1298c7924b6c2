// services/analytics_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// Score bands shared by the report text and the CLI summary.
const (
	BandAboveAverage = "above average"
	BandAverage      = "average"
	BandBelowAverage = "below average"
)

// NegativeShareThreshold is the negative mention percentage that triggers a
// reputation recommendation.
const NegativeShareThreshold = 30

// VisibilityBand names the band a 0-100 score falls in.
func VisibilityBand(score int) string {
	switch {
	case score >= 70:
		return BandAboveAverage
	case score >= 50:
		return BandAverage
	default:
		return BandBelowAverage
	}
}

type analyticsService struct{}

func NewAnalyticsService() AnalyticsService {
	return &analyticsService{}
}

// GenerateInsights applies the recommendation rules in a fixed order.
func (s *analyticsService) GenerateInsights(report *models.AggregateReport) []string {
	if report.NoMentionsFound {
		return []string{fmt.Sprintf(
			"%s is not visible in AI responses for %q. Publish content that answers this question directly and earn coverage on the sources AI assistants cite.",
			report.Brand, report.Query)}
	}

	var insights []string

	band := VisibilityBand(report.GlobalScore)
	switch band {
	case BandAboveAverage:
		insights = append(insights, fmt.Sprintf("Overall visibility score of %d is %s. Keep content fresh to hold this position.", report.GlobalScore, band))
	case BandAverage:
		insights = append(insights, fmt.Sprintf("Overall visibility score of %d is %s. Earlier and more frequent mentions would lift it.", report.GlobalScore, band))
	default:
		insights = append(insights, fmt.Sprintf("Overall visibility score of %d is %s. Strengthen brand presence in content that answers this query.", report.GlobalScore, band))
	}

	if weakest, ok := weakestKey(report.RegionPerformance); ok {
		insights = append(insights, fmt.Sprintf(
			"Visibility is weakest in %s (%d, %s). Create region-specific content for that market.",
			humanize(weakest.Key), weakest.AverageScore, VisibilityBand(weakest.AverageScore)))
	}
	if weakest, ok := weakestKey(report.PersonaPerformance); ok {
		insights = append(insights, fmt.Sprintf(
			"Visibility is weakest for the %s persona (%d, %s). Tailor messaging to their priorities.",
			humanize(weakest.Key), weakest.AverageScore, VisibilityBand(weakest.AverageScore)))
	}

	if leader, target, ok := competitorAhead(report.CompetitorMentions); ok {
		insights = append(insights, fmt.Sprintf(
			"%s is mentioned more often than %s (%d vs %d mentions). Study the comparisons and sources that favor it.",
			leader.Brand, report.Brand, leader.TotalCount, target))
	}

	if report.SentimentBreakdown.Negative >= NegativeShareThreshold {
		insights = append(insights, fmt.Sprintf(
			"%d%% of mentions are negative. Address the criticisms that appear in AI answers.",
			report.SentimentBreakdown.Negative))
	}

	return insights
}

// weakestKey returns the lowest scoring entry when entries differ.
func weakestKey(entries []models.ScoreBreakdown) (models.ScoreBreakdown, bool) {
	if len(entries) < 2 {
		return models.ScoreBreakdown{}, false
	}
	weakest, strongest := entries[0], entries[0]
	for _, e := range entries[1:] {
		if e.AverageScore < weakest.AverageScore {
			weakest = e
		}
		if e.AverageScore > strongest.AverageScore {
			strongest = e
		}
	}
	if weakest.AverageScore == strongest.AverageScore {
		return models.ScoreBreakdown{}, false
	}
	return weakest, true
}

// competitorAhead reports the top ranked competitor when it out-mentions the target.
func competitorAhead(rankings []models.CompetitorRanking) (models.CompetitorRanking, int, bool) {
	targetCount := 0
	for _, r := range rankings {
		if r.IsTarget {
			targetCount = r.TotalCount
		}
	}
	for _, r := range rankings {
		if r.IsTarget {
			continue
		}
		if r.TotalCount > targetCount {
			return r, targetCount, true
		}
		break
	}
	return models.CompetitorRanking{}, 0, false
}

func humanize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		switch w {
		case "b2b":
			words[i] = "B2B"
		default:
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
	}
	return strings.Join(words, " ")
}
