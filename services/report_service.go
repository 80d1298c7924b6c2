// services/report_service.go
package services

import (
	"math"
	"sort"
	"strings"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

var sentimentValue = map[models.Sentiment]float64{
	models.SentimentPositive: 1,
	models.SentimentNeutral:  0.5,
	models.SentimentNegative: 0,
}

type reportService struct {
	costService      CostService
	analyticsService AnalyticsService
}

func NewReportService(costService CostService, analyticsService AnalyticsService) ReportService {
	return &reportService{
		costService:      costService,
		analyticsService: analyticsService,
	}
}

// Build aggregates successful context results. results must not be empty.
func (s *reportService) Build(results []models.ContextResult, input ReportInput) *models.AggregateReport {
	report := &models.AggregateReport{
		Status:            models.ReportStatusCompleted,
		Query:             input.Query,
		Brand:             input.Brand,
		Competitors:       append([]string{}, input.Competitors...),
		Model:             input.Model,
		Mode:              input.Mode,
		Usage:             UsageCost(s.costService, input.Model, input.Usage),
		ContextsEvaluated: len(results),
		ContextsFailed:    input.ContextsFailed,
		Results:           results,
	}

	report.NoMentionsFound = noMentions(results, input.Brand)
	if !report.NoMentionsFound {
		scores := make([]int, len(results))
		for i, r := range results {
			scores[i] = r.VisibilityScore
		}
		report.GlobalScore = roundedMean(scores)
	}

	report.RegionPerformance = breakdown(results, func(c models.ContextConfig) string { return string(c.Region) })
	report.PersonaPerformance = breakdown(results, func(c models.ContextConfig) string { return string(c.Persona) })
	report.CompetitorMentions = rankBrands(results, input.Brand)
	report.SentimentBreakdown = sentimentBreakdown(results)

	linkSets := make([][]models.Link, len(results))
	for i, r := range results {
		linkSets[i] = r.Links
	}
	report.Links = GroupLinks(linkSets...)

	if s.analyticsService != nil {
		report.Recommendations = s.analyticsService.GenerateInsights(report)
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	return report
}

func noMentions(results []models.ContextResult, brand string) bool {
	for i := range results {
		if m, ok := results[i].Mention(brand); ok && m.Count > 0 {
			return false
		}
	}
	return true
}

func roundedMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

// breakdown averages scores per key, in order of first appearance.
func breakdown(results []models.ContextResult, key func(models.ContextConfig) string) []models.ScoreBreakdown {
	scores := make(map[string][]int)
	var order []string
	for _, r := range results {
		k := key(r.Context)
		if _, ok := scores[k]; !ok {
			order = append(order, k)
		}
		scores[k] = append(scores[k], r.VisibilityScore)
	}

	out := make([]models.ScoreBreakdown, 0, len(order))
	for _, k := range order {
		out = append(out, models.ScoreBreakdown{
			Key:          k,
			AverageScore: roundedMean(scores[k]),
			Contexts:     len(scores[k]),
		})
	}
	return out
}

type brandTally struct {
	brand      string
	count      int
	positions  []int
	sentiments []float64
}

// rankBrands orders every brand found at least once by total count desc,
// then average first position asc.
func rankBrands(results []models.ContextResult, target string) []models.CompetitorRanking {
	tallies := make(map[string]*brandTally)
	var order []string
	total := 0

	for _, r := range results {
		for _, m := range r.BrandMentions {
			if m.Count == 0 {
				continue
			}
			key := strings.ToLower(m.Brand)
			t, ok := tallies[key]
			if !ok {
				t = &brandTally{brand: m.Brand}
				tallies[key] = t
				order = append(order, key)
			}
			t.count += m.Count
			t.positions = append(t.positions, m.FirstSentence)
			t.sentiments = append(t.sentiments, sentimentValue[m.Sentiment])
			total += m.Count
		}
	}

	type ranked struct {
		ranking models.CompetitorRanking
		avg     float64
	}
	entries := make([]ranked, 0, len(order))
	for _, key := range order {
		t := tallies[key]
		entries = append(entries, ranked{
			ranking: models.CompetitorRanking{
				Brand:        t.brand,
				TotalCount:   t.count,
				Sentiment:    sentimentBucket(t.sentiments),
				ShareOfVoice: roundTo(100*float64(t.count)/float64(total), 1),
				IsTarget:     strings.EqualFold(t.brand, target),
			},
			avg: mean(t.positions),
		})
	}

	// The tie-break compares unrounded means; rounding happens on output.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ranking.TotalCount != entries[j].ranking.TotalCount {
			return entries[i].ranking.TotalCount > entries[j].ranking.TotalCount
		}
		return entries[i].avg < entries[j].avg
	})

	rankings := make([]models.CompetitorRanking, 0, len(entries))
	for _, e := range entries {
		e.ranking.AveragePosition = roundTo(e.avg, 2)
		rankings = append(rankings, e.ranking)
	}
	return rankings
}

func sentimentBucket(values []float64) models.Sentiment {
	if len(values) == 0 {
		return models.SentimentNeutral
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	switch share := sum / float64(len(values)); {
	case share > 0.6:
		return models.SentimentPositive
	case share < 0.4:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// sentimentBreakdown weights each brand's context sentiment by its mention
// count. Rounding drift goes to the largest bucket so the total is 100.
func sentimentBreakdown(results []models.ContextResult) models.SentimentBreakdown {
	counts := map[models.Sentiment]int{}
	total := 0
	for _, r := range results {
		for _, m := range r.BrandMentions {
			if m.Count == 0 {
				continue
			}
			label := m.Sentiment
			if _, ok := sentimentValue[label]; !ok {
				label = models.SentimentNeutral
			}
			counts[label] += m.Count
			total += m.Count
		}
	}
	if total == 0 {
		return models.SentimentBreakdown{Positive: 0, Neutral: 100, Negative: 0}
	}

	labels := []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative}
	pct := make([]int, len(labels))
	sum, largest := 0, 0
	for i, label := range labels {
		pct[i] = int(math.Round(100 * float64(counts[label]) / float64(total)))
		sum += pct[i]
		if counts[label] > counts[labels[largest]] {
			largest = i
		}
	}
	pct[largest] += 100 - sum

	return models.SentimentBreakdown{Positive: pct[0], Neutral: pct[1], Negative: pct[2]}
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
