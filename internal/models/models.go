// internal/models/models.go
package models

import (
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// AnalysisMode selects how mentions are counted and which scoring weights apply.
type AnalysisMode string

const (
	// ModeFlat counts raw substring occurrences; positions are rune offsets.
	ModeFlat AnalysisMode = "flat"
	// ModeSentence counts matching sentences; positions are 1-based sentence indexes.
	ModeSentence AnalysisMode = "sentence"
)

func (m AnalysisMode) Valid() bool {
	return m == ModeFlat || m == ModeSentence
}

type Region string

const (
	RegionNorthAmerica Region = "north_america"
	RegionEurope       Region = "europe"
	RegionAsiaPacific  Region = "asia_pacific"
	RegionLatinAmerica Region = "latin_america"
)

// AllRegions is the closed set of supported regions, in display order.
var AllRegions = []Region{RegionNorthAmerica, RegionEurope, RegionAsiaPacific, RegionLatinAmerica}

func (r Region) Valid() bool {
	for _, known := range AllRegions {
		if r == known {
			return true
		}
	}
	return false
}

// Language returns the response language used for the region.
func (r Region) Language() string {
	switch r {
	case RegionLatinAmerica:
		return "es"
	default:
		return "en"
	}
}

type Persona string

const (
	PersonaB2BDecisionMaker   Persona = "b2b_decision_maker"
	PersonaDeveloper          Persona = "developer"
	PersonaConsumer           Persona = "consumer"
	PersonaSmallBusinessOwner Persona = "small_business_owner"
)

// AllPersonas is the closed set of supported personas, in display order.
var AllPersonas = []Persona{PersonaB2BDecisionMaker, PersonaDeveloper, PersonaConsumer, PersonaSmallBusinessOwner}

func (p Persona) Valid() bool {
	for _, known := range AllPersonas {
		if p == known {
			return true
		}
	}
	return false
}

// BrandMention is one brand's occurrence record within a single AI response.
type BrandMention struct {
	Brand         string    `json:"brand"`
	Found         bool      `json:"found"`
	Count         int       `json:"count"`
	Positions     []int     `json:"positions"`
	Contexts      []string  `json:"contexts"`
	FirstSentence int       `json:"first_sentence"`
	Sentiment     Sentiment `json:"sentiment"`
}

// ContextConfig is one region x persona combination a query is evaluated under.
type ContextConfig struct {
	Region   Region  `json:"region"`
	Persona  Persona `json:"persona"`
	Language string  `json:"language"`
}

func NewContextConfig(region Region, persona Persona) ContextConfig {
	return ContextConfig{
		Region:   region,
		Persona:  persona,
		Language: region.Language(),
	}
}

func (c ContextConfig) Key() string {
	return string(c.Region) + "/" + string(c.Persona)
}

type Link struct {
	URL   string `json:"url"`
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// ContextResult is the output of evaluating one ContextConfig.
type ContextResult struct {
	Context             ContextConfig  `json:"context"`
	AIResponse          string         `json:"ai_response"`
	BrandMentions       []BrandMention `json:"brand_mentions"`
	VisibilityScore     int            `json:"visibility_score"`
	DetectedCompetitors []string       `json:"detected_competitors"`
	Links               []Link         `json:"links"`
	TotalSentences      int            `json:"total_sentences"`
	Usage               TokenUsage     `json:"usage"`
}

// Mention returns the mention record for brand, matched case-insensitively.
func (r *ContextResult) Mention(brand string) (BrandMention, bool) {
	for _, m := range r.BrandMentions {
		if strings.EqualFold(m.Brand, brand) {
			return m, true
		}
	}
	return BrandMention{}, false
}

type ScoreBreakdown struct {
	Key          string `json:"key"`
	AverageScore int    `json:"average_score"`
	Contexts     int    `json:"contexts"`
}

type CompetitorRanking struct {
	Brand           string    `json:"brand"`
	TotalCount      int       `json:"total_count"`
	AveragePosition float64   `json:"average_position"`
	Sentiment       Sentiment `json:"sentiment"`
	ShareOfVoice    float64   `json:"share_of_voice"`
	IsTarget        bool      `json:"is_target"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type ReportUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

const (
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// AggregateReport is the final output of one analysis run.
type AggregateReport struct {
	ID                 string              `json:"id"`
	Status             string              `json:"status"`
	Error              string              `json:"error,omitempty"`
	Query              string              `json:"query"`
	Brand              string              `json:"brand"`
	Competitors        []string            `json:"competitors"`
	Model              string              `json:"model"`
	Mode               AnalysisMode        `json:"mode"`
	Timestamp          time.Time           `json:"timestamp"`
	GlobalScore        int                 `json:"global_score"`
	NoMentionsFound    bool                `json:"no_mentions_found"`
	RegionPerformance  []ScoreBreakdown    `json:"region_performance"`
	PersonaPerformance []ScoreBreakdown    `json:"persona_performance"`
	CompetitorMentions []CompetitorRanking `json:"competitor_mentions"`
	SentimentBreakdown SentimentBreakdown  `json:"sentiment_breakdown"`
	Recommendations    []string            `json:"recommendations"`
	Links              map[string][]Link   `json:"links"`
	Usage              ReportUsage         `json:"usage"`
	ContextsEvaluated  int                 `json:"contexts_evaluated"`
	ContextsFailed     int                 `json:"contexts_failed"`
	Results            []ContextResult     `json:"results,omitempty"`
}

// AnalysisFailure is returned in place of a report when no context succeeded.
type AnalysisFailure struct {
	Status         string    `json:"status"`
	Error          string    `json:"error"`
	Query          string    `json:"query"`
	Brand          string    `json:"brand"`
	ContextsFailed int       `json:"contexts_failed"`
	Timestamp      time.Time `json:"timestamp"`
}

// AnalysisRequest is the pipeline entry point input.
type AnalysisRequest struct {
	Query       string       `json:"query"`
	Brand       string       `json:"brand"`
	Competitors []string     `json:"competitors,omitempty"`
	Model       string       `json:"model,omitempty"`
	Regions     []Region     `json:"regions,omitempty"`
	Personas    []Persona    `json:"personas,omitempty"`
	Mode        AnalysisMode `json:"mode,omitempty"`
	Credential  string       `json:"credential,omitempty"`
}
