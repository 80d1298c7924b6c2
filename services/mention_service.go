// services/mention_service.go
package services

import (
	"strings"
	"unicode"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

type mentionService struct{}

func NewMentionService() MentionService {
	return &mentionService{}
}

// sentence is a trimmed, non-blank fragment and its rune span in the source text.
type sentence struct {
	text  string
	start int
	end   int
}

// Scan returns one BrandMention per distinct name (case-insensitive), even when
// the name never occurs. Blank names are skipped.
func (s *mentionService) Scan(text string, names []string, mode models.AnalysisMode) ScanResult {
	runes := []rune(text)
	sentences := splitSentences(runes)
	lowered := lowerRunes(runes)

	seen := make(map[string]bool, len(names))
	mentions := make([]models.BrandMention, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		var mention models.BrandMention
		if mode == models.ModeFlat {
			mention = scanFlat(lowered, sentences, name)
		} else {
			mention = scanSentences(sentences, name)
		}
		mentions = append(mentions, mention)
	}

	return ScanResult{
		Mentions:       mentions,
		TotalSentences: len(sentences),
	}
}

// scanSentences records each sentence containing name: 1-based index and trimmed text.
func scanSentences(sentences []sentence, name string) models.BrandMention {
	mention := newMention(name)
	needle := lowerRunes([]rune(name))

	for i, sent := range sentences {
		if indexRunes(lowerRunes([]rune(sent.text)), needle, 0) >= 0 {
			mention.Positions = append(mention.Positions, i+1)
			mention.Contexts = append(mention.Contexts, sent.text)
		}
	}
	return finishMention(mention, firstOrZero(mention.Positions))
}

// scanFlat records every non-overlapping occurrence as a rune offset, with the
// sentence that contains it.
func scanFlat(lowered []rune, sentences []sentence, name string) models.BrandMention {
	mention := newMention(name)
	needle := lowerRunes([]rune(name))
	firstSentence := 0

	for from := 0; ; {
		idx := indexRunes(lowered, needle, from)
		if idx < 0 {
			break
		}
		sentIdx := sentenceAt(sentences, idx)
		if firstSentence == 0 {
			firstSentence = sentIdx + 1
		}
		mention.Positions = append(mention.Positions, idx)
		if sentIdx >= 0 {
			mention.Contexts = append(mention.Contexts, sentences[sentIdx].text)
		} else {
			mention.Contexts = append(mention.Contexts, name)
		}
		from = idx + len(needle)
	}
	return finishMention(mention, firstSentence)
}

func newMention(name string) models.BrandMention {
	return models.BrandMention{
		Brand:     name,
		Positions: []int{},
		Contexts:  []string{},
		Sentiment: models.SentimentNeutral,
	}
}

func finishMention(m models.BrandMention, firstSentence int) models.BrandMention {
	m.Count = len(m.Positions)
	m.Found = m.Count > 0
	if m.Found {
		m.FirstSentence = firstSentence
	}
	return m
}

func firstOrZero(values []int) int {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}

// splitSentences splits on runs of '.', '!' and '?' and drops blank fragments.
func splitSentences(runes []rune) []sentence {
	var out []sentence
	start := 0
	flush := func(end int) {
		fragment := runes[start:end]
		lead := 0
		for lead < len(fragment) && unicode.IsSpace(fragment[lead]) {
			lead++
		}
		trail := len(fragment)
		for trail > lead && unicode.IsSpace(fragment[trail-1]) {
			trail--
		}
		if trail > lead {
			out = append(out, sentence{
				text:  string(fragment[lead:trail]),
				start: start + lead,
				end:   start + trail,
			})
		}
	}

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		flush(i)
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
		}
		start = i + 1
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// sentenceAt returns the index of the sentence whose span holds offset, or -1
// when offset falls on a terminator or blank stretch.
func sentenceAt(sentences []sentence, offset int) int {
	for i, sent := range sentences {
		if offset >= sent.start && offset < sent.end {
			return i
		}
		if offset < sent.start {
			// belongs to the sentence that follows the gap
			return i
		}
	}
	if len(sentences) > 0 {
		return len(sentences) - 1
	}
	return -1
}

// lowerRunes lower-cases rune by rune so offsets stay aligned with the input.
func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
