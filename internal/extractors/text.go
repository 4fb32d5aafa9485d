package extractors

import (
	"regexp"
	"strings"

	"github.com/miradorstack/mirador-classify/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// TextExtractor assembles the lowercased haystacks the matcher and scorer
// run their patterns against.
type TextExtractor struct{}

// NewTextExtractor constructs a record text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// MatchText joins the entity-bearing fields: the entity annotation, the
// analysis "Named Entities" section, and the three narrative fields.
func (e *TextExtractor) MatchText(rec models.Record) string {
	sections := ParseAnalysis(rec.Analysis)
	return joinLower(
		rec.Entities,
		sections[SectionEntities],
		rec.Description,
		rec.TranslatedText,
		rec.MessageText,
	)
}

// ScoreText joins every field that may carry violation evidence, with URLs
// removed so link slugs cannot trigger rules.
func (e *TextExtractor) ScoreText(rec models.Record) string {
	sections := ParseAnalysis(rec.Analysis)
	text := joinLower(
		sections[SectionSummary],
		sections[SectionOSINT],
		sections[SectionPolitical],
		sections[SectionEntities],
		rec.OSINTEvents,
		rec.Description,
		rec.TranslatedText,
		rec.MessageText,
		rec.Analysis,
	)
	return StripURLs(text)
}

// StripURLs removes http(s) links.
func StripURLs(text string) string {
	return urlPattern.ReplaceAllString(text, " ")
}

func joinLower(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
