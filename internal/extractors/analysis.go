package extractors

import (
	"regexp"
	"strings"
)

// Section names produced by ParseAnalysis.
const (
	SectionSummary   = "summary"
	SectionOSINT     = "osint"
	SectionPolitical = "political"
	SectionTopics    = "topics"
	SectionEntities  = "entities"
	SectionSentiment = "sentiment"
)

type sectionPattern struct {
	name string
	re   *regexp.Regexp
}

// Current reports use markdown headings ("### 2. OSINT Analysis").
var headingSections = []sectionPattern{
	{SectionSummary, regexp.MustCompile(`(?i)###\s*1\.\s*Multimodal Summary\s*\n+`)},
	{SectionOSINT, regexp.MustCompile(`(?i)###\s*2\.\s*OSINT Analysis\s*\n+`)},
	{SectionPolitical, regexp.MustCompile(`(?i)###\s*3\.\s*Political Analysis\s*\n+`)},
	{SectionTopics, regexp.MustCompile(`(?i)###\s*4\.\s*Topic Modeling\s*\n+`)},
	{SectionEntities, regexp.MustCompile(`(?i)###\s*5\.\s*Named Entities\s*\n+`)},
	{SectionSentiment, regexp.MustCompile(`(?i)###\s*6\.\s*Sentiment Analysis\s*\n+`)},
}

var headingEnd = regexp.MustCompile(`\n###`)

// Older reports use bold numbered titles ("**2. OSINT Analysis**").
var legacySections = []sectionPattern{
	{SectionSummary, regexp.MustCompile(`(?i)\*\*1\.\s*Multimodal Summary\*\*\s*\n+`)},
	{SectionOSINT, regexp.MustCompile(`(?i)\*\*2\.\s*OSINT Analysis\*\*\s*\n+`)},
	{SectionPolitical, regexp.MustCompile(`(?i)\*\*3\.\s*Political Analysis\*\*\s*\n+`)},
	{SectionTopics, regexp.MustCompile(`(?i)\*\*4\.\s*Topic Modeling\*\*\s*\n+`)},
	{SectionEntities, regexp.MustCompile(`(?i)\*\*5\.\s*Named Entities\*\*\s*\n+`)},
	{SectionSentiment, regexp.MustCompile(`(?i)\*\*6\.\s*Sentiment Analysis\*\*\s*\n+`)},
}

var legacyEnd = regexp.MustCompile(`\n\*\*\d+\.`)

// ParseAnalysis splits a multimodal analysis blob into its numbered sections.
// The heading layout is tried first; the legacy layout only when no heading
// section is present. Missing sections are absent from the map.
func ParseAnalysis(text string) map[string]string {
	sections := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return sections
	}

	for _, sp := range headingSections {
		if body, ok := cut(text, sp.re, headingEnd); ok {
			sections[sp.name] = body
		}
	}
	if len(sections) > 0 {
		return sections
	}

	for _, sp := range legacySections {
		if body, ok := cut(text, sp.re, legacyEnd); ok {
			sections[sp.name] = body
		}
	}
	return sections
}

// cut returns the text between the first match of start and the next match
// of end (or the end of text).
func cut(text string, start, end *regexp.Regexp) (string, bool) {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if stop := end.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.TrimSpace(rest), true
}
