package extractors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miradorstack/mirador-classify/internal/models"
)

const headingReport = `### 1. Multimodal Summary
Drone strike on a residential block.

### 2. OSINT Analysis
Debris consistent with a Shahed.

### 5. Named Entities
Shahed-136, Kharkiv
`

const legacyReport = `**1. Multimodal Summary**
Artillery fire reported.
**2. OSINT Analysis**
Crater analysis points to 152mm.
**5. Named Entities**
2S19 Msta
**6. Sentiment Analysis**
Negative.`

func TestParseAnalysisHeadings(t *testing.T) {
	sections := ParseAnalysis(headingReport)

	assert.Equal(t, "Drone strike on a residential block.", sections[SectionSummary])
	assert.Equal(t, "Debris consistent with a Shahed.", sections[SectionOSINT])
	assert.Equal(t, "Shahed-136, Kharkiv", sections[SectionEntities])
	assert.NotContains(t, sections, SectionPolitical)
}

func TestParseAnalysisLegacyFallback(t *testing.T) {
	sections := ParseAnalysis(legacyReport)

	assert.Equal(t, "Artillery fire reported.", sections[SectionSummary])
	assert.Equal(t, "Crater analysis points to 152mm.", sections[SectionOSINT])
	assert.Equal(t, "2S19 Msta", sections[SectionEntities])
	assert.Equal(t, "Negative.", sections[SectionSentiment])
}

func TestParseAnalysisEmpty(t *testing.T) {
	assert.Empty(t, ParseAnalysis("   "))
	assert.Empty(t, ParseAnalysis("free text without any section titles"))
}

func TestMatchTextSkipsMissingFields(t *testing.T) {
	extractor := NewTextExtractor()

	rec := models.Record{
		Entities:    "Shahed",
		Description: "  ",
		MessageText: "Strike On KHARKIV",
		Analysis:    headingReport,
	}
	text := extractor.MatchText(rec)

	assert.Equal(t, "shahed shahed-136, kharkiv strike on kharkiv", text)
	assert.Empty(t, extractor.MatchText(models.Record{}))
}

func TestScoreTextStripsURLs(t *testing.T) {
	extractor := NewTextExtractor()

	rec := models.Record{
		MessageText: "Massacre reported https://t.me/war_crimes_channel/42 today",
	}
	text := extractor.ScoreText(rec)

	assert.Contains(t, text, "massacre reported")
	assert.False(t, strings.Contains(text, "war_crimes"), "url should be stripped: %q", text)
}
