package engine

import (
	"github.com/miradorstack/mirador-classify/internal/extractors"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

var (
	sideUAPatterns = mustCompileAll([]string{`\bukrain`, `\bafu\b`, `зсу`})
	sideRUPatterns = mustCompileAll([]string{`\bruss`, `вс\s?рф`, `вооруж.*сил`})
)

// EntityMatcher tags records with the first matching dictionary entry and
// the side they refer to.
type EntityMatcher struct {
	dict *patterns.Dictionary
	text *extractors.TextExtractor
}

// NewEntityMatcher constructs a matcher over dict. A nil dictionary behaves
// like an empty one.
func NewEntityMatcher(dict *patterns.Dictionary) *EntityMatcher {
	return &EntityMatcher{dict: dict, text: extractors.NewTextExtractor()}
}

// Dictionary returns the dictionary the matcher was built with.
func (m *EntityMatcher) Dictionary() *patterns.Dictionary {
	return m.dict
}

// Match annotates one record.
func (m *EntityMatcher) Match(rec models.Record) models.MatchResult {
	return m.MatchText(m.text.MatchText(rec))
}

// MatchText annotates already-assembled, lowercased text. Systems are tried
// before units and the first entry in declaration order wins.
func (m *EntityMatcher) MatchText(text string) models.MatchResult {
	result := models.MatchResult{
		Group:             models.GroupNone,
		Side:              models.SideUnknown,
		DictionaryVersion: m.dict.Version(),
	}
	if text == "" {
		return result
	}

	result.Side = DeriveSide(text)
	for _, group := range []models.Group{models.GroupSystem, models.GroupUnit} {
		if entry, ok := m.dict.FirstMatch(group, text); ok {
			result.Key = entry.Key
			result.Group = group
			return result
		}
	}
	if result.Side != models.SideUnknown {
		result.Group = models.GroupFlag
	}
	return result
}

// PrecomputeAll returns copies of records with a fresh match annotation.
func (m *EntityMatcher) PrecomputeAll(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, rec := range records {
		match := m.Match(rec)
		rec.Match = &match
		out[i] = rec
	}
	return out
}

// DeriveSide reports which belligerent text refers to. Mentions of both
// sides, or of neither, are unknown.
func DeriveSide(text string) models.Side {
	ua := anyMatch(sideUAPatterns, text)
	ru := anyMatch(sideRUPatterns, text)
	switch {
	case ua && !ru:
		return models.SideUA
	case ru && !ua:
		return models.SideRU
	default:
		return models.SideUnknown
	}
}
