package engine

import (
	"regexp"

	"github.com/miradorstack/mirador-classify/internal/extractors"
	"github.com/miradorstack/mirador-classify/internal/models"
)

// Scorer grades records for likely violations of the laws of war. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	rules *RuleSet
	text  *extractors.TextExtractor
}

// NewScorer constructs a scorer; nil rules selects DefaultRuleSet.
func NewScorer(rules *RuleSet) *Scorer {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Scorer{rules: rules, text: extractors.NewTextExtractor()}
}

// Score grades one record.
func (s *Scorer) Score(rec models.Record) models.ScoreResult {
	return s.ScoreText(s.text.ScoreText(rec))
}

// ScoreText grades already-assembled, lowercased text.
func (s *Scorer) ScoreText(text string) models.ScoreResult {
	none := models.ScoreResult{Tag: models.TagNone}
	if text == "" || !anyMatch(s.rules.Context, text) {
		return none
	}

	var (
		score   int
		reasons []string
		present = make(map[string]bool)
	)
	for _, c := range s.rules.categories() {
		if c.Reason == ReasonFiringMode {
			continue
		}
		if w := c.Weigh(c.Hits(text)); w > 0 {
			score += w
			reasons = append(reasons, c.Reason)
			present[c.Reason] = true
		}
	}

	// Firing mode only strengthens treatment or protected-target evidence.
	if present[ReasonTreatment] || present[ReasonProtected] {
		fm := s.rules.FiringMode
		if w := fm.Weigh(fm.Hits(text)); w > 0 {
			score += w
			reasons = append(reasons, fm.Reason)
		}
	}

	if anyMatch(s.rules.Negation, text) {
		if score < s.rules.StrongEvidence {
			return none
		}
		return models.ScoreResult{
			Tag:     models.TagNone,
			Score:   max(score/2, 1),
			Reasons: append(reasons, ReasonNegation),
		}
	}

	hasCore := present[ReasonExplicit] || present[ReasonTreatment] || present[ReasonProtected] ||
		present[ReasonProhibited] || present[ReasonIndiscriminate]
	tag := models.TagNone
	if hasCore && score >= s.rules.MinPositive {
		tag = models.TagPositive
	}
	return models.ScoreResult{Tag: tag, Score: score, Reasons: reasons}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
