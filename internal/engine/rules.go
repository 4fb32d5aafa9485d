package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Reason labels reported in ScoreResult.Reasons, in evaluation order.
const (
	ReasonExplicit       = "explicit"
	ReasonTreatment      = "treatment"
	ReasonProtected      = "protected_target"
	ReasonProhibited     = "prohibited_means"
	ReasonIndiscriminate = "indiscriminate"
	ReasonFiringMode     = "firing_mode"
	ReasonNegation       = "negation"
)

var contextPatterns = []string{
	`\b(missiles?|rockets?|drones?|uavs?|artillery|shell(s|ed|ing)?|bomb(s|ed|ing)?|airstrikes?|strikes?|attack(s|ed)?|front|battle|military|tanks?|mlrs|grenades?|mortars?|loitering|troops|invasion|occupiers?)\b`,
}

var explicitPatterns = []string{
	`\bwar crimes?\b`,
	`crimes? against humanity`,
	`\bgenocide\b`,
	`violations? of (international )?humanitarian law`,
	`geneva conventions?`,
	`\bicc\b|international criminal court`,
	`ethnic cleansing`,
}

var treatmentPatterns = []string{
	`summary executions?|\bexecut(ed|ion|ions)\b|massacre`,
	`\brap(e|ed|es)\b|sexual violence`,
	`tortur(e|ed|ing)|behead(ed|ing)?`,
	`\bpows?\b|prisoners? of war`,
	`deportation|forced(ly)? (displacement|transfer|displaced)`,
	`hostages?|human shields?`,
}

var protectedPatterns = []string{
	`civilians?`,
	`residential|apartment|market|church|mosque|temple|synagogue`,
	`school|kindergarten|university`,
	`hospital|ambulance|clinic|medic`,
	`children|women|elderly|refugees?`,
	`museum|cathedral|monument|heritage|library`,
	`humanitarian (convoy|aid)|aid workers?|evacuation (corridor|convoy)`,
}

var prohibitedPatterns = []string{
	`cluster (munition|bomb|shell)s?`,
	`white phosphorus|phosphorus (munitions?|shells?)`,
	`thermobaric|vacuum bomb`,
	`chemical (weapons?|agents?|attack)|nerve agent|chloropicrin|biological weapons?`,
	`banned weapons?|prohibited weapons?`,
	`anti-?personnel mines?|butterfly mines?|pfm-1`,
	`incendiary (munitions?|weapons?|bombs?)`,
}

var indiscriminatePatterns = []string{
	`\bindiscriminate(ly)?\b|disproportionate`,
	`carpet bombing|saturation (bombing|shelling)`,
	`deliberate(ly)? target(ed|ing) civilians|targeting civilians`,
}

var firingModePatterns = []string{
	`shell(ing)?|bomb(ing)?|airstrike|missile strike|rocket strike`,
	`drone strike|loitering (munition|drone)`,
	`artillery|mlrs|mortar`,
}

var negationPatterns = []string{
	`no (potential )?war crimes?`,
	`not a war crime`,
	`no (indication|evidence) of (war crimes?|violations?)`,
	`claims? of war crimes? (are|is|were|was) (false|unfounded)`,
	`den(y|ied|ies) (any )?(war crimes?|involvement|responsibility)`,
}

// Category is one evidence rule group feeding the violation score.
type Category struct {
	Reason   string
	Patterns []*regexp.Regexp
	Weight   int
	// Cap bounds Weight × matching patterns. Zero applies Weight once.
	Cap int
}

// Hits counts the distinct patterns matching text.
func (c Category) Hits(text string) int {
	hits := 0
	for _, re := range c.Patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}

// Weigh converts a hit count into the category's score contribution.
func (c Category) Weigh(hits int) int {
	if hits <= 0 {
		return 0
	}
	if c.Cap <= 0 {
		return c.Weight
	}
	return min(c.Weight*hits, c.Cap)
}

// RuleSet holds the compiled violation rule tables.
type RuleSet struct {
	Context        []*regexp.Regexp
	Explicit       Category
	Treatment      Category
	Protected      Category
	Prohibited     Category
	Indiscriminate Category
	FiringMode     Category
	Negation       []*regexp.Regexp
	// MinPositive is the lowest score that may be tagged positive.
	MinPositive int
	// StrongEvidence is the score at which negation halves instead of zeroing.
	StrongEvidence int
}

var defaultRules = RuleSet{
	Context:        mustCompileAll(contextPatterns),
	Explicit:       Category{Reason: ReasonExplicit, Patterns: mustCompileAll(explicitPatterns), Weight: 4},
	Treatment:      Category{Reason: ReasonTreatment, Patterns: mustCompileAll(treatmentPatterns), Weight: 2, Cap: 6},
	Protected:      Category{Reason: ReasonProtected, Patterns: mustCompileAll(protectedPatterns), Weight: 1, Cap: 3},
	Prohibited:     Category{Reason: ReasonProhibited, Patterns: mustCompileAll(prohibitedPatterns), Weight: 2, Cap: 4},
	Indiscriminate: Category{Reason: ReasonIndiscriminate, Patterns: mustCompileAll(indiscriminatePatterns), Weight: 2},
	FiringMode:     Category{Reason: ReasonFiringMode, Patterns: mustCompileAll(firingModePatterns), Weight: 1},
	Negation:       mustCompileAll(negationPatterns),
	MinPositive:    2,
	StrongEvidence: 6,
}

// DefaultRuleSet returns the compiled-in rule tables.
func DefaultRuleSet() *RuleSet {
	rules := defaultRules
	return &rules
}

// categories lists the evidence groups in reason order.
func (r *RuleSet) categories() []*Category {
	return []*Category{&r.Explicit, &r.Treatment, &r.Protected, &r.Prohibited, &r.Indiscriminate, &r.FiringMode}
}

// RuleFile is the YAML root structure of a rule override file. Any field
// left out keeps its compiled-in value.
type RuleFile struct {
	Context        []string                `yaml:"context"`
	Negation       []string                `yaml:"negation"`
	Categories     map[string]CategoryFile `yaml:"categories"`
	MinPositive    *int                    `yaml:"min_positive"`
	StrongEvidence *int                    `yaml:"strong_evidence"`
}

// CategoryFile overrides one evidence category, keyed by its reason label.
type CategoryFile struct {
	Patterns []string `yaml:"patterns"`
	Weight   *int     `yaml:"weight"`
	Cap      *int     `yaml:"cap"`
}

// LoadRuleSet reads rule overrides from path. An empty path or a missing file
// yields the compiled-in rules.
func LoadRuleSet(path string, logger *slog.Logger) (*RuleSet, error) {
	rules := DefaultRuleSet()
	if path == "" {
		return rules, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("rule file not found, using built-in rules", slog.String("path", path))
			return rules, nil
		}
		return nil, err
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	if err := rules.apply(file); err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	logger.Info("violation rules loaded", slog.String("path", path), slog.Int("overridden_categories", len(file.Categories)))
	return rules, nil
}

func (r *RuleSet) apply(file RuleFile) error {
	var err error
	if len(file.Context) > 0 {
		if r.Context, err = compileAll(file.Context); err != nil {
			return fmt.Errorf("context: %w", err)
		}
	}
	if len(file.Negation) > 0 {
		if r.Negation, err = compileAll(file.Negation); err != nil {
			return fmt.Errorf("negation: %w", err)
		}
	}
	if file.MinPositive != nil {
		r.MinPositive = *file.MinPositive
	}
	if file.StrongEvidence != nil {
		r.StrongEvidence = *file.StrongEvidence
	}

	byReason := make(map[string]*Category)
	for _, c := range r.categories() {
		byReason[c.Reason] = c
	}
	for name, override := range file.Categories {
		target, ok := byReason[name]
		if !ok {
			return fmt.Errorf("unknown category %q", name)
		}
		if len(override.Patterns) > 0 {
			if target.Patterns, err = compileAll(override.Patterns); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		if override.Weight != nil {
			target.Weight = *override.Weight
		}
		if override.Cap != nil {
			target.Cap = *override.Cap
		}
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func mustCompileAll(patterns []string) []*regexp.Regexp {
	out, err := compileAll(patterns)
	if err != nil {
		panic(err)
	}
	return out
}
