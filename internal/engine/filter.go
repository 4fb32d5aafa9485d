package engine

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/mirador-classify/internal/metrics"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

// FilterPipeline narrows an annotated record set by a caller's criteria.
type FilterPipeline struct {
	logger *slog.Logger
}

// NewFilterPipeline constructs a pipeline.
func NewFilterPipeline(logger *slog.Logger) *FilterPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterPipeline{logger: logger}
}

// Apply returns the records passing every active criterion, in input order.
// The query runs first; a malformed query is retried as a literal search
// rather than failing the call. Only invalid criteria return an error.
func (p *FilterPipeline) Apply(criteria models.FilterCriteria, records []models.Record) ([]models.Record, error) {
	if err := criteria.Validate(); err != nil {
		return nil, utils.InvalidError("engine.FilterPipeline.Apply", "invalid criteria", err)
	}
	start := time.Now()
	defer func() { metrics.ObserveFilter(time.Since(start)) }()

	candidates := records
	if strings.TrimSpace(criteria.Query) != "" {
		var err error
		candidates, err = EvaluateOrLiteral(criteria.Query, records)
		switch {
		case errors.Is(err, ErrMalformedQuery):
			p.logger.Warn("malformed query, searching as literal",
				slog.String("query", criteria.Query),
				slog.Any("error", err))
			metrics.ObserveQuery(metrics.OutcomeFallback)
		case err != nil:
			metrics.ObserveQuery(metrics.OutcomeError)
		default:
			metrics.ObserveQuery(metrics.OutcomeSuccess)
		}
	}

	pred := newPredicate(criteria)
	out := make([]models.Record, 0, len(candidates))
	for _, rec := range candidates {
		if pred.pass(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// predicate is the flat per-record conjunction of every non-query criterion.
type predicate struct {
	from, to  time.Time
	tier      models.Tier
	systems   map[string]struct{}
	units     map[string]struct{}
	ids       map[string]struct{}
	locations map[string]struct{}
	entities  map[string]struct{}
}

func newPredicate(c models.FilterCriteria) predicate {
	tier := c.Tier
	if tier == "" {
		tier = models.TierAll
	}
	return predicate{
		from:      c.From,
		to:        c.To,
		tier:      tier,
		systems:   toSet(c.Systems),
		units:     toSet(c.Units),
		ids:       toSet(c.RecordIDs),
		locations: toSet(c.Locations),
		entities:  toSet(c.Entities),
	}
}

func (p predicate) pass(rec models.Record) bool {
	return p.passDate(rec) &&
		p.passTier(rec) &&
		p.passEntity(rec) &&
		inSet(p.ids, rec.ID) &&
		inSet(p.locations, rec.Location) &&
		p.passEntities(rec)
}

func (p predicate) passDate(rec models.Record) bool {
	if p.from.IsZero() && p.to.IsZero() {
		return true
	}
	day, err := utils.ParseDate(rec.Date)
	if err != nil {
		return false
	}
	return utils.InDateRange(day, p.from, p.to)
}

func (p predicate) passTier(rec models.Record) bool {
	switch p.tier {
	case models.TierLikely:
		return rec.Score != nil && rec.Score.Positive()
	case models.TierStrong:
		return rec.Score != nil && rec.Score.Score >= models.StrongScore
	default:
		return true
	}
}

// passEntity applies system and unit selections as a union: with both active
// a record passes when either its system or its unit is selected.
func (p predicate) passEntity(rec models.Record) bool {
	if p.systems == nil && p.units == nil {
		return true
	}
	if rec.Match == nil {
		return false
	}
	switch rec.Match.Group {
	case models.GroupSystem:
		return p.systems != nil && inSet(p.systems, rec.Match.Key)
	case models.GroupUnit:
		return p.units != nil && inSet(p.units, rec.Match.Key)
	default:
		return false
	}
}

func (p predicate) passEntities(rec models.Record) bool {
	if p.entities == nil {
		return true
	}
	for _, e := range rec.EntityList() {
		if _, ok := p.entities[e]; ok {
			return true
		}
	}
	return false
}

// toSet returns nil for an empty selection so "not constrained" is distinct
// from "nothing selected".
func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inSet reports membership; a nil set admits everything.
func inSet(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[value]
	return ok
}
