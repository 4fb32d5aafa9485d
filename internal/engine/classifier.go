package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-classify/internal/metrics"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

const shardSize = 256

// Classifier runs the entity matcher and violation scorer over record
// batches, sharding the work across a bounded set of goroutines.
type Classifier struct {
	logger  *slog.Logger
	scorer  *Scorer
	workers int
}

// NewClassifier constructs a classifier. workers <= 0 uses GOMAXPROCS.
func NewClassifier(logger *slog.Logger, scorer *Scorer, workers int) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Classifier{logger: logger, scorer: scorer, workers: workers}
}

// ClassifyAll returns copies of records carrying fresh match and score
// annotations. Input records are left untouched; on cancellation the partial
// batch is discarded.
func (c *Classifier) ClassifyAll(ctx context.Context, dict *patterns.Dictionary, records []models.Record) ([]models.Record, error) {
	matcher := NewEntityMatcher(dict)
	out, err := c.run(ctx, records, func(rec models.Record) models.Record {
		match := matcher.Match(rec)
		score := c.scorer.Score(rec)
		rec.Match = &match
		rec.Score = &score
		return rec
	})
	if err != nil {
		return nil, err
	}
	c.logSummary("records classified", dict, out)
	return out, nil
}

// Rematch recomputes only the match annotation against dict, keeping
// existing scores. Records never scored are scored as well.
func (c *Classifier) Rematch(ctx context.Context, dict *patterns.Dictionary, records []models.Record) ([]models.Record, error) {
	matcher := NewEntityMatcher(dict)
	out, err := c.run(ctx, records, func(rec models.Record) models.Record {
		match := matcher.Match(rec)
		rec.Match = &match
		if rec.Score == nil {
			score := c.scorer.Score(rec)
			rec.Score = &score
		}
		return rec
	})
	if err != nil {
		return nil, err
	}
	c.logSummary("records rematched", dict, out)
	return out, nil
}

func (c *Classifier) run(ctx context.Context, records []models.Record, annotate func(models.Record) models.Record) ([]models.Record, error) {
	start := time.Now()
	out := make([]models.Record, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for lo := 0; lo < len(records); lo += shardSize {
		hi := min(lo+shardSize, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = annotate(records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify %d records: %w", len(records), err)
	}

	for _, rec := range out {
		metrics.ObserveMatch(string(rec.Match.Group))
		metrics.ObserveScore(string(rec.Score.Tag))
	}
	metrics.ObserveClassification(time.Since(start))
	return out, nil
}

func (c *Classifier) logSummary(msg string, dict *patterns.Dictionary, records []models.Record) {
	counts := patterns.Tally(records)
	attrs := []any{
		slog.String("dictionary_version", dict.Version()),
		slog.Int("total", counts.Total),
		slog.Int("systems", sum(counts.Systems)),
		slog.Int("units", sum(counts.Units)),
		slog.Int("flags", counts.Flags),
		slog.Int("generic", counts.Generic),
		slog.Int("positives", counts.Positives),
	}
	if top := patterns.TopKeys(counts.Systems, 3); len(top) > 0 {
		attrs = append(attrs, slog.Any("top_systems", top))
	}
	c.logger.Info(msg, attrs...)
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
