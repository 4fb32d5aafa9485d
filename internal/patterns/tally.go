package patterns

import (
	"sort"

	"github.com/miradorstack/mirador-classify/internal/models"
)

// Tally counts dictionary hits across annotated records. Records without a
// match annotation count as generic.
func Tally(records []models.Record) models.Counts {
	counts := models.Counts{
		Systems: make(map[string]int),
		Units:   make(map[string]int),
		Total:   len(records),
	}
	for _, rec := range records {
		if rec.Score != nil && rec.Score.Positive() {
			counts.Positives++
		}
		match := rec.Match
		if match == nil {
			counts.Generic++
			continue
		}
		switch match.Group {
		case models.GroupSystem:
			counts.Systems[match.Key]++
		case models.GroupUnit:
			counts.Units[match.Key]++
		case models.GroupFlag:
			counts.Flags++
		default:
			counts.Generic++
		}
	}
	return counts
}

// TopKeys returns up to limit keys ordered by descending count, ties broken
// by key. limit <= 0 returns every key.
func TopKeys(counts map[string]int, limit int) []models.KeyCount {
	out := make([]models.KeyCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, models.KeyCount{Key: key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
