package patterns

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/miradorstack/mirador-classify/internal/models"
)

func TestTally(t *testing.T) {
	positive := &models.ScoreResult{Tag: models.TagPositive, Score: 4}
	records := []models.Record{
		{ID: "1", Match: &models.MatchResult{Key: "Shahed", Group: models.GroupSystem}, Score: positive},
		{ID: "2", Match: &models.MatchResult{Key: "Shahed", Group: models.GroupSystem}},
		{ID: "3", Match: &models.MatchResult{Key: "Azov", Group: models.GroupUnit}},
		{ID: "4", Match: &models.MatchResult{Group: models.GroupFlag, Side: models.SideUA}, Score: positive},
		{ID: "5", Match: &models.MatchResult{Group: models.GroupNone}},
		{ID: "6"},
	}

	want := models.Counts{
		Systems:   map[string]int{"Shahed": 2},
		Units:     map[string]int{"Azov": 1},
		Flags:     1,
		Generic:   2,
		Positives: 2,
		Total:     6,
	}
	if diff := cmp.Diff(want, Tally(records)); diff != "" {
		t.Fatalf("Tally mismatch (-want +got):\n%s", diff)
	}
}

func TestTopKeys(t *testing.T) {
	counts := map[string]int{"Lancet": 3, "Shahed": 5, "Grad": 3, "Kalibr": 1}

	got := TopKeys(counts, 3)
	want := []models.KeyCount{{Key: "Shahed", Count: 5}, {Key: "Grad", Count: 3}, {Key: "Lancet", Count: 3}}
	assert.Equal(t, want, got)
	assert.Len(t, TopKeys(counts, 0), 4)
	assert.Empty(t, TopKeys(nil, 5))
}
