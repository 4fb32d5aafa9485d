package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDictionary(t *testing.T) *patterns.Dictionary {
	t.Helper()
	dict := patterns.Load(discardLogger(),
		[]patterns.Source{
			{Key: "Shahed", Pattern: `\b(shahed|geran-2)\b`},
			{Key: "Lancet", Pattern: `\blancet\b`},
			{Key: "Iskander", Pattern: `\biskander`},
		},
		[]patterns.Source{
			{Key: "74th Brigade", Pattern: `\b74(th)?\s+(separate\s+)?(motori[sz]ed\s+)?(rifle\s+)?brigade`},
			{Key: "Azov", Pattern: `\bazov\b`},
		},
	)
	require.Equal(t, 5, dict.Len())
	return dict
}

func TestEntityMatcherShahedScenario(t *testing.T) {
	dict := testDictionary(t)
	matcher := NewEntityMatcher(dict)

	rec := models.Record{ID: "1", Description: "Shahed drone strike hit residential building, civilians killed"}
	got := matcher.Match(rec)

	assert.Equal(t, models.MatchResult{
		Key:               "Shahed",
		Group:             models.GroupSystem,
		Side:              models.SideUnknown,
		DictionaryVersion: dict.Version(),
	}, got)
}

func TestEntityMatcherDeclarationOrderWins(t *testing.T) {
	dict := patterns.Load(discardLogger(), []patterns.Source{
		{Key: "Geran", Pattern: `geran|shahed`},
		{Key: "Shahed", Pattern: `shahed`},
	}, nil)
	matcher := NewEntityMatcher(dict)

	got := matcher.Match(models.Record{MessageText: "A Shahed was shot down"})
	assert.Equal(t, "Geran", got.Key)
	assert.Equal(t, models.GroupSystem, got.Group)
}

func TestEntityMatcherSystemsBeforeUnits(t *testing.T) {
	matcher := NewEntityMatcher(testDictionary(t))

	got := matcher.Match(models.Record{TranslatedText: "The Azov unit reported a Lancet strike"})
	assert.Equal(t, "Lancet", got.Key)
	assert.Equal(t, models.GroupSystem, got.Group)

	got = matcher.Match(models.Record{TranslatedText: "Soldiers of the 74th separate motorized rifle brigade"})
	assert.Equal(t, "74th Brigade", got.Key)
	assert.Equal(t, models.GroupUnit, got.Group)
}

func TestEntityMatcherSideFlags(t *testing.T) {
	matcher := NewEntityMatcher(testDictionary(t))

	cases := []struct {
		name  string
		text  string
		group models.Group
		side  models.Side
	}{
		{name: "russian only", text: "Russian forces advanced overnight", group: models.GroupFlag, side: models.SideRU},
		{name: "ukrainian only", text: "Ukrainian defenders held the line", group: models.GroupFlag, side: models.SideUA},
		{name: "cyrillic", text: "позиции ЗСУ под обстрелом", group: models.GroupFlag, side: models.SideUA},
		{name: "both sides", text: "Ukrainian and Russian delegations met", group: models.GroupNone, side: models.SideUnknown},
		{name: "neither", text: "Weather was calm", group: models.GroupNone, side: models.SideUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matcher.Match(models.Record{MessageText: tc.text})
			assert.Empty(t, got.Key)
			assert.Equal(t, tc.group, got.Group)
			assert.Equal(t, tc.side, got.Side)
		})
	}
}

func TestEntityMatcherAttachesSideToKeyedMatch(t *testing.T) {
	matcher := NewEntityMatcher(testDictionary(t))

	got := matcher.Match(models.Record{Entities: "Iskander-M", Description: "Russian launch from Belgorod"})
	assert.Equal(t, "Iskander", got.Key)
	assert.Equal(t, models.SideRU, got.Side)
}

func TestEntityMatcherEmptyInputs(t *testing.T) {
	dict := testDictionary(t)

	got := NewEntityMatcher(dict).Match(models.Record{ID: "x", Location: "Kharkiv"})
	assert.Equal(t, models.MatchResult{Group: models.GroupNone, Side: models.SideUnknown, DictionaryVersion: dict.Version()}, got)

	got = NewEntityMatcher(nil).Match(models.Record{MessageText: "Shahed over Kyiv"})
	assert.Equal(t, models.GroupNone, got.Group)

	got = NewEntityMatcher(patterns.Empty()).Match(models.Record{MessageText: "Russian Shahed over Kyiv"})
	assert.Equal(t, models.GroupFlag, got.Group)
}

func TestEntityMatcherDeterministic(t *testing.T) {
	matcher := NewEntityMatcher(testDictionary(t))
	rec := models.Record{MessageText: "Geran-2 drones launched by Russian forces"}

	first := matcher.Match(rec)
	for i := 0; i < 10; i++ {
		if got := matcher.Match(rec); got != first {
			t.Fatalf("match %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestPrecomputeAllLeavesInputUntouched(t *testing.T) {
	matcher := NewEntityMatcher(testDictionary(t))
	records := []models.Record{
		{ID: "a", MessageText: "Lancet hit a tank"},
		{ID: "b", MessageText: "nothing to see"},
	}

	out := matcher.PrecomputeAll(records)

	require.Len(t, out, 2)
	assert.Nil(t, records[0].Match)
	require.NotNil(t, out[0].Match)
	assert.Equal(t, "Lancet", out[0].Match.Key)
	assert.Equal(t, models.GroupNone, out[1].Match.Group)
}
