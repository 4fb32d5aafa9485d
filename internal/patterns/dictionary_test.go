package patterns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-classify/internal/models"
)

func TestLoadSkipsBadEntries(t *testing.T) {
	dict := Load(discardLogger(),
		[]Source{
			{Key: "Shahed", Pattern: `\bshahed\b`},
			{Key: "Broken", Pattern: `(unclosed`},
			{Key: "Shahed", Pattern: `geran`},
			{Key: "  ", Pattern: `anything`},
			{Key: "Blank", Pattern: "   "},
		},
		[]Source{{Key: "Azov", Pattern: `\bazov\b`}},
	)

	require.Equal(t, 2, dict.Len())
	assert.Equal(t, "Shahed", dict.Systems()[0].Key)
	assert.Equal(t, `\bshahed\b`, dict.Systems()[0].Pattern)
	assert.Equal(t, models.GroupUnit, dict.Units()[0].Group)

	skipped := dict.Skipped()
	require.Len(t, skipped, 4)
	assert.True(t, errors.Is(skipped[0].Err, ErrInvalidPattern))
	assert.True(t, errors.Is(skipped[1].Err, ErrDuplicateKey))
	assert.True(t, errors.Is(skipped[2].Err, ErrEmptyKey))
	assert.True(t, errors.Is(skipped[3].Err, ErrInvalidPattern))
	assert.Contains(t, skipped[1].String(), "system/Shahed")
}

func TestFirstMatchHonoursDeclarationOrder(t *testing.T) {
	dict := Load(discardLogger(), []Source{
		{Key: "Geran", Pattern: `geran`},
		{Key: "Shahed", Pattern: `shahed|geran`},
	}, nil)

	entry, ok := dict.FirstMatch(models.GroupSystem, "a GERAN-2 was downed")
	require.True(t, ok)
	assert.Equal(t, "Geran", entry.Key)

	entry, ok = dict.FirstMatch(models.GroupSystem, "shahed wreckage")
	require.True(t, ok)
	assert.Equal(t, "Shahed", entry.Key)

	_, ok = dict.FirstMatch(models.GroupUnit, "shahed wreckage")
	assert.False(t, ok)
}

func TestDictionaryNilSafe(t *testing.T) {
	var dict *Dictionary
	assert.Equal(t, 0, dict.Len())
	assert.Empty(t, dict.Version())
	assert.Nil(t, dict.Systems())
	_, ok := dict.FirstMatch(models.GroupSystem, "anything")
	assert.False(t, ok)
}

func TestLoadAssignsFreshVersion(t *testing.T) {
	a := Load(discardLogger(), nil, nil)
	b := Load(discardLogger(), nil, nil)
	assert.NotEmpty(t, a.Version())
	assert.NotEqual(t, a.Version(), b.Version())
	assert.False(t, a.LoadedAt().IsZero())
	assert.Equal(t, 0, Empty().Len())
}
