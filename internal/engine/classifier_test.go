package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

func TestClassifierClassifyAll(t *testing.T) {
	dict := testDictionary(t)
	classifier := NewClassifier(discardLogger(), nil, 4)

	records := make([]models.Record, 0, 1000)
	for i := 0; i < 1000; i++ {
		text := "quiet day"
		if i%10 == 0 {
			text = "Shahed drone strike hit residential building, civilians killed"
		}
		records = append(records, models.Record{ID: fmt.Sprintf("r%04d", i), MessageText: text})
	}

	out, err := classifier.ClassifyAll(context.Background(), dict, records)
	require.NoError(t, err)
	require.Len(t, out, len(records))

	for i, rec := range out {
		require.Equal(t, records[i].ID, rec.ID, "order must be preserved")
		require.True(t, rec.Annotated())
		assert.Equal(t, dict.Version(), rec.Match.DictionaryVersion)
		if i%10 == 0 {
			assert.Equal(t, "Shahed", rec.Match.Key)
			assert.True(t, rec.Score.Positive())
		} else {
			assert.Equal(t, models.GroupNone, rec.Match.Group)
			assert.Equal(t, models.TagNone, rec.Score.Tag)
		}
		assert.Nil(t, records[i].Match, "input must not be annotated in place")
	}
}

func TestClassifierCancelled(t *testing.T) {
	classifier := NewClassifier(discardLogger(), nil, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := classifier.ClassifyAll(ctx, testDictionary(t), []models.Record{{ID: "a"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifierEmptyBatch(t *testing.T) {
	classifier := NewClassifier(nil, nil, 0)

	out, err := classifier.ClassifyAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestClassifierRematchKeepsScores(t *testing.T) {
	classifier := NewClassifier(discardLogger(), nil, 2)
	first := testDictionary(t)
	records := []models.Record{{ID: "a", MessageText: "Lancet strike on a tank"}}

	classified, err := classifier.ClassifyAll(context.Background(), first, records)
	require.NoError(t, err)
	require.Equal(t, "Lancet", classified[0].Match.Key)

	// Pretend the score came from an earlier pass; Rematch must keep it.
	classified[0].Score = &models.ScoreResult{Tag: models.TagNone, Score: 42}

	second := patterns.Load(discardLogger(), []patterns.Source{{Key: "Loitering", Pattern: `lancet|loitering`}}, nil)
	rematched, err := classifier.Rematch(context.Background(), second, classified)
	require.NoError(t, err)

	assert.Equal(t, "Loitering", rematched[0].Match.Key)
	assert.Equal(t, second.Version(), rematched[0].Match.DictionaryVersion)
	assert.Equal(t, 42, rematched[0].Score.Score)
	assert.Equal(t, "Lancet", classified[0].Match.Key)
}
