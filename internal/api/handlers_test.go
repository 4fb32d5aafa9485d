package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-classify/internal/models"
)

func TestDecodeIngestRequest(t *testing.T) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"replace": true,
		"records": []interface{}{
			map[string]interface{}{
				"event_id":       "evt-1",
				"event_date":     "2024-03-01",
				"event_lat":      46.48,
				"message_text":   "Shahed over Odesa",
				"osint_entities": "Shahed, Odesa",
				"unknown_field":  "ignored",
			},
		},
	})
	require.NoError(t, err)

	var req IngestRequest
	require.NoError(t, Decode(in, &req))
	assert.True(t, req.Replace)
	require.Len(t, req.Records, 1)
	rec := req.Records[0]
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "Shahed over Odesa", rec.MessageText)
	require.NotNil(t, rec.Lat)
	assert.InDelta(t, 46.48, *rec.Lat, 1e-9)
	assert.Nil(t, rec.Lng)
	assert.Equal(t, []string{"Shahed", "Odesa"}, rec.EntityList())
}

func TestDecodeNilRequest(t *testing.T) {
	var req QueryRequest
	assert.Error(t, Decode(nil, &req))
}

func TestDecodeTypeMismatch(t *testing.T) {
	in, err := structpb.NewStruct(map[string]interface{}{"records": "not-a-list"})
	require.NoError(t, err)
	var req IngestRequest
	assert.ErrorContains(t, Decode(in, &req), "decode request")
}

func TestDecodeReloadRequestKeepsOrder(t *testing.T) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"systems": []interface{}{
			map[string]interface{}{"key": "Shahed", "pattern": `\bshahed\b`},
			map[string]interface{}{"key": "Lancet", "pattern": `lancet`},
		},
	})
	require.NoError(t, err)

	var req ReloadRequest
	require.NoError(t, Decode(in, &req))
	assert.True(t, req.Inline())
	require.Len(t, req.Systems, 2)
	assert.Equal(t, "Shahed", req.Systems[0].Key)
	assert.Equal(t, "Lancet", req.Systems[1].Key)
	assert.False(t, ReloadRequest{}.Inline())
}

func TestEncodeRecordsResponse(t *testing.T) {
	resp := RecordsResponse{
		SnapshotID: "snap-1",
		Total:      3,
		Records: []models.Record{{
			ID:    "evt-1",
			Match: &models.MatchResult{Key: "Shahed", Group: models.GroupSystem, Side: models.SideRU},
			Score: &models.ScoreResult{Tag: models.TagPositive, Score: 6, Reasons: []string{"explicit"}},
		}},
		Fallback: true,
	}

	out, err := Encode(resp)
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, "snap-1", fields["snapshot_id"].GetStringValue())
	assert.Equal(t, float64(3), fields["total"].GetNumberValue())
	assert.True(t, fields["fallback"].GetBoolValue())

	records := fields["records"].GetListValue().GetValues()
	require.Len(t, records, 1)
	rec := records[0].GetStructValue().GetFields()
	assert.Equal(t, "evt-1", rec["event_id"].GetStringValue())
	match := rec["match"].GetStructValue().GetFields()
	assert.Equal(t, "system", match["group"].GetStringValue())
	score := rec["score"].GetStructValue().GetFields()
	assert.Equal(t, "positive", score["tag"].GetStringValue())
}

func TestFilterRequestCriteria(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)

	criteria, err := FilterRequest{
		Query:      "shahed OR lancet",
		DatePreset: "last7days",
		Tier:       "Strong",
		Systems:    []string{"Shahed"},
	}.Criteria(now)
	require.NoError(t, err)
	assert.Equal(t, models.TierStrong, criteria.Tier)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), criteria.From)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), criteria.To)
	assert.Equal(t, []string{"Shahed"}, criteria.Systems)
	assert.Equal(t, "shahed OR lancet", criteria.Query)

	criteria, err = FilterRequest{DatePreset: "thisMonth", To: "2024-03-10"}.Criteria(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), criteria.From)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), criteria.To, "explicit bound overrides preset")
	assert.Equal(t, models.TierAll, criteria.Tier)
}

func TestFilterRequestCriteriaErrors(t *testing.T) {
	now := time.Now()
	cases := map[string]FilterRequest{
		"tier":     {Tier: "maybe"},
		"preset":   {DatePreset: "fortnight"},
		"from":     {From: "01/03/2024"},
		"reversed": {From: "2024-03-10", To: "2024-03-01"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := req.Criteria(now)
			assert.Error(t, err)
		})
	}
}

func TestTruncate(t *testing.T) {
	records := []models.Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, Truncate(records, 2), 2)
	assert.Len(t, Truncate(records, 0), 3)
	assert.Len(t, Truncate(records, 10), 3)
}
