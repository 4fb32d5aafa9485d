package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

// IngestRequest is the IngestRecords payload.
type IngestRequest struct {
	Records []models.Record `json:"records"`
	Replace bool            `json:"replace,omitempty"`
}

// QueryRequest is the EvaluateQuery payload. With Fallback a malformed query
// is searched as a literal instead of being rejected.
type QueryRequest struct {
	Query    string `json:"query"`
	Fallback bool   `json:"fallback,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// FilterRequest is the ApplyFilters and GetCounts payload. DatePreset is
// resolved first; explicit From and To override its bounds.
type FilterRequest struct {
	Query      string   `json:"query,omitempty"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	DatePreset string   `json:"date_preset,omitempty"`
	Tier       string   `json:"tier,omitempty"`
	Systems    []string `json:"systems,omitempty"`
	Units      []string `json:"units,omitempty"`
	RecordIDs  []string `json:"record_ids,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// ReloadRequest is the ReloadPatterns payload. When neither group is present
// the dictionary is re-read from its configured source.
type ReloadRequest struct {
	Systems []patterns.Source `json:"systems,omitempty"`
	Units   []patterns.Source `json:"units,omitempty"`
}

// Inline reports whether the request carries its own dictionary.
func (r ReloadRequest) Inline() bool {
	return r.Systems != nil || r.Units != nil
}

// RecordsResponse answers IngestRecords, EvaluateQuery and ApplyFilters.
// Total counts every match; Records may be truncated by a request limit.
type RecordsResponse struct {
	SnapshotID        string          `json:"snapshot_id"`
	DictionaryVersion string          `json:"dictionary_version,omitempty"`
	Total             int             `json:"total"`
	Records           []models.Record `json:"records"`
	Fallback          bool            `json:"fallback,omitempty"`
	Cached            bool            `json:"cached,omitempty"`
}

// CountsResponse answers GetCounts.
type CountsResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	Counts     models.Counts     `json:"counts"`
	TopSystems []models.KeyCount `json:"top_systems"`
	TopUnits   []models.KeyCount `json:"top_units"`
}

// ReloadResponse answers ReloadPatterns.
type ReloadResponse struct {
	SnapshotID        string   `json:"snapshot_id"`
	DictionaryVersion string   `json:"dictionary_version"`
	Systems           int      `json:"systems"`
	Units             int      `json:"units"`
	Skipped           []string `json:"skipped,omitempty"`
}

// HealthResponse answers HealthCheck.
type HealthResponse struct {
	Status            string    `json:"status"`
	SnapshotID        string    `json:"snapshot_id"`
	DictionaryVersion string    `json:"dictionary_version"`
	Records           int       `json:"records"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Decode maps a Struct payload onto one of the request types.
func Decode(in *structpb.Struct, v any) error {
	if in == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// Encode converts a response value into a Struct payload.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// Criteria resolves the request into domain filter criteria relative to now.
func (r FilterRequest) Criteria(now time.Time) (models.FilterCriteria, error) {
	tier, err := models.ParseTier(strings.ToLower(strings.TrimSpace(r.Tier)))
	if err != nil {
		return models.FilterCriteria{}, err
	}
	from, to, err := utils.ResolveDatePreset(strings.TrimSpace(r.DatePreset), now)
	if err != nil {
		return models.FilterCriteria{}, err
	}
	if strings.TrimSpace(r.From) != "" {
		if from, err = utils.ParseDate(r.From); err != nil {
			return models.FilterCriteria{}, fmt.Errorf("from: %w", err)
		}
	}
	if strings.TrimSpace(r.To) != "" {
		if to, err = utils.ParseDate(r.To); err != nil {
			return models.FilterCriteria{}, fmt.Errorf("to: %w", err)
		}
	}

	criteria := models.FilterCriteria{
		Query:     r.Query,
		From:      from,
		To:        to,
		Tier:      tier,
		Systems:   append([]string(nil), r.Systems...),
		Units:     append([]string(nil), r.Units...),
		RecordIDs: append([]string(nil), r.RecordIDs...),
		Locations: append([]string(nil), r.Locations...),
		Entities:  append([]string(nil), r.Entities...),
	}
	if err := criteria.Validate(); err != nil {
		return models.FilterCriteria{}, err
	}
	return criteria, nil
}

// Truncate applies a response limit; limit <= 0 keeps every record.
func Truncate(records []models.Record, limit int) []models.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
