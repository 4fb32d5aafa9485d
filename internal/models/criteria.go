package models

import (
	"fmt"
	"time"
)

// Tier is the score-threshold filter. Values are mutually exclusive.
type Tier string

const (
	TierAll    Tier = "all"
	TierLikely Tier = "likely"
	TierStrong Tier = "strong"
)

// StrongScore is the minimum score for the strong tier.
const StrongScore = 4

// ParseTier accepts the wire spelling of a tier; empty means TierAll.
func ParseTier(value string) (Tier, error) {
	switch Tier(value) {
	case "", TierAll:
		return TierAll, nil
	case TierLikely, TierStrong:
		return Tier(value), nil
	default:
		return "", fmt.Errorf("unknown tier %q", value)
	}
}

// FilterCriteria is one caller's filter selection. A zero value passes every
// record; each populated field constrains one dimension.
type FilterCriteria struct {
	Query     string
	From      time.Time
	To        time.Time
	Tier      Tier
	Systems   []string
	Units     []string
	RecordIDs []string
	Locations []string
	Entities  []string
}

// Validate checks cross-field consistency.
func (c FilterCriteria) Validate() error {
	if _, err := ParseTier(string(c.Tier)); err != nil {
		return err
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.From.After(c.To) {
		return fmt.Errorf("date range start %s is after end %s", c.From.Format(time.DateOnly), c.To.Format(time.DateOnly))
	}
	return nil
}

// Counts summarises dictionary hits across a record set.
type Counts struct {
	Systems   map[string]int `json:"systems"`
	Units     map[string]int `json:"units"`
	Flags     int            `json:"flags"`
	Generic   int            `json:"generic"`
	Positives int            `json:"positives"`
	Total     int            `json:"total"`
}

// KeyCount pairs a dictionary key with its hit count.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
