package models

// Group identifies which dictionary partition produced a match.
type Group string

const (
	GroupSystem Group = "system"
	GroupUnit   Group = "unit"
	GroupFlag   Group = "flag"
	GroupNone   Group = "none"
)

// Side is the belligerent a record is attributed to.
type Side string

const (
	SideUA      Side = "ua"
	SideRU      Side = "ru"
	SideUnknown Side = "unk"
)

// MatchResult is the entity annotation attached to a record.
type MatchResult struct {
	Key               string `json:"key,omitempty"`
	Group             Group  `json:"group"`
	Side              Side   `json:"side"`
	DictionaryVersion string `json:"dictionary_version,omitempty"`
}

// HasKey reports whether a system or unit entry matched.
func (m MatchResult) HasKey() bool {
	return m.Key != "" && (m.Group == GroupSystem || m.Group == GroupUnit)
}

// Tag is the violation classification outcome.
type Tag string

const (
	TagPositive Tag = "positive"
	TagNone     Tag = "none"
)

// ScoreResult is the violation annotation attached to a record.
type ScoreResult struct {
	Tag     Tag      `json:"tag"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Positive reports whether the record was classified as a likely violation.
func (s ScoreResult) Positive() bool {
	return s.Tag == TagPositive
}

// Bucket is a coarse score range used for display tiering.
type Bucket string

const (
	BucketNone   Bucket = "none"
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// BucketFor maps a numeric score onto its range.
func BucketFor(score int) Bucket {
	switch {
	case score >= 6:
		return BucketHigh
	case score >= 3:
		return BucketMedium
	case score >= 1:
		return BucketLow
	default:
		return BucketNone
	}
}
