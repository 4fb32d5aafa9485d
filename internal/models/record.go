package models

import (
	"fmt"
	"strings"
)

// Record is a single incident report as delivered by the ingestion layer.
// Field values are never rewritten by the engine; Match and Score carry the
// derived annotations and stay nil until a batch pass attaches them.
type Record struct {
	ID             string   `json:"event_id"`
	Date           string   `json:"event_date,omitempty"`
	Name           string   `json:"event_name,omitempty"`
	Location       string   `json:"event_location,omitempty"`
	Lat            *float64 `json:"event_lat,omitempty"`
	Lng            *float64 `json:"event_lng,omitempty"`
	Description    string   `json:"event_description,omitempty"`
	MessageText    string   `json:"message_text,omitempty"`
	TranslatedText string   `json:"translated_text,omitempty"`
	MessageURL     string   `json:"message_url,omitempty"`
	MessageDate    string   `json:"message_date,omitempty"`
	Channel        string   `json:"channel_name,omitempty"`
	Entities       string   `json:"osint_entities,omitempty"`
	OSINTEvents    string   `json:"osint_events,omitempty"`
	Analysis       string   `json:"multimodal_analysis,omitempty"`

	Match *MatchResult `json:"match,omitempty"`
	Score *ScoreResult `json:"score,omitempty"`
}

// Annotated reports whether both derived annotations are attached.
func (r Record) Annotated() bool {
	return r.Match != nil && r.Score != nil
}

// EntityList splits the comma-separated entity annotation field.
func (r Record) EntityList() []string {
	if strings.TrimSpace(r.Entities) == "" {
		return nil
	}
	parts := strings.Split(r.Entities, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SearchText renders every text-bearing field as one string. It is the
// haystack for literal query terms.
func (r Record) SearchText() string {
	var sb strings.Builder
	fields := []string{
		r.ID, r.Date, r.Name, r.Location, r.Description, r.MessageText,
		r.TranslatedText, r.MessageURL, r.MessageDate, r.Channel, r.Entities,
		r.OSINTEvents, r.Analysis,
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	if r.Lat != nil && r.Lng != nil {
		fmt.Fprintf(&sb, "%g,%g\n", *r.Lat, *r.Lng)
	}
	return sb.String()
}

// AssignIDs fills missing identifiers in place and makes every identifier in
// records unique. A missing ID becomes the last path segment of the message
// URL when that segment is non-empty, otherwise a zero-padded positional ID.
// Later duplicates of an ID already seen get a "_<n>" suffix, so records
// earlier in the slice keep their identity.
func AssignIDs(records []Record) {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		id := records[i].ID
		if id == "" {
			id = derivedID(records[i].MessageURL, i)
		}
		records[i].ID = claimID(seen, id)
	}
}

func derivedID(url string, index int) string {
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return "msg_" + url[i+1:]
	}
	return fmt.Sprintf("event_%06d", index)
}

func claimID(seen map[string]struct{}, id string) string {
	candidate := id
	for n := 2; ; n++ {
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
}
