// Package types provides shared type definitions used across fruity packages.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in CSV files.
const DateLayout = "2006-01-02"

// DefaultRegion is the region applied to entries that carry no userRegion.
const DefaultRegion = "Quebec"

// =============================================================================
// LOG ENTRIES
// =============================================================================

// LogID is the backend-assigned identifier of a log entry. It is opaque to the
// client: the backend currently hands out integers, but strings are accepted.
type LogID string

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (id *LogID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid log id: %w", err)
		}
		*id = LogID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid log id %s: %w", string(data), err)
	}
	*id = LogID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so the backend sees what it issued.
func (id LogID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id LogID) String() string { return string(id) }

// LogEntry is one rated fruit purchase as stored by the backend.
type LogEntry struct {
	ID         LogID  `json:"id"`
	Fruit      string `json:"fruit"`
	Origin     string `json:"origin,omitempty"`
	Store      string `json:"store,omitempty"`
	Rating     int    `json:"rating"`
	Date       string `json:"date"`
	UserRegion string `json:"userRegion,omitempty"`

	// DateObj is derived from Date on every fetch and never sent to the backend.
	DateObj time.Time `json:"-"`
}

// Hydrate recomputes the derived fields. An unparseable date leaves DateObj zero.
func (e *LogEntry) Hydrate() {
	t, err := ParseDate(e.Date)
	if err != nil {
		e.DateObj = time.Time{}
		return
	}
	e.DateObj = t
}

// HasDate reports whether the entry carries a valid calendar date.
func (e LogEntry) HasDate() bool {
	return !e.DateObj.IsZero()
}

// RegionOr returns the entry's region, or fallback when it has none.
func (e LogEntry) RegionOr(fallback string) string {
	if r := strings.TrimSpace(e.UserRegion); r != "" {
		return r
	}
	return fallback
}

// HydrateAll recomputes derived fields for every entry in place.
func HydrateAll(entries []LogEntry) []LogEntry {
	for i := range entries {
		entries[i].Hydrate()
	}
	return entries
}

// ParseDate parses a strict ISO calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// =============================================================================
// NEW ENTRIES (POST BODY)
// =============================================================================

// NewLogEntry is the body sent to create a log entry.
type NewLogEntry struct {
	Fruit      string `json:"fruit"`
	Origin     string `json:"origin"`
	Store      string `json:"store,omitempty"`
	Rating     int    `json:"rating"`
	Date       string `json:"date"`
	UserRegion string `json:"userRegion"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidationError reports input rejected locally, before anything reaches the network.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the shape of the entry. Catalog membership is checked by the caller.
func (n NewLogEntry) Validate() error {
	if strings.TrimSpace(n.Fruit) == "" {
		return &ValidationError{Field: "fruit", Reason: "required"}
	}
	if n.Rating < MinRating || n.Rating > MaxRating {
		return &ValidationError{Field: "rating", Value: strconv.Itoa(n.Rating), Reason: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}
	}
	if _, err := ParseDate(n.Date); err != nil {
		return &ValidationError{Field: "date", Value: n.Date, Reason: "must be YYYY-MM-DD", Err: err}
	}
	return nil
}

// Normalize trims free-text fields and fills the date and region defaults.
func (n NewLogEntry) Normalize(today time.Time, region string) NewLogEntry {
	n.Fruit = strings.TrimSpace(n.Fruit)
	n.Origin = strings.TrimSpace(n.Origin)
	n.Store = strings.TrimSpace(n.Store)
	n.Date = strings.TrimSpace(n.Date)
	if n.Date == "" {
		n.Date = FormatDate(today)
	}
	n.UserRegion = strings.TrimSpace(n.UserRegion)
	if n.UserRegion == "" {
		n.UserRegion = region
	}
	return n
}
