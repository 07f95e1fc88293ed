// Package models defines the domain types for Minne.
package models

import (
	"fmt"
	"time"
)

// Granularity is the coarseness of a timed note's timestamp display.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityHour, GranularityDay, GranularityMonth:
		return true
	}
	return false
}

// Note is a single user note. A note is either timed (non-nil
// StartTimestamp and Granularity) or timeless (both nil); timeless notes
// serve as always-available chat context.
type Note struct {
	ID             int64          `json:"id"`
	Owner          string         `json:"-"`
	Content        string         `json:"content"`
	StartTimestamp *time.Time     `json:"startTimestamp"`
	EndTimestamp   *time.Time     `json:"endTimestamp"`
	Granularity    *Granularity   `json:"granularity"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Attachments    []string       `json:"attachments"`
	TopicID        *int64         `json:"topicId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Timed reports whether the note carries a timestamp.
func (n *Note) Timed() bool {
	return n.StartTimestamp != nil
}

// ValidateShape enforces the timed/timeless invariant and the metadata
// value types (string, number, bool).
func (n *Note) ValidateShape() error {
	timed := n.StartTimestamp != nil
	hasGranularity := n.Granularity != nil
	if timed != hasGranularity {
		return fmt.Errorf("note: startTimestamp and granularity must be set together")
	}
	if !timed && n.EndTimestamp != nil {
		return fmt.Errorf("note: endTimestamp requires startTimestamp")
	}
	if timed && !n.Granularity.Valid() {
		return fmt.Errorf("note: invalid granularity %q", *n.Granularity)
	}
	if n.EndTimestamp != nil && n.EndTimestamp.Before(*n.StartTimestamp) {
		return fmt.Errorf("note: endTimestamp precedes startTimestamp")
	}
	for k, v := range n.Metadata {
		switch v.(type) {
		case string, bool, float64, int, int64:
		default:
			return fmt.Errorf("note: metadata value for %q must be string, number or boolean", k)
		}
	}
	return nil
}

// Topic is a named, colored grouping of notes, unique per owner by name.
type Topic struct {
	ID    int64  `json:"id"`
	Owner string `json:"-"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// UserSummary is the rolling free-text summary of one owner's notes.
type UserSummary struct {
	Owner     string    `json:"-"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}
