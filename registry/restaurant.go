// Package registry holds the restaurant catalogue for a run: identity,
// update cadence, inclusion and exclusion policy, and strategy overrides.
// A registry snapshot is built once per run and is read-only afterwards.
package registry

import (
	"strings"
	"time"
)

// UpdateFrequency governs how often a restaurant's menu is re-extracted.
type UpdateFrequency string

const (
	// UpdateDaily menus change every day (dagens lunch boards).
	UpdateDaily UpdateFrequency = "daily"
	// UpdateWeekly menus are fixed for the week, refreshed on the update day.
	UpdateWeekly UpdateFrequency = "weekly"
	// UpdateStatic menus rarely change; re-checked weekly to catch
	// menu-format drift.
	UpdateStatic UpdateFrequency = "static"
)

// Strategy override values for Restaurant.ForcedStrategy.
const (
	ForceVision      = "vision"
	ForceTraditional = "traditional"
)

// Restaurant is one lunch source. Created by discovery or static
// configuration; never mutated during a run.
type Restaurant struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Website     string  `json:"website,omitempty" yaml:"website,omitempty"`
	Lat         float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
	WalkMinutes int     `json:"walk_minutes,omitempty" yaml:"walk_minutes,omitempty"`
	DistanceM   int     `json:"distance_m,omitempty" yaml:"distance_m,omitempty"`
	Rating      float64 `json:"rating,omitempty" yaml:"rating,omitempty"`

	// UpdateFrequency defaults to weekly when unset.
	UpdateFrequency UpdateFrequency `json:"update_frequency,omitempty" yaml:"update_frequency,omitempty"`

	// UpdateDay is the weekday for weekly/static refreshes ("monday"...).
	UpdateDay string `json:"update_day,omitempty" yaml:"update_day,omitempty"`

	// Priority orders restaurants in output and logs; lower is more
	// important. It has no effect on extraction correctness.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// ForcedStrategy, when set, bypasses adaptive strategy selection.
	ForcedStrategy string `json:"forced_strategy,omitempty" yaml:"forced_strategy,omitempty"`

	Excluded      bool   `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	ExcludeReason string `json:"exclude_reason,omitempty" yaml:"exclude_reason,omitempty"`
}

// Frequency returns the effective update frequency, defaulting to weekly.
func (r Restaurant) Frequency() UpdateFrequency {
	switch r.UpdateFrequency {
	case UpdateDaily, UpdateWeekly, UpdateStatic:
		return r.UpdateFrequency
	default:
		return UpdateWeekly
	}
}

// updateWeekday parses the configured update day, defaulting to Monday.
func (r Restaurant) updateWeekday() time.Weekday {
	switch strings.ToLower(strings.TrimSpace(r.UpdateDay)) {
	case "sunday":
		return time.Sunday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}

// slugReplacer folds Swedish characters and spaces the same way the
// discovery layer generates IDs, so config IDs and discovered IDs match.
var slugReplacer = strings.NewReplacer(
	" ", "-",
	"å", "a", "ä", "a", "ö", "o",
	"é", "e", "è", "e", "ü", "u",
)

// MakeID derives a stable slug from a restaurant name.
func MakeID(name string) string {
	slug := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	lastDash := false
	for _, ch := range slug {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
