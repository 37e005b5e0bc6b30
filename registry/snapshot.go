package registry

import (
	"log/slog"
	"sort"
	"time"
)

// Policy is the static inclusion and override configuration applied when
// building a snapshot.
type Policy struct {
	// Include lists restaurant IDs that are always eligible even when
	// discovery omits or disqualifies them.
	Include []string `yaml:"include"`

	// Exclude lists restaurant IDs that are never eligible. Exclusion wins
	// over inclusion when both name the same ID.
	Exclude []string `yaml:"exclude"`

	// ProblemSites lists IDs of known JavaScript-rendered sites where the
	// cheap strategy never yields usable HTML; they go straight to vision.
	ProblemSites []string `yaml:"problem_sites"`

	// Overrides carries per-restaurant cadence and priority settings keyed
	// by ID, merged onto discovered restaurants.
	Overrides map[string]Override `yaml:"overrides"`
}

// Override adjusts a discovered restaurant's scheduling policy.
type Override struct {
	UpdateFrequency UpdateFrequency `yaml:"update_frequency,omitempty"`
	UpdateDay       string          `yaml:"update_day,omitempty"`
	Priority        int             `yaml:"priority,omitempty"`
	ForcedStrategy  string          `yaml:"forced_strategy,omitempty"`
}

// Snapshot is the immutable per-run view of the registry. It is built once
// from discovery output plus policy and passed explicitly to the router, so
// eligibility is a pure function of (restaurant, snapshot, date).
type Snapshot struct {
	restaurants  []Restaurant
	include      map[string]bool
	exclude      map[string]bool
	problemSites map[string]bool
}

// NewSnapshot merges policy into the candidate list and freezes the result.
// Restaurants are ordered by priority then ID for reproducible output.
// An ID present in both include and exclude lists is treated as excluded
// and logged as a configuration warning.
func NewSnapshot(candidates []Restaurant, policy Policy, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Snapshot{
		include:      make(map[string]bool, len(policy.Include)),
		exclude:      make(map[string]bool, len(policy.Exclude)),
		problemSites: make(map[string]bool, len(policy.ProblemSites)),
	}
	for _, id := range policy.Include {
		s.include[id] = true
	}
	for _, id := range policy.Exclude {
		s.exclude[id] = true
	}
	for _, id := range policy.ProblemSites {
		s.problemSites[id] = true
	}

	for id := range s.include {
		if s.exclude[id] {
			logger.Warn("restaurant in both include and exclude lists, exclusion wins",
				"restaurant_id", id)
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, r := range candidates {
		if r.ID == "" {
			r.ID = MakeID(r.Name)
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		if ov, ok := policy.Overrides[r.ID]; ok {
			if ov.UpdateFrequency != "" {
				r.UpdateFrequency = ov.UpdateFrequency
			}
			if ov.UpdateDay != "" {
				r.UpdateDay = ov.UpdateDay
			}
			if ov.Priority != 0 {
				r.Priority = ov.Priority
			}
			if ov.ForcedStrategy != "" {
				r.ForcedStrategy = ov.ForcedStrategy
			}
		}
		if r.Priority == 0 {
			r.Priority = 3
		}
		if s.exclude[r.ID] && !r.Excluded {
			r.Excluded = true
			r.ExcludeReason = "excluded by configuration"
		}

		s.restaurants = append(s.restaurants, r)
	}

	sort.Slice(s.restaurants, func(i, j int) bool {
		a, b := s.restaurants[i], s.restaurants[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	return s
}

// Restaurants returns the ordered restaurant list. Callers must not mutate
// the returned slice.
func (s *Snapshot) Restaurants() []Restaurant {
	return s.restaurants
}

// Len returns the number of restaurants in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.restaurants)
}

// IsProblemSite reports whether the restaurant is pre-flagged to skip the
// traditional strategy entirely.
func (s *Snapshot) IsProblemSite(id string) bool {
	return s.problemSites[id]
}

// IsIncluded reports whether the restaurant is force-included by policy.
func (s *Snapshot) IsIncluded(id string) bool {
	return s.include[id] && !s.exclude[id]
}

// ShouldUpdateToday decides whether a restaurant is eligible for extraction
// on the given date. Excluded restaurants are never eligible. Daily
// restaurants always are; weekly and static ones only on their configured
// update day (static is treated as weekly verification to catch
// menu-format drift).
func (s *Snapshot) ShouldUpdateToday(r Restaurant, today time.Time) bool {
	if r.Excluded || s.exclude[r.ID] {
		return false
	}

	switch r.Frequency() {
	case UpdateDaily:
		return true
	case UpdateWeekly, UpdateStatic:
		return today.Weekday() == r.updateWeekday()
	default:
		return today.Weekday() == time.Monday
	}
}
