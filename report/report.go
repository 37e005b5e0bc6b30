// Package report aggregates per-restaurant extraction results into the run
// report and persists the output snapshots.
package report

import (
	"time"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/router"
	"github.com/istlunch/lunchpipe/strategy"
)

// RestaurantReport bundles one restaurant's outcome for the run.
type RestaurantReport struct {
	Restaurant    registry.Restaurant `json:"restaurant"`
	Items         []menu.Item         `json:"items"`
	ItemCount     int                 `json:"item_count"`
	Method        menu.Method         `json:"method,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Attempts      []router.Attempt    `json:"attempts,omitempty"`
}

// StrategyCounts tallies invocations per strategy over the run.
type StrategyCounts struct {
	Traditional int `json:"traditional"`
	Vision      int `json:"vision"`
}

// RunReport is the aggregate output of one pipeline run. Immutable once
// built.
type RunReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Restaurants []RestaurantReport `json:"restaurants"`

	TotalRestaurants      int            `json:"total_restaurants"`
	RestaurantsAttempted  int            `json:"restaurants_attempted"`
	RestaurantsWithDishes int            `json:"restaurants_with_dishes"`
	TotalDishes           int            `json:"total_dishes"`
	SuccessRate           float64        `json:"success_rate"`
	EstimatedCost         float64        `json:"estimated_cost"`
	Invocations           StrategyCounts `json:"invocations"`
}

// Build assembles the run report from router results. Results arrive in
// stable snapshot order and are kept in that order.
func Build(runID string, generatedAt time.Time, results []router.Result) *RunReport {
	report := &RunReport{
		RunID:            runID,
		GeneratedAt:      generatedAt,
		TotalRestaurants: len(results),
		Restaurants:      make([]RestaurantReport, 0, len(results)),
	}

	for _, res := range results {
		report.Restaurants = append(report.Restaurants, RestaurantReport{
			Restaurant:    res.Restaurant,
			Items:         res.Items,
			ItemCount:     len(res.Items),
			Method:        res.Method,
			FailureReason: res.FailureReason,
			Attempts:      res.Attempts,
		})

		if res.Attempted() {
			report.RestaurantsAttempted++
		}
		if res.Succeeded() {
			report.RestaurantsWithDishes++
		}
		report.TotalDishes += len(res.Items)

		for _, attempt := range res.Attempts {
			report.EstimatedCost += attempt.EstimatedCost
			switch attempt.Strategy {
			case strategy.KindTraditional:
				report.Invocations.Traditional++
			case strategy.KindVision:
				report.Invocations.Vision++
			}
		}
	}

	if report.RestaurantsAttempted > 0 {
		report.SuccessRate = float64(report.RestaurantsWithDishes) / float64(report.RestaurantsAttempted)
	}

	return report
}

// Dishes returns the flat item list across all restaurants, in report
// order.
func (r *RunReport) Dishes() []menu.Item {
	var dishes []menu.Item
	for _, rest := range r.Restaurants {
		dishes = append(dishes, rest.Items...)
	}
	return dishes
}
