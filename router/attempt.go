package router

import (
	"time"

	"github.com/istlunch/lunchpipe/strategy"
)

// Outcome classifies a single strategy attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeError   Outcome = "error"
)

// Attempt records one strategy execution against one restaurant. The run
// report keeps one attempt per strategy actually tried.
type Attempt struct {
	RestaurantID  string        `json:"restaurant_id"`
	Strategy      strategy.Kind `json:"strategy"`
	StartedAt     time.Time     `json:"started_at"`
	DurationMs    int64         `json:"duration_ms"`
	Outcome       Outcome       `json:"outcome"`
	ItemCount     int           `json:"item_count"`
	EstimatedCost float64       `json:"estimated_cost"`
	ErrorDetail   string        `json:"error_detail,omitempty"`
}

// Per-restaurant failure reasons surfaced in the run report.
const (
	ReasonNoItems          = "no-items-traditional-and-vision"
	ReasonVisionBudget     = "vision-budget-exhausted"
	ReasonExcluded         = "excluded-by-policy"
	ReasonNotScheduled     = "not-scheduled-today"
	ReasonExtractorError   = "extractor-error"
	ReasonDeadlineExceeded = "run-deadline-exceeded"
)
