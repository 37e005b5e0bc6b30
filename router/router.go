// Package router is the decision engine of the pipeline: per restaurant it
// selects a strategy order, detects failure, escalates from the cheap
// strategy to the expensive one under a budget, and collects attempt
// history. Restaurants are independent units of work processed by a bounded
// worker pool; the only shared mutable state is the vision budget counter.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/metrics"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/strategy"
)

// Config bounds a router run.
type Config struct {
	// Concurrency is the number of restaurants evaluated in parallel.
	Concurrency int `yaml:"concurrency"`

	// MaxVision caps vision invocations per run, independent of
	// concurrency. Restaurants needing vision after the budget is spent
	// are reported as failed, not silently skipped.
	MaxVision int `yaml:"max_vision"`

	// MinItemsForSuccess is the escalation threshold: a traditional result
	// below it is treated as a failure, because a partial extraction is
	// indistinguishable from a parse failure on a JavaScript shell.
	MinItemsForSuccess int `yaml:"min_items_for_success"`

	// RunDeadline bounds the whole run. Restaurants not yet evaluated at
	// the deadline are recorded as failed.
	RunDeadline time.Duration `yaml:"run_deadline"`

	// TraditionalCost and VisionCost are the per-invocation unit costs used
	// for the run's cost estimate.
	TraditionalCost float64 `yaml:"traditional_cost"`
	VisionCost      float64 `yaml:"vision_cost"`
}

// DefaultConfig returns the standard run bounds.
func DefaultConfig() Config {
	return Config{
		Concurrency:        6,
		MaxVision:          6,
		MinItemsForSuccess: 3,
		RunDeadline:        6 * time.Minute,
		TraditionalCost:    0.002,
		VisionCost:         0.10,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MaxVision < 0 {
		return fmt.Errorf("max vision budget must not be negative, got %d", c.MaxVision)
	}
	if c.MinItemsForSuccess <= 0 {
		return fmt.Errorf("min items for success must be positive, got %d", c.MinItemsForSuccess)
	}
	if c.RunDeadline <= 0 {
		return fmt.Errorf("run deadline must be positive, got %s", c.RunDeadline)
	}
	return nil
}

// Result is the final outcome for one restaurant in one run.
type Result struct {
	Restaurant    registry.Restaurant
	Items         []menu.Item
	Attempts      []Attempt
	Method        menu.Method
	FailureReason string
	Stats         menu.NormalizeStats
}

// Succeeded reports whether the restaurant produced any dishes.
func (r Result) Succeeded() bool {
	return len(r.Items) > 0
}

// Attempted reports whether at least one strategy ran for the restaurant.
func (r Result) Attempted() bool {
	return len(r.Attempts) > 0
}

// Router runs the escalation state machine across a registry snapshot.
type Router struct {
	cfg         Config
	normCfg     menu.NormalizeConfig
	traditional strategy.Strategy
	vision      strategy.Strategy
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) { rt.logger = logger }
}

// WithNormalizeConfig overrides the normalization bounds.
func WithNormalizeConfig(cfg menu.NormalizeConfig) Option {
	return func(rt *Router) { rt.normCfg = cfg }
}

// New creates a Router over the two strategies.
func New(cfg Config, traditional, vision strategy.Strategy, opts ...Option) *Router {
	rt := &Router{
		cfg:         cfg,
		normCfg:     menu.DefaultNormalizeConfig(),
		traditional: traditional,
		vision:      vision,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// visionBudget is the run-scoped vision invocation counter. The lock is
// held only for the check-and-decrement, never across an attempt.
type visionBudget struct {
	mu        sync.Mutex
	remaining int
}

func (b *visionBudget) tryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Run evaluates every restaurant in the snapshot and returns one Result
// per restaurant, in snapshot order (priority then ID) regardless of
// evaluation order. Per-restaurant failures never abort the run; ctx
// cancellation stops in-flight work.
func (rt *Router) Run(ctx context.Context, snap *registry.Snapshot, today time.Time) []Result {
	// The deadline context gates starting new attempts and escalations; an
	// attempt already in flight finishes under the parent context, bounded
	// by its own fetch and model timeouts.
	deadlineCtx, cancel := context.WithTimeout(ctx, rt.cfg.RunDeadline)
	defer cancel()

	restaurants := snap.Restaurants()
	results := make([]Result, len(restaurants))
	budget := &visionBudget{remaining: rt.cfg.MaxVision}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < rt.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = rt.evaluate(ctx, deadlineCtx, snap, restaurants[idx], today, budget)
			}
		}()
	}
	for idx := range restaurants {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

// evaluate walks one restaurant through the escalation state machine.
func (rt *Router) evaluate(ctx, deadlineCtx context.Context, snap *registry.Snapshot, r registry.Restaurant, today time.Time, budget *visionBudget) Result {
	result := Result{Restaurant: r}

	if r.Excluded {
		result.FailureReason = ReasonExcluded
		return result
	}
	if !snap.ShouldUpdateToday(r, today) {
		result.FailureReason = ReasonNotScheduled
		return result
	}
	if deadlineCtx.Err() != nil {
		result.FailureReason = ReasonDeadlineExceeded
		return result
	}

	skipTraditional := r.ForcedStrategy == registry.ForceVision || snap.IsProblemSite(r.ID)

	var lastAttempt Attempt
	if !skipTraditional {
		attempt, res := rt.runAttempt(ctx, rt.traditional, r)
		result.Attempts = append(result.Attempts, attempt)
		lastAttempt = attempt

		if res != nil && len(res.Items) >= rt.cfg.MinItemsForSuccess {
			rt.finish(&result, res.Items, menu.MethodTraditional)
			return result
		}

		if r.ForcedStrategy == registry.ForceTraditional {
			// No escalation allowed; the partial or failed result is final.
			result.FailureReason = finalReason(lastAttempt)
			return result
		}

		rt.logger.Info("escalating to vision",
			"restaurant_id", r.ID,
			"traditional_items", lastAttempt.ItemCount)
		rt.metrics.RecordEscalation()
	}

	if deadlineCtx.Err() != nil {
		result.FailureReason = ReasonDeadlineExceeded
		return result
	}
	if !budget.tryAcquire() {
		rt.logger.Warn("vision budget exhausted", "restaurant_id", r.ID)
		rt.metrics.RecordBudgetExhausted()
		result.FailureReason = ReasonVisionBudget
		return result
	}

	attempt, res := rt.runAttempt(ctx, rt.vision, r)
	result.Attempts = append(result.Attempts, attempt)
	lastAttempt = attempt

	// The vision result is final for this run, success or not: a partial
	// earlier traditional result is discarded rather than merged.
	if res.Succeeded() {
		rt.finish(&result, res.Items, menu.MethodVision)
		return result
	}

	result.FailureReason = finalReason(lastAttempt)
	return result
}

// runAttempt executes one strategy and records it.
func (rt *Router) runAttempt(ctx context.Context, s strategy.Strategy, r registry.Restaurant) (Attempt, *strategy.Result) {
	started := time.Now()
	res, err := s.Attempt(ctx, r)

	attempt := Attempt{
		RestaurantID:  r.ID,
		Strategy:      s.Kind(),
		StartedAt:     started,
		DurationMs:    time.Since(started).Milliseconds(),
		EstimatedCost: rt.costOf(s.Kind()),
	}

	switch {
	case err != nil:
		attempt.Outcome = OutcomeError
		attempt.ErrorDetail = err.Error()
		res = &strategy.Result{}
		rt.logger.Warn("strategy error",
			"restaurant_id", r.ID,
			"strategy", s.Kind(),
			"error", err)
	case res.Succeeded():
		attempt.Outcome = OutcomeSuccess
		attempt.ItemCount = len(res.Items)
	default:
		attempt.Outcome = OutcomeFailure
		attempt.ErrorDetail = res.Failure
	}

	rt.metrics.RecordAttempt(string(s.Kind()), string(attempt.Outcome))
	return attempt, res
}

// finish normalizes the winning raw items into the result.
func (rt *Router) finish(result *Result, raw []menu.RawItem, method menu.Method) {
	items, stats := menu.Normalize(raw, result.Restaurant.ID, result.Restaurant.Name, method, rt.normCfg)
	result.Items = items
	result.Method = method
	result.Stats = stats
	rt.metrics.RecordDishes(len(items))

	if len(items) == 0 {
		// Normalization can empty a raw result (all nameless items); report
		// it as no items rather than a hollow success.
		result.Method = ""
		result.FailureReason = ReasonNoItems
		return
	}

	rt.logger.Info("restaurant extracted",
		"restaurant_id", result.Restaurant.ID,
		"method", method,
		"items", len(items),
		"duplicates_dropped", stats.DuplicatesDropped)
}

// finalReason maps the terminal attempt onto the per-restaurant failure
// taxonomy.
func finalReason(last Attempt) string {
	if last.Outcome == OutcomeError {
		return ReasonExtractorError
	}
	return ReasonNoItems
}

func (rt *Router) costOf(kind strategy.Kind) float64 {
	if kind == strategy.KindVision {
		return rt.cfg.VisionCost
	}
	return rt.cfg.TraditionalCost
}
