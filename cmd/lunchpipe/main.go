// Package main provides the lunchpipe binary entry point.
// Lunchpipe aggregates daily lunch menus for restaurants within walking
// distance of the office, escalating from cheap HTML extraction to
// screenshot-based vision extraction only where needed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/istlunch/lunchpipe/config"
	"github.com/istlunch/lunchpipe/discovery"
	"github.com/istlunch/lunchpipe/llm"
	"github.com/istlunch/lunchpipe/metrics"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/report"
	"github.com/istlunch/lunchpipe/router"
	"github.com/istlunch/lunchpipe/strategy"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "lunchpipe"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath    string
	outputDir     string
	radius        int
	concurrency   int
	maxVision     int
	deadline      time.Duration
	logLevel      string
	metricsListen string
	skipDiscovery bool
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Lunch menu aggregation pipeline",
		Long: `Lunchpipe finds restaurants near the office, scrapes today's lunch
menus and writes three JSON snapshots (restaurants, menus, dishes).

Each restaurant is tried with a cheap HTML extraction first; only
restaurants where that yields too few dishes escalate to the expensive
screenshot-based vision extraction, subject to a per-run budget.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "Output directory for run snapshots")
	cmd.Flags().IntVar(&f.radius, "radius", 0, "Discovery search radius in meters")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Restaurant evaluation workers")
	cmd.Flags().IntVar(&f.maxVision, "max-vision", 0, "Vision attempts allowed per run")
	cmd.Flags().DurationVar(&f.deadline, "deadline", 0, "Soft run deadline (e.g. 6m)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.metricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on (empty = disabled)")
	cmd.Flags().BoolVar(&f.skipDiscovery, "skip-discovery", false, "Use only seeded restaurants, skip the Places search")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(ctx context.Context, f flags) error {
	level := slog.LevelInfo
	switch strings.ToLower(f.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loader := config.NewLoader(logger)
	secrets := loader.LoadSecrets()
	cfg, err := loader.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, f)
	cfg.Fetch.ScraperAPIKey = secrets.ScraperAPIKey
	if secrets.NATSURL != "" {
		cfg.NATS.URL = secrets.NATSURL
	}
	if secrets.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if f.metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: f.metricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", f.metricsListen)
	}

	restaurants, err := assembleRestaurants(ctx, cfg, secrets, f.skipDiscovery, logger)
	if err != nil {
		return err
	}
	if len(restaurants) == 0 {
		return fmt.Errorf("no restaurants to evaluate: configure seeds or set GOOGLE_PLACES_API_KEY")
	}
	snap := registry.NewSnapshot(restaurants, cfg.Policy, logger)

	extractor := llm.NewClient(cfg.Model, secrets.OpenAIKey, llm.WithLogger(logger))
	fetcher := strategy.NewFetcher(cfg.Fetch)
	limiter := strategy.NewOriginLimiter(cfg.PolitenessDelaySeconds)
	traditional := strategy.NewTraditional(fetcher, extractor, limiter, cfg.Fetch.Timeout, logger)
	vision := strategy.NewVision(strategy.NewChromeBrowser(), extractor, logger)

	rt := router.New(cfg.Router, traditional, vision,
		router.WithLogger(logger),
		router.WithMetrics(m),
		router.WithNormalizeConfig(cfg.Normalize))

	started := time.Now()
	logger.Info("starting run",
		"location", cfg.Location.Name,
		"restaurants", len(restaurants),
		"concurrency", cfg.Router.Concurrency,
		"max_vision", cfg.Router.MaxVision)

	results := rt.Run(ctx, snap, started)

	runReport := report.Build(uuid.NewString(), time.Now().UTC(), results)
	writer := report.NewWriter(cfg.Output.Dir, logger)
	if err := writer.Write(runReport); err != nil {
		return fmt.Errorf("write run snapshots: %w", err)
	}

	publishRunEvent(cfg.NATS.URL, runReport, logger)

	logger.Info("run complete",
		"duration", time.Since(started).Round(time.Second),
		"restaurants_attempted", runReport.RestaurantsAttempted,
		"restaurants_with_dishes", runReport.RestaurantsWithDishes,
		"dishes", runReport.TotalDishes,
		"success_rate", fmt.Sprintf("%.0f%%", runReport.SuccessRate*100),
		"estimated_cost_usd", fmt.Sprintf("%.3f", runReport.EstimatedCost))

	return nil
}

// applyFlags overlays non-zero command line flags onto the config.
func applyFlags(cfg *config.Config, f flags) {
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.radius > 0 {
		cfg.Discovery.RadiusMeters = f.radius
	}
	if f.concurrency > 0 {
		cfg.Router.Concurrency = f.concurrency
	}
	if f.maxVision > 0 {
		cfg.Router.MaxVision = f.maxVision
	}
	if f.deadline > 0 {
		cfg.Router.RunDeadline = f.deadline
	}
}

// assembleRestaurants merges configured seeds with discovery output. Seeds
// come first so they win the snapshot's ID deduplication.
func assembleRestaurants(ctx context.Context, cfg *config.Config, secrets config.Secrets, skipDiscovery bool, logger *slog.Logger) ([]registry.Restaurant, error) {
	restaurants := make([]registry.Restaurant, 0, len(cfg.Restaurants))
	restaurants = append(restaurants, cfg.Restaurants...)

	if skipDiscovery || secrets.GooglePlacesKey == "" {
		if secrets.GooglePlacesKey == "" && !skipDiscovery {
			logger.Info("GOOGLE_PLACES_API_KEY not set, using seeded restaurants only")
		}
		return restaurants, nil
	}

	client := discovery.NewClient(cfg.Discovery, secrets.GooglePlacesKey, discovery.WithLogger(logger))
	candidates, err := client.Discover(ctx, cfg.Location.Lat, cfg.Location.Lon)
	if err != nil {
		return nil, fmt.Errorf("discover restaurants: %w", err)
	}

	included := make(map[string]bool, len(cfg.Policy.Include))
	for _, id := range cfg.Policy.Include {
		included[id] = true
	}
	for _, c := range candidates {
		// Whitelisted restaurants skip the lunch-hours gate.
		if !c.ServesLunch && !included[c.ID] {
			logger.Debug("skipping candidate without weekday lunch hours", "restaurant", c.ID)
			continue
		}
		if c.Website == "" && !included[c.ID] {
			continue
		}
		restaurants = append(restaurants, c.Restaurant)
	}
	return restaurants, nil
}

// publishRunEvent announces the finished run over NATS when configured.
// Publishing is best effort; a broker outage never fails the run.
func publishRunEvent(natsURL string, runReport *report.RunReport, logger *slog.Logger) {
	if natsURL == "" {
		return
	}
	pub, err := report.NewPublisher(natsURL, report.RunCompletedSubject)
	if err != nil {
		logger.Warn("NATS connect failed, skipping run event", "error", err)
		return
	}
	defer pub.Close()
	if err := pub.PublishRunCompleted(runReport); err != nil {
		logger.Warn("run event publish failed", "error", err)
	}
}
