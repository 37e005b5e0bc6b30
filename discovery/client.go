// Package discovery finds lunch restaurant candidates around the office
// using the Google Places API. It produces registry restaurants with walk
// estimates and a lunch-hours flag; inclusion policy is applied elsewhere.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/istlunch/lunchpipe/registry"
)

const maxResponseSize = 5 * 1024 * 1024

// walkMetersPerMinute is the pace used for walk time estimates.
const walkMetersPerMinute = 80.0

// Config holds search parameters for restaurant discovery.
type Config struct {
	// BaseURL is the Places API root.
	BaseURL string `yaml:"base_url"`
	// RadiusMeters bounds the nearby search around the office.
	RadiusMeters int `yaml:"radius_meters"`
	// SearchTerms are the keyword queries run against the nearby search.
	// Each term is a separate request; results are deduplicated by place ID.
	SearchTerms []string `yaml:"search_terms"`
	// Language for place names and addresses.
	Language string `yaml:"language"`
	// Timeout bounds a single API call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the discovery defaults: Swedish lunch search terms
// within walking distance of the office.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://maps.googleapis.com/maps/api/place",
		RadiusMeters: 1500,
		SearchTerms: []string{
			"restaurang lunch",
			"café lunch",
			"sushi",
			"thai restaurang",
			"dagens lunch",
		},
		Language: "sv",
		Timeout:  30 * time.Second,
	}
}

// Candidate is a discovered restaurant plus the discovery-only signals the
// inclusion decision needs.
type Candidate struct {
	registry.Restaurant

	PlaceID string
	// ServesLunch reports whether opening hours show a weekday opening at
	// or before 11:00.
	ServesLunch bool
}

// Client queries the Places API.
type Client struct {
	cfg        Config
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// NewClient creates a discovery client.
func NewClient(cfg Config, apiKey string, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	c := &Client{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Places API wire types.

type nearbyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []nearbyPlace `json:"results"`
}

type nearbyPlace struct {
	PlaceID  string  `json:"place_id"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type detailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Result       placeDetails `json:"result"`
}

type placeDetails struct {
	Website      string `json:"website"`
	OpeningHours struct {
		Periods []openingPeriod `json:"periods"`
	} `json:"opening_hours"`
}

type openingPeriod struct {
	Open struct {
		Day  int    `json:"day"`
		Time string `json:"time"`
	} `json:"open"`
}

// Discover runs the configured search terms around the given office
// coordinates and returns deduplicated candidates, closest first.
func (c *Client) Discover(ctx context.Context, officeLat, officeLon float64) ([]Candidate, error) {
	seen := make(map[string]bool)
	var candidates []Candidate

	for _, term := range c.cfg.SearchTerms {
		places, err := c.nearbySearch(ctx, officeLat, officeLon, term)
		if err != nil {
			return nil, fmt.Errorf("nearby search %q: %w", term, err)
		}

		for _, place := range places {
			if place.PlaceID == "" || seen[place.PlaceID] {
				continue
			}
			seen[place.PlaceID] = true

			details, err := c.placeDetails(ctx, place.PlaceID)
			if err != nil {
				c.logger.Warn("place details lookup failed",
					"place", place.Name,
					"error", err)
				continue
			}

			distance := haversineMeters(officeLat, officeLon, place.Geometry.Location.Lat, place.Geometry.Location.Lng)
			candidates = append(candidates, Candidate{
				Restaurant: registry.Restaurant{
					ID:          registry.MakeID(place.Name),
					Name:        place.Name,
					Website:     details.Website,
					Lat:         place.Geometry.Location.Lat,
					Lon:         place.Geometry.Location.Lng,
					Rating:      place.Rating,
					DistanceM:   int(math.Round(distance)),
					WalkMinutes: walkMinutes(distance),
				},
				PlaceID:     place.PlaceID,
				ServesLunch: servesWeekdayLunch(details),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceM != candidates[j].DistanceM {
			return candidates[i].DistanceM < candidates[j].DistanceM
		}
		return candidates[i].ID < candidates[j].ID
	})

	c.logger.Info("discovery complete",
		"terms", len(c.cfg.SearchTerms),
		"candidates", len(candidates))
	return candidates, nil
}

func (c *Client) nearbySearch(ctx context.Context, lat, lon float64, keyword string) ([]nearbyPlace, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.6f,%.6f", lat, lon))
	params.Set("radius", strconv.Itoa(c.cfg.RadiusMeters))
	params.Set("keyword", keyword)
	params.Set("type", "restaurant")
	params.Set("language", c.cfg.Language)
	params.Set("key", c.apiKey)

	var parsed nearbyResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &parsed); err != nil {
		return nil, err
	}
	if err := checkStatus(parsed.Status, parsed.ErrorMessage); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

func (c *Client) placeDetails(ctx context.Context, placeID string) (*placeDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "website,opening_hours")
	params.Set("key", c.apiKey)

	var parsed detailsResponse
	if err := c.get(ctx, "/details/json", params, &parsed); err != nil {
		return nil, err
	}
	if err := checkStatus(parsed.Status, parsed.ErrorMessage); err != nil {
		return nil, err
	}
	return &parsed.Result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places API status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// checkStatus maps the Places API status field onto errors. ZERO_RESULTS is
// an empty result set, not a failure.
func checkStatus(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	default:
		if message != "" {
			return fmt.Errorf("places API %s: %s", status, message)
		}
		return fmt.Errorf("places API %s", status)
	}
}

// servesWeekdayLunch reports whether any opening period starts at or before
// 11:00 on a weekday. Places encodes days 0-6 from Sunday and times as HHMM.
func servesWeekdayLunch(details *placeDetails) bool {
	for _, period := range details.OpeningHours.Periods {
		day := period.Open.Day
		if day < 1 || day > 5 || len(period.Open.Time) < 2 {
			continue
		}
		hour, err := strconv.Atoi(period.Open.Time[:2])
		if err == nil && hour <= 11 {
			return true
		}
	}
	return false
}

func walkMinutes(meters float64) int {
	return int(math.Ceil(meters / walkMetersPerMinute))
}

// haversineMeters returns the great-circle distance between two points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}
