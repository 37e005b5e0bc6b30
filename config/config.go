// Package config provides configuration loading for the lunch pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/istlunch/lunchpipe/discovery"
	"github.com/istlunch/lunchpipe/llm"
	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/router"
	"github.com/istlunch/lunchpipe/strategy"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Location  LocationConfig       `yaml:"location"`
	Discovery discovery.Config     `yaml:"discovery"`
	Model     llm.Config           `yaml:"model"`
	Fetch     strategy.FetchConfig `yaml:"fetch"`
	Router    router.Config        `yaml:"router"`
	Normalize menu.NormalizeConfig `yaml:"normalize"`
	Output    OutputConfig         `yaml:"output"`
	NATS      NATSConfig           `yaml:"nats"`

	// PolitenessDelaySeconds is the minimum spacing between fetches against
	// the same origin.
	PolitenessDelaySeconds float64 `yaml:"politeness_delay_seconds"`

	// Restaurants seeds the registry with known restaurants. Seeds take
	// precedence over discovery results with the same ID.
	Restaurants []registry.Restaurant `yaml:"restaurants"`

	// Policy carries the include/exclude lists and per-restaurant overrides.
	Policy registry.Policy `yaml:"policy"`
}

// LocationConfig is the office location the radius search centers on.
type LocationConfig struct {
	// Name labels the location in logs and reports.
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// OutputConfig controls where run snapshots are written.
type OutputConfig struct {
	// Dir receives restaurants.json, menus.json and dishes.json.
	Dir string `yaml:"dir"`
}

// NATSConfig configures the optional run-completed event.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with sensible defaults: the Sundbyberg
// office location and the standard extraction stack.
func DefaultConfig() *Config {
	return &Config{
		Location: LocationConfig{
			Name: "Sundbyberg",
			Lat:  59.3615,
			Lon:  17.9713,
		},
		Discovery:              discovery.DefaultConfig(),
		Model:                  llm.DefaultConfig(),
		Fetch:                  strategy.DefaultFetchConfig(),
		Router:                 router.DefaultConfig(),
		Normalize:              menu.DefaultNormalizeConfig(),
		Output:                 OutputConfig{Dir: "data"},
		NATS:                   NATSConfig{URL: ""},
		PolitenessDelaySeconds: 1.0,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Location.Lat == 0 && c.Location.Lon == 0 {
		return fmt.Errorf("location.lat and location.lon are required")
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.PolitenessDelaySeconds < 0 {
		return fmt.Errorf("politeness_delay_seconds must not be negative")
	}
	if err := c.Router.Validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if err := c.Normalize.Validate(); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Location
	if other.Location.Name != "" {
		c.Location.Name = other.Location.Name
	}
	if other.Location.Lat != 0 || other.Location.Lon != 0 {
		c.Location.Lat = other.Location.Lat
		c.Location.Lon = other.Location.Lon
	}

	// Discovery
	if other.Discovery.BaseURL != "" {
		c.Discovery.BaseURL = other.Discovery.BaseURL
	}
	if other.Discovery.RadiusMeters != 0 {
		c.Discovery.RadiusMeters = other.Discovery.RadiusMeters
	}
	if len(other.Discovery.SearchTerms) > 0 {
		c.Discovery.SearchTerms = other.Discovery.SearchTerms
	}
	if other.Discovery.Language != "" {
		c.Discovery.Language = other.Discovery.Language
	}
	if other.Discovery.Timeout != 0 {
		c.Discovery.Timeout = other.Discovery.Timeout
	}

	// Model
	if other.Model.BaseURL != "" {
		c.Model.BaseURL = other.Model.BaseURL
	}
	if other.Model.TextModel != "" {
		c.Model.TextModel = other.Model.TextModel
	}
	if other.Model.VisionModel != "" {
		c.Model.VisionModel = other.Model.VisionModel
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.MaxTokens != 0 {
		c.Model.MaxTokens = other.Model.MaxTokens
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}

	// Router
	if other.Router.Concurrency != 0 {
		c.Router.Concurrency = other.Router.Concurrency
	}
	if other.Router.MaxVision != 0 {
		c.Router.MaxVision = other.Router.MaxVision
	}
	if other.Router.MinItemsForSuccess != 0 {
		c.Router.MinItemsForSuccess = other.Router.MinItemsForSuccess
	}
	if other.Router.RunDeadline != 0 {
		c.Router.RunDeadline = other.Router.RunDeadline
	}
	if other.Router.TraditionalCost != 0 {
		c.Router.TraditionalCost = other.Router.TraditionalCost
	}
	if other.Router.VisionCost != 0 {
		c.Router.VisionCost = other.Router.VisionCost
	}

	// Normalize
	if other.Normalize.MinPrice != 0 {
		c.Normalize.MinPrice = other.Normalize.MinPrice
	}
	if other.Normalize.MaxPrice != 0 {
		c.Normalize.MaxPrice = other.Normalize.MaxPrice
	}
	if other.Normalize.MaxItems != 0 {
		c.Normalize.MaxItems = other.Normalize.MaxItems
	}

	// Output and NATS
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	if other.PolitenessDelaySeconds != 0 {
		c.PolitenessDelaySeconds = other.PolitenessDelaySeconds
	}

	// Registry
	if len(other.Restaurants) > 0 {
		c.Restaurants = other.Restaurants
	}
	if len(other.Policy.Include) > 0 {
		c.Policy.Include = other.Policy.Include
	}
	if len(other.Policy.Exclude) > 0 {
		c.Policy.Exclude = other.Policy.Exclude
	}
	if len(other.Policy.ProblemSites) > 0 {
		c.Policy.ProblemSites = other.Policy.ProblemSites
	}
	if len(other.Policy.Overrides) > 0 {
		c.Policy.Overrides = other.Policy.Overrides
	}
}
