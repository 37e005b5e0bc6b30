package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Location.Name != "Sundbyberg" {
		t.Errorf("expected default location Sundbyberg, got %s", cfg.Location.Name)
	}
	if cfg.Location.Lat != 59.3615 || cfg.Location.Lon != 17.9713 {
		t.Errorf("unexpected default coordinates %f,%f", cfg.Location.Lat, cfg.Location.Lon)
	}
	if cfg.Model.TextModel != "gpt-4o-mini" {
		t.Errorf("expected default text model gpt-4o-mini, got %s", cfg.Model.TextModel)
	}
	if cfg.Router.MinItemsForSuccess != 3 {
		t.Errorf("expected escalation threshold 3, got %d", cfg.Router.MinItemsForSuccess)
	}
	if cfg.Normalize.MinPrice != 40 || cfg.Normalize.MaxPrice != 200 {
		t.Errorf("unexpected default price band [%d, %d]", cfg.Normalize.MinPrice, cfg.Normalize.MaxPrice)
	}
	if cfg.Output.Dir != "data" {
		t.Errorf("expected default output dir data, got %s", cfg.Output.Dir)
	}
	if cfg.PolitenessDelaySeconds != 1.0 {
		t.Errorf("expected 1s politeness delay, got %f", cfg.PolitenessDelaySeconds)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing location",
			modify: func(c *Config) {
				c.Location.Lat = 0
				c.Location.Lon = 0
			},
			wantErr: true,
		},
		{
			name:    "missing model base url",
			modify:  func(c *Config) { c.Model.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing output dir",
			modify:  func(c *Config) { c.Output.Dir = "" },
			wantErr: true,
		},
		{
			name:    "negative politeness delay",
			modify:  func(c *Config) { c.PolitenessDelaySeconds = -1 },
			wantErr: true,
		},
		{
			name:    "zero router concurrency",
			modify:  func(c *Config) { c.Router.Concurrency = 0 },
			wantErr: true,
		},
		{
			name: "inverted price band",
			modify: func(c *Config) {
				c.Normalize.MinPrice = 200
				c.Normalize.MaxPrice = 40
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
location:
  name: "Testville"
  lat: 59.40
  lon: 18.00
router:
  max_vision: 2
policy:
  exclude:
    - "burger-king"
  problem_sites:
    - "delibruket-flatbread"
  overrides:
    matverket:
      update_frequency: static
      update_day: tuesday
restaurants:
  - id: "matverket"
    name: "Matverket"
    website: "https://matverket.se"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Location.Name != "Testville" {
		t.Errorf("expected location Testville, got %s", cfg.Location.Name)
	}
	if cfg.Router.MaxVision != 2 {
		t.Errorf("expected max_vision 2, got %d", cfg.Router.MaxVision)
	}
	// Unset fields keep their defaults.
	if cfg.Router.Concurrency != DefaultConfig().Router.Concurrency {
		t.Errorf("expected default concurrency, got %d", cfg.Router.Concurrency)
	}
	if len(cfg.Policy.Exclude) != 1 || cfg.Policy.Exclude[0] != "burger-king" {
		t.Errorf("unexpected exclude list %v", cfg.Policy.Exclude)
	}
	ov, ok := cfg.Policy.Overrides["matverket"]
	if !ok {
		t.Fatal("expected override for matverket")
	}
	if string(ov.UpdateFrequency) != "static" || ov.UpdateDay != "tuesday" {
		t.Errorf("unexpected override %+v", ov)
	}
	if len(cfg.Restaurants) != 1 || cfg.Restaurants[0].ID != "matverket" {
		t.Errorf("unexpected seed restaurants %+v", cfg.Restaurants)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMergePrecedence(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.Router.MaxVision = 3
	other.Output.Dir = "out"
	other.Policy.Include = []string{"matverket"}

	base.Merge(other)

	if base.Router.MaxVision != 3 {
		t.Errorf("expected merged max_vision 3, got %d", base.Router.MaxVision)
	}
	if base.Output.Dir != "out" {
		t.Errorf("expected merged output dir out, got %s", base.Output.Dir)
	}
	if len(base.Policy.Include) != 1 {
		t.Errorf("expected merged include list, got %v", base.Policy.Include)
	}
	// Zero values in the overlay leave the base untouched.
	if base.Router.Concurrency != DefaultConfig().Router.Concurrency {
		t.Errorf("expected default concurrency preserved, got %d", base.Router.Concurrency)
	}
	if base.Location.Name != "Sundbyberg" {
		t.Errorf("expected base location preserved, got %s", base.Location.Name)
	}
}

func TestMergeNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(nil)
	if cfg.Output.Dir != "data" {
		t.Error("merge with nil should be a no-op")
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Output.Dir = "custom-out"
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Output.Dir != "custom-out" {
		t.Errorf("expected custom-out after reload, got %s", loaded.Output.Dir)
	}
}
