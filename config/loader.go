package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "lunchpipe.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/lunchpipe"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Secrets holds API credentials. They come from the environment or a .env
// file and never appear in the yaml config.
type Secrets struct {
	// OpenAIKey authenticates against the extraction API.
	OpenAIKey string
	// GooglePlacesKey enables restaurant discovery. Empty disables
	// discovery; the run then uses seeded restaurants only.
	GooglePlacesKey string
	// ScraperAPIKey enables the rendering proxy for fetches. Empty fetches
	// directly.
	ScraperAPIKey string
	// NATSURL overrides the configured NATS server.
	NATSURL string
}

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/lunchpipe/config.yaml)
// 3. Project config (lunchpipe.yaml in the current directory)
// 4. Explicit config file (from the --config flag), when non-empty
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to load user config",
			slog.String("path", userConfigPath),
			slog.String("error", err.Error()))
	}

	if _, err := os.Stat(ProjectConfigFile); err == nil {
		projectConfig, err := LoadFromFile(ProjectConfigFile)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded project config", slog.String("path", ProjectConfigFile))
		config.Merge(projectConfig)
	}

	if explicitPath != "" {
		explicit, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, err
		}
		config.Merge(explicit)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadSecrets reads API keys from a .env file in the working directory and
// from the environment. Environment variables win over the .env file, which
// is godotenv's default behavior.
func (l *Loader) LoadSecrets() Secrets {
	if err := godotenv.Load(); err == nil {
		l.logger.Debug("loaded .env file")
	}

	return Secrets{
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GooglePlacesKey: os.Getenv("GOOGLE_PLACES_API_KEY"),
		ScraperAPIKey:   os.Getenv("SCRAPERAPI_KEY"),
		NATSURL:         os.Getenv("NATS_URL"),
	}
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
