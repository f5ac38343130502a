// Package config loads the annotator configuration from defaults, an optional
// YAML file and ANNOTATOR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	API    APIConfig    `koanf:"api" yaml:"api"`
	Editor EditorConfig `koanf:"editor" yaml:"editor"`
	Vision VisionConfig `koanf:"vision" yaml:"vision"`
	Output OutputConfig `koanf:"output" yaml:"output"`
	Log    LogConfig    `koanf:"log" yaml:"log"`
}

// APIConfig points at the annotation backend.
type APIConfig struct {
	BaseURL        string `koanf:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds" yaml:"timeout_seconds"`
}

// EditorConfig holds canvas defaults.
type EditorConfig struct {
	DisplayWidth  int     `koanf:"display_width" yaml:"display_width"`
	DisplayHeight int     `koanf:"display_height" yaml:"display_height"`
	Opacity       int     `koanf:"opacity" yaml:"opacity"`
	ZoomStep      float64 `koanf:"zoom_step" yaml:"zoom_step"`
	MaxZoom       float64 `koanf:"max_zoom" yaml:"max_zoom"`
	HandleSize    float64 `koanf:"handle_size" yaml:"handle_size"`
}

// VisionConfig selects the model used for box proposals.
type VisionConfig struct {
	Backend       string  `koanf:"backend" yaml:"backend"`
	URL           string  `koanf:"url" yaml:"url"`
	Model         string  `koanf:"model" yaml:"model"`
	SendSize      int     `koanf:"send_size" yaml:"send_size"`
	SendQuality   int     `koanf:"send_quality" yaml:"send_quality"`
	MinConfidence float64 `koanf:"min_confidence" yaml:"min_confidence"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir     string `koanf:"dir" yaml:"dir"`
	Format  string `koanf:"format" yaml:"format"`
	Quality int    `koanf:"quality" yaml:"quality"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `koanf:"level" yaml:"level"`
	Development bool   `koanf:"development" yaml:"development"`
}

// Validation errors.
var (
	ErrMissingBaseURL = errors.New("api.base_url is required")
	ErrInvalidDisplay = errors.New("editor display size must be positive")
	ErrInvalidOpacity = errors.New("editor.opacity must be between 0 and 100")
	ErrInvalidZoom    = errors.New("editor zoom_step and max_zoom must be positive, max_zoom >= 1")
	ErrInvalidBackend = errors.New("vision.backend must be ollama or llamacpp")
	ErrInvalidQuality = errors.New("quality must be between 1 and 100")
	ErrInvalidFormat  = errors.New("output.format must be jpg, png or webp")
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 30,
		},
		Editor: EditorConfig{
			DisplayWidth:  1000,
			DisplayHeight: 800,
			Opacity:       30,
			ZoomStep:      0.1,
			MaxZoom:       3,
			HandleSize:    6,
		},
		Vision: VisionConfig{
			Backend:       "ollama",
			URL:           "http://localhost:11434",
			Model:         "qwen2.5vl:7b",
			SendSize:      1024,
			SendQuality:   85,
			MinConfidence: 0.25,
		},
		Output: OutputConfig{
			Dir:     "./output",
			Format:  "png",
			Quality: 90,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is read
// first when present; path may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file without environment overrides.
func LoadFromFile(filename string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("ANNOTATOR_API_URL", &c.API.BaseURL)
	setString("ANNOTATOR_VISION_BACKEND", &c.Vision.Backend)
	setString("ANNOTATOR_VISION_URL", &c.Vision.URL)
	setString("ANNOTATOR_VISION_MODEL", &c.Vision.Model)
	setString("ANNOTATOR_LOG_LEVEL", &c.Log.Level)
	setString("ANNOTATOR_OUTPUT_DIR", &c.Output.Dir)
	if err := setInt("ANNOTATOR_DISPLAY_WIDTH", &c.Editor.DisplayWidth); err != nil {
		return err
	}
	return setInt("ANNOTATOR_DISPLAY_HEIGHT", &c.Editor.DisplayHeight)
}

func setString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return ErrMissingBaseURL
	}

	if c.Editor.DisplayWidth <= 0 || c.Editor.DisplayHeight <= 0 {
		return ErrInvalidDisplay
	}

	if c.Editor.Opacity < 0 || c.Editor.Opacity > 100 {
		return ErrInvalidOpacity
	}

	if c.Editor.ZoomStep <= 0 || c.Editor.MaxZoom < 1 {
		return ErrInvalidZoom
	}

	switch strings.ToLower(c.Vision.Backend) {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Vision.Backend)
	}

	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return fmt.Errorf("vision.min_confidence must be between 0 and 1")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 || c.Output.Quality < 1 || c.Output.Quality > 100 {
		return ErrInvalidQuality
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "box-annotator", "config.yaml")
}
