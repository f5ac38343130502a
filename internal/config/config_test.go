package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://backend:9000
editor:
  display_width: 640
vision:
  backend: llamacpp
  min_confidence: 0.5
`), 0644))

	t.Setenv("ANNOTATOR_DISPLAY_HEIGHT", "480")
	t.Setenv("ANNOTATOR_VISION_MODEL", "llava")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://backend:9000", cfg.API.BaseURL)
	require.Equal(t, 30, cfg.API.TimeoutSeconds)
	require.Equal(t, 640, cfg.Editor.DisplayWidth)
	require.Equal(t, 480, cfg.Editor.DisplayHeight)
	require.Equal(t, "llamacpp", cfg.Vision.Backend)
	require.Equal(t, "llava", cfg.Vision.Model)
	require.InDelta(t, 0.5, cfg.Vision.MinConfidence, 1e-9)
	require.Equal(t, 3.0, cfg.Editor.MaxZoom)
}

func TestEnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("ANNOTATOR_API_URL", "http://api.local")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://api.local", cfg.API.BaseURL)
}

func TestBadEnvInteger(t *testing.T) {
	t.Setenv("ANNOTATOR_DISPLAY_WIDTH", "wide")
	_, err := Load("")
	require.ErrorContains(t, err, "ANNOTATOR_DISPLAY_WIDTH")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Output.Format = "webp"
	cfg.Editor.Opacity = 55
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty url", func(c *Config) { c.API.BaseURL = " " }, ErrMissingBaseURL},
		{"display", func(c *Config) { c.Editor.DisplayWidth = 0 }, ErrInvalidDisplay},
		{"opacity", func(c *Config) { c.Editor.Opacity = 101 }, ErrInvalidOpacity},
		{"zoom", func(c *Config) { c.Editor.MaxZoom = 0.5 }, ErrInvalidZoom},
		{"backend", func(c *Config) { c.Vision.Backend = "openai" }, ErrInvalidBackend},
		{"quality", func(c *Config) { c.Output.Quality = 0 }, ErrInvalidQuality},
		{"format", func(c *Config) { c.Output.Format = "gif" }, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
