package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Languages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceLang = "en"
	cfg.TargetLang = "ja"
	source, target, err := cfg.Languages()
	require.NoError(t, err)
	assert.Equal(t, language.English, source)
	assert.Equal(t, language.Japanese, target)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad source lang", func(c *Config) { c.SourceLang = "not a tag!" }},
		{"same languages", func(c *Config) { c.TargetLang = c.SourceLang }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"confidence above one", func(c *Config) { c.Extract.MinConfidence = 1.5 }},
		{"inverted scales", func(c *Config) { c.Reconcile.MinScale = 0.9; c.Reconcile.MaxScale = 0.5 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestExtract_ToExtract(t *testing.T) {
	e := Extract{
		MinConfidence:   0.6,
		VerticalGap:     8,
		HeadingFontSize: 16,
		MaxDimension:    2000,
		Grayscale:       true,
	}
	cfg := e.ToExtract()
	assert.InDelta(t, 0.6, cfg.MinConfidence, 1e-9)
	assert.InDelta(t, 8.0, cfg.VerticalGap, 1e-9)
	assert.InDelta(t, 16.0, cfg.HeadingFontSize, 1e-9)
	assert.Equal(t, 2000, cfg.Preprocess.MaxDimension)
	assert.True(t, cfg.Preprocess.Grayscale)
}

func TestExtract_ToExtract_ZeroValuesKeepDefaults(t *testing.T) {
	cfg := Extract{}.ToExtract()
	assert.InDelta(t, 0.30, cfg.MinConfidence, 1e-9)
	assert.InDelta(t, 5.0, cfg.VerticalGap, 1e-9)
}

func TestLoader_LoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "de", cfg.TargetLang)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 16, cfg.Translate.MaxBatchUnits)
}

func TestLoader_LoadWithFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "doctran.yaml")
	content := []byte("target_lang: fr\nserver:\n  port: 9999\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.TargetLang)
	assert.Equal(t, 9999, cfg.Server.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, "en", cfg.SourceLang)
}

func TestLoader_LoadWithFile_Missing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := NewLoader().LoadWithFile("/nonexistent/doctran.yaml")
	require.Error(t, err)
}

func TestLoader_EnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DOCTRAN_TARGET_LANG", "es")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.TargetLang)
}

func TestWriteDefaultConfigFile_RoundTrips(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "doctran.yaml")
	require.NoError(t, WriteDefaultConfigFile(path))

	cfg, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
	assert.Equal(t, DefaultConfig().Reconcile.MaxIterations, cfg.Reconcile.MaxIterations)
}
