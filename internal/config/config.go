// Package config holds the application configuration: defaults, file
// and environment loading, and validation.
package config

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/extract"
	"github.com/MeKo-Tech/doctran/internal/reconcile"
	"github.com/MeKo-Tech/doctran/internal/render"
	"github.com/MeKo-Tech/doctran/internal/translate"
)

// Config is the full application configuration tree.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// SourceLang and TargetLang are BCP 47 tags.
	SourceLang string `mapstructure:"source_lang" yaml:"source_lang" json:"source_lang"`
	TargetLang string `mapstructure:"target_lang" yaml:"target_lang" json:"target_lang"`

	// Workers bounds concurrent page processing.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	Extract   Extract                `mapstructure:"extract" yaml:"extract" json:"extract"`
	Translate translate.Config       `mapstructure:"translate" yaml:"translate" json:"translate"`
	Backend   translate.OpenAIConfig `mapstructure:"backend" yaml:"backend" json:"backend"`
	Reconcile reconcile.Constraints  `mapstructure:"reconcile" yaml:"reconcile" json:"reconcile"`
	Render    render.Config          `mapstructure:"render" yaml:"render" json:"render"`
	Server    Server                 `mapstructure:"server" yaml:"server" json:"server"`
}

// Extract mirrors the extraction settings in a flat, taggable shape.
type Extract struct {
	MinConfidence   float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	VerticalGap     float64 `mapstructure:"vertical_gap" yaml:"vertical_gap" json:"vertical_gap"`
	HeadingFontSize float64 `mapstructure:"heading_font_size" yaml:"heading_font_size" json:"heading_font_size"`
	MaxDimension    int     `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	Grayscale       bool    `mapstructure:"grayscale" yaml:"grayscale" json:"grayscale"`
}

// ToExtract converts to the extraction package's config.
func (e Extract) ToExtract() extract.Config {
	cfg := extract.DefaultConfig()
	if e.MinConfidence > 0 {
		cfg.MinConfidence = e.MinConfidence
	}
	if e.VerticalGap > 0 {
		cfg.VerticalGap = e.VerticalGap
	}
	if e.HeadingFontSize > 0 {
		cfg.HeadingFontSize = e.HeadingFontSize
	}
	if e.MaxDimension > 0 {
		cfg.Preprocess.MaxDimension = e.MaxDimension
	}
	cfg.Preprocess.Grayscale = e.Grayscale
	return cfg
}

// Server holds the HTTP server settings.
type Server struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownSec     int    `mapstructure:"shutdown_sec" yaml:"shutdown_sec" json:"shutdown_sec"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min" json:"rate_limit_per_min"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	ext := extract.DefaultConfig()
	return &Config{
		LogLevel:   "info",
		SourceLang: "en",
		TargetLang: "de",
		Workers:    0, // 0 means NumCPU
		Extract: Extract{
			MinConfidence:   ext.MinConfidence,
			VerticalGap:     ext.VerticalGap,
			HeadingFontSize: ext.HeadingFontSize,
			MaxDimension:    ext.Preprocess.MaxDimension,
			Grayscale:       ext.Preprocess.Grayscale,
		},
		Translate: translate.DefaultConfig(),
		Reconcile: reconcile.DefaultConstraints(),
		Render:    render.DefaultConfig(),
		Server: Server{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      300,
			ShutdownSec:     10,
			RateLimitPerMin: 30,
			OutputDir:       "",
		},
	}
}

// Languages parses the configured language tags.
func (c *Config) Languages() (source, target language.Tag, err error) {
	source, err = language.Parse(c.SourceLang)
	if err != nil {
		return language.Und, language.Und, fmt.Errorf("config: invalid source_lang %q: %w", c.SourceLang, err)
	}
	target, err = language.Parse(c.TargetLang)
	if err != nil {
		return language.Und, language.Und, fmt.Errorf("config: invalid target_lang %q: %w", c.TargetLang, err)
	}
	return source, target, nil
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if _, _, err := c.Languages(); err != nil {
		return err
	}
	if c.SourceLang == c.TargetLang {
		return fmt.Errorf("config: source_lang and target_lang are both %q", c.SourceLang)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if c.Extract.MinConfidence < 0 || c.Extract.MinConfidence > 1 {
		return fmt.Errorf("config: extract.min_confidence must be in [0,1], got %g", c.Extract.MinConfidence)
	}
	if c.Reconcile.MinScale > 0 && c.Reconcile.MaxScale > 0 && c.Reconcile.MinScale > c.Reconcile.MaxScale {
		return fmt.Errorf("config: reconcile.min_scale %g exceeds max_scale %g",
			c.Reconcile.MinScale, c.Reconcile.MaxScale)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("config: server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}
