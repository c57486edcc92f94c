package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files.
	ConfigFileName = "doctran"

	// EnvPrefix is the prefix for environment variables, e.g.
	// DOCTRAN_TARGET_LANG.
	EnvPrefix = "DOCTRAN"
)

// Loader resolves configuration from files, environment variables and
// defaults, in that order of precedence below explicit flag bindings.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra
// flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		// No file is fine; defaults and environment carry.
	}
	return l.unmarshal()
}

// LoadWithFile resolves configuration from a specific file.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file does not exist: %s", configFile)
	}
	l.v.SetConfigFile(configFile)
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file the configuration was
// read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/doctran")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "doctran"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "doctran"))
	}
}

func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("source_lang", d.SourceLang)
	l.v.SetDefault("target_lang", d.TargetLang)
	l.v.SetDefault("workers", d.Workers)

	l.v.SetDefault("extract.min_confidence", d.Extract.MinConfidence)
	l.v.SetDefault("extract.vertical_gap", d.Extract.VerticalGap)
	l.v.SetDefault("extract.heading_font_size", d.Extract.HeadingFontSize)
	l.v.SetDefault("extract.max_dimension", d.Extract.MaxDimension)
	l.v.SetDefault("extract.grayscale", d.Extract.Grayscale)

	l.v.SetDefault("translate.max_batch_units", d.Translate.MaxBatchUnits)
	l.v.SetDefault("translate.max_batch_chars", d.Translate.MaxBatchChars)
	l.v.SetDefault("translate.concurrency", d.Translate.Concurrency)
	l.v.SetDefault("translate.max_retries", d.Translate.MaxRetries)
	l.v.SetDefault("translate.retry_base_delay", d.Translate.RetryBaseDelay)

	l.v.SetDefault("backend.api_key", d.Backend.APIKey)
	l.v.SetDefault("backend.base_url", d.Backend.BaseURL)
	l.v.SetDefault("backend.model", d.Backend.Model)
	l.v.SetDefault("backend.timeout", d.Backend.Timeout)

	l.v.SetDefault("reconcile.min_scale", d.Reconcile.MinScale)
	l.v.SetDefault("reconcile.max_scale", d.Reconcile.MaxScale)
	l.v.SetDefault("reconcile.line_spacing", d.Reconcile.LineSpacing)
	l.v.SetDefault("reconcile.max_iterations", d.Reconcile.MaxIterations)

	l.v.SetDefault("render.font_family", d.Render.FontFamily)
	l.v.SetDefault("render.font_style", d.Render.FontStyle)
	l.v.SetDefault("render.heading_style", d.Render.HeadingStyle)
	l.v.SetDefault("render.ascent_ratio", d.Render.AscentRatio)
	l.v.SetDefault("render.line_spacing", d.Render.LineSpacing)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_sec", d.Server.ShutdownSec)
	l.v.SetDefault("server.rate_limit_per_min", d.Server.RateLimitPerMin)
	l.v.SetDefault("server.output_dir", d.Server.OutputDir)
}

// WriteDefaultConfigFile writes the default configuration as YAML so
// users have a complete template to edit.
func WriteDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", filename, err)
	}
	return nil
}
