package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/doctran/internal/config"
	"github.com/MeKo-Tech/doctran/internal/pipeline"
	"github.com/MeKo-Tech/doctran/internal/translate"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "doctran",
	Short: "Layout-preserving document translation",
	Long: `doctran translates documents while preserving their layout.

Text is extracted per page (from the PDF text layer, or via OCR for
scanned pages), translated in batches, fitted back into the original
bounding boxes, and rendered over the source page.

Examples:
  doctran translate input.pdf -o output.pdf --target de
  doctran translate scan.pdf -o out.pdf --source en --target fr
  doctran serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// SetVersionInfo sets the version string shown by --version.
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/doctran, /etc/doctran)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if globalConfig == nil {
			initConfig()
		}

		var logLevel slog.Level
		if globalConfig.Verbose {
			logLevel = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "info":
				logLevel = slog.LevelInfo
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				logLevel = slog.LevelInfo
			}
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	}
}

// initConfig reads the config file and environment.
func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the resolved configuration, re-reading viper so
// flag bindings registered after the initial load take effect.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling configuration: %v\n", err)
		return globalConfig
	}
	return &cfg
}

// buildPipeline assembles the translation pipeline from configuration.
func buildPipeline(cfg *config.Config, progress pipeline.ProgressFunc) (*pipeline.Pipeline, error) {
	backend := translate.NewOpenAIBackend(cfg.Backend)
	return pipeline.NewBuilder().
		WithBackend(backend).
		WithExtractConfig(cfg.Extract.ToExtract()).
		WithTranslateConfig(cfg.Translate).
		WithConstraints(cfg.Reconcile).
		WithRenderConfig(cfg.Render).
		WithWorkers(cfg.Workers).
		WithProgress(progress).
		Build()
}
