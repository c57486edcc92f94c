package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

// translateCmd translates a single document file.
var translateCmd = &cobra.Command{
	Use:   "translate [input]",
	Short: "Translate a document, preserving its layout",
	Long: `Translate a PDF or image document into the target language.

Born-digital PDFs use their embedded text layer. Image input (PNG,
JPEG) requires an OCR engine to be configured.

Examples:
  doctran translate report.pdf -o report_de.pdf --target de
  doctran translate paper.pdf -o out.pdf --source en --target fr`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	input := args[0]

	if v, _ := cmd.Flags().GetString("source"); v != "" {
		cfg.SourceLang = v
	}
	if v, _ := cmd.Flags().GetString("target"); v != "" {
		cfg.TargetLang = v
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Backend.Model = v
	}
	source, target, err := cfg.Languages()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		ext := filepath.Ext(input)
		output = strings.TrimSuffix(input, ext) + "_" + cfg.TargetLang + ".pdf"
	}

	var progress pipeline.ProgressFunc
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		progress = func(status pipeline.Status, page, total int) {
			if page > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "page %d/%d: %s\n", page, total, status)
			}
		}
	}

	p, err := buildPipeline(cfg, progress)
	if err != nil {
		return err
	}

	out, err := os.Create(output) //nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("create output %s: %w", output, err)
	}
	defer func() { _ = out.Close() }()

	var summary *pipeline.Summary
	switch strings.ToLower(filepath.Ext(input)) {
	case ".png", ".jpg", ".jpeg":
		f, err := os.Open(input) //nolint:gosec // user-chosen input path
		if err != nil {
			return err
		}
		img, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("decode image %s: %w", input, err)
		}
		summary, err = p.ProcessImage(cmd.Context(), img, source, target, out)
		if err != nil {
			return err
		}
	default:
		summary, err = p.ProcessPDF(cmd.Context(), input, source, target, out)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Translated %s -> %s: %d/%d pages, %d regions translated, %d fallback, %d overflow\n",
		input, output, summary.Rendered, summary.Pages,
		summary.Translated, summary.Fallback, summary.Overflow)
	for _, f := range summary.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "page %d failed: %s\n", f.Page, f.Reason)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringP("output", "o", "", "output file (default: <input>_<target>.pdf)")
	translateCmd.Flags().StringP("source", "s", "", "source language tag (default from config)")
	translateCmd.Flags().StringP("target", "t", "", "target language tag (default from config)")
	translateCmd.Flags().Int("workers", 0, "concurrent page workers (0 = number of CPUs)")
	translateCmd.Flags().String("model", "", "override translation model")
	translateCmd.Flags().BoolP("quiet", "q", false, "suppress per-page progress output")
}
