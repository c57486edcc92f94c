package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status: "healthy",
		Time:   nowRFC3339(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}

// translateHandler accepts a document upload and starts an
// asynchronous translation run. The response carries the run ID for
// status polling and download.
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeError(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, "No document file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	var magic [5]byte
	if _, err := io.ReadFull(file, magic[:]); err != nil || string(magic[:]) != "%PDF-" {
		s.writeError(w, "Unsupported document type, expected a PDF", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.writeError(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	source, target, err := s.requestLanguages(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	run := s.runs.create()
	inputPath := filepath.Join(s.outputDir, run.ID+".in.pdf")
	dst, err := os.Create(inputPath) //nolint:gosec // path is server-generated
	if err != nil {
		s.writeError(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		s.writeError(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	_ = dst.Close()

	go s.runTranslation(run, inputPath, source, target)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := TranslateAccepted{ID: run.ID, Status: run.Snapshot().Status}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode translate response", "error", err)
	}
}

// runTranslation drives one run to completion in the background.
func (s *Server) runTranslation(run *pipeline.DocumentRun, inputPath string, source, target language.Tag) {
	defer func() { _ = os.Remove(inputPath) }()

	run.SetStatus(pipeline.StatusExtracting)
	start := time.Now()

	outputPath := filepath.Join(s.outputDir, run.ID+".pdf")
	out, err := os.Create(outputPath) //nolint:gosec // path is server-generated
	if err != nil {
		run.Fail(err)
		translationRunsTotal.WithLabelValues(string(pipeline.StatusFailed)).Inc()
		return
	}

	summary, err := s.pipeline.ProcessPDF(context.Background(), inputPath, source, target, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(outputPath)
		run.Fail(err)
		translationRunsTotal.WithLabelValues(string(pipeline.StatusFailed)).Inc()
		slog.Error("translation run failed", "run", run.ID, "error", err)
		return
	}

	run.Complete(summary, outputPath)
	translationRunsTotal.WithLabelValues(string(pipeline.StatusComplete)).Inc()
	translationDuration.Observe(time.Since(start).Seconds())
	translationPages.Observe(float64(summary.Pages))
	fallbackRegionsTotal.Add(float64(summary.Fallback))
	slog.Info("translation run complete", "run", run.ID,
		"pages", summary.Pages, "rendered", summary.Rendered,
		"fallback_regions", summary.Fallback, "overflow_regions", summary.Overflow)
}

// requestLanguages resolves source and target from form values, falling
// back to the server defaults.
func (s *Server) requestLanguages(r *http.Request) (source, target language.Tag, err error) {
	source, target = s.sourceLang, s.targetLang
	if v := r.FormValue("source"); v != "" {
		source, err = language.Parse(v)
		if err != nil {
			return language.Und, language.Und, fmt.Errorf("invalid source language %q", v)
		}
	}
	if v := r.FormValue("target"); v != "" {
		target, err = language.Parse(v)
		if err != nil {
			return language.Und, language.Und, fmt.Errorf("invalid target language %q", v)
		}
	}
	return source, target, nil
}

// statusHandler returns the current state of a run.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, "Run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run.Snapshot()); err != nil {
		slog.Error("failed to encode run status", "error", err)
	}
}

// downloadHandler serves the rendered document of a completed run.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, "Run not found", http.StatusNotFound)
		return
	}
	snap := run.Snapshot()
	if snap.Status != pipeline.StatusComplete {
		s.writeError(w, fmt.Sprintf("Run is %s, not complete", snap.Status), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", run.ID+".pdf"))
	http.ServeFile(w, r, run.OutputPath())
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
