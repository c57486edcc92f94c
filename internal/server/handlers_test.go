package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/config"
	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

// fakeProcessor stands in for the pipeline: it writes a minimal PDF
// marker and returns a canned summary.
type fakeProcessor struct {
	err   error
	delay time.Duration
}

func (f *fakeProcessor) ProcessPDF(_ context.Context, _ string, _, _ language.Tag, out io.Writer) (*pipeline.Summary, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	_, _ = out.Write([]byte("%PDF-1.7 fake"))
	return &pipeline.Summary{Pages: 2, Rendered: 2, Translated: 5, Fallback: 1}, nil
}

func serverConfig(t *testing.T) config.Server {
	t.Helper()
	cfg := config.DefaultConfig().Server
	cfg.RateLimitPerMin = 0
	cfg.OutputDir = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T, proc processor, cfg config.Server) *httptest.Server {
	t.Helper()
	s, err := NewServer(proc, cfg, language.English, language.German)
	require.NoError(t, err)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func uploadRequest(t *testing.T, url string, fields map[string]string) *http.Request {
	t.Helper()
	return uploadRequestWithContent(t, url, []byte("%PDF-1.4 test document"), fields)
}

func uploadRequestWithContent(t *testing.T, url string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("document", "input.pdf")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/translate", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func startRun(t *testing.T, ts *httptest.Server, fields map[string]string) TranslateAccepted {
	t.Helper()
	resp, err := http.DefaultClient.Do(uploadRequest(t, ts.URL, fields))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted TranslateAccepted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.ID)
	return accepted
}

func runStatus(t *testing.T, ts *httptest.Server, id string) pipeline.RunSnapshot {
	t.Helper()
	resp, err := http.Get(ts.URL + "/runs/" + id)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap pipeline.RunSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestHealthHandler(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
}

func TestTranslate_RunCompletesAndDownloads(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))
	accepted := startRun(t, ts, nil)

	require.Eventually(t, func() bool {
		return runStatus(t, ts, accepted.ID).Status == pipeline.StatusComplete
	}, 5*time.Second, 20*time.Millisecond)

	snap := runStatus(t, ts, accepted.ID)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 2, snap.Summary.Pages)
	assert.Equal(t, 5, snap.Summary.Translated)

	resp, err := http.Get(ts.URL + "/runs/" + accepted.ID + "/download")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestTranslate_FailedRun(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{err: errors.New("all pages failed")}, serverConfig(t))
	accepted := startRun(t, ts, nil)

	require.Eventually(t, func() bool {
		return runStatus(t, ts, accepted.ID).Status == pipeline.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	snap := runStatus(t, ts, accepted.ID)
	assert.Contains(t, snap.Error, "all pages failed")
}

func TestTranslate_NoFile(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/translate", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranslate_RejectsNonPDFUpload(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	png := []byte("\x89PNG\r\n\x1a\nnot a pdf")
	resp, err := http.DefaultClient.Do(uploadRequestWithContent(t, ts.URL, png, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestTranslate_InvalidLanguage(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	resp, err := http.DefaultClient.Do(uploadRequest(t, ts.URL, map[string]string{"target": "not a tag!"}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatus_NotFound(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	resp, err := http.Get(ts.URL + "/runs/missing")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownload_RunStillProcessing(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{delay: 2 * time.Second}, serverConfig(t))
	accepted := startRun(t, ts, nil)

	resp, err := http.Get(ts.URL + "/runs/" + accepted.ID + "/download")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := serverConfig(t)
	cfg.RateLimitPerMin = 1
	ts := newTestServer(t, &fakeProcessor{}, cfg)

	resp, err := http.DefaultClient.Do(uploadRequest(t, ts.URL, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.DefaultClient.Do(uploadRequest(t, ts.URL, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProgressSocket_StreamsUntilComplete(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, serverConfig(t))
	accepted := startRun(t, ts, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/runs/" + accepted.ID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var snap pipeline.RunSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read progress: %v", err)
		}
		if snap.Status == pipeline.StatusComplete {
			require.NotNil(t, snap.Summary)
			return
		}
	}
	t.Fatal("run never reported completion over the socket")
}

func TestRateLimiter_Check(t *testing.T) {
	rl := NewRateLimiter(2)
	require.NoError(t, rl.Check("client"))
	require.NoError(t, rl.Check("client"))

	err := rl.Check("client")
	require.Error(t, err)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 2, rle.Limit)

	// Other clients have their own window.
	require.NoError(t, rl.Check("other"))
}
