package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// blockSeparator delimits the batch members inside one chat
	// completion request and response.
	blockSeparator = "\n---BLOCK_SEPARATOR---\n"

	// defaultAPIURL is the OpenAI chat completions endpoint.
	defaultAPIURL = "https://api.openai.com/v1/chat/completions"

	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible translation backend.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Model   string        `mapstructure:"model" yaml:"model" json:"model"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// OpenAIBackend translates batches through an OpenAI-compatible chat
// completions API. Batch members are joined with a separator token the
// model is instructed to preserve; the response is split on the same
// token. A response with the wrong number of blocks surfaces as a
// short result, which the coordinator treats as a batch mismatch.
type OpenAIBackend struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// NewOpenAIBackend creates the backend, applying defaults for zero
// values and completing the chat/completions path on custom base URLs.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiURL := defaultAPIURL
	if cfg.BaseURL != "" {
		apiURL = normalizeAPIURL(cfg.BaseURL)
	}
	return &OpenAIBackend{
		apiKey: cfg.APIKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// normalizeAPIURL ensures the URL ends with /chat/completions.
func normalizeAPIURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		return url
	}
	return url + "/chat/completions"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// TranslateBatch implements Backend.
func (b *OpenAIBackend) TranslateBatch(ctx context.Context, texts []string, source, target language.Tag) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(
		"Translate the following text blocks from %s to %s. "+
			"Blocks are separated by the token %q. "+
			"Return only the translated blocks, in the same order, separated by the exact same token. "+
			"Do not add commentary, do not merge or split blocks.\n\n%s",
		source, target, strings.TrimSpace(blockSeparator), strings.Join(texts, blockSeparator))

	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a professional document translator."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("translate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate: backend call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("translate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translate: backend returned status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("translate: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("translate: backend error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("translate: backend returned no choices")
	}

	blocks := strings.Split(parsed.Choices[0].Message.Content, strings.TrimSpace(blockSeparator))
	out := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		out = append(out, strings.TrimSpace(blk))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
