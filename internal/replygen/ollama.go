package replygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaBaseURL is where a locally running Ollama daemon listens.
const DefaultOllamaBaseURL = "http://127.0.0.1:11434"

const availabilityTimeout = 2 * time.Second

// Compile-time assertions.
var (
	_ Generator   = (*Ollama)(nil)
	_ ModelLister = (*Ollama)(nil)
)

// Ollama generates replies via a local Ollama daemon using its
// non-streaming /api/generate endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client

	temperature float64
	numPredict  int
}

// OllamaOption is a functional option for configuring an Ollama generator.
type OllamaOption func(*Ollama)

// WithOllamaBaseURL overrides the daemon base URL.
func WithOllamaBaseURL(url string) OllamaOption {
	return func(o *Ollama) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithOllamaTimeout sets the per-request timeout. Defaults to 30s.
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(o *Ollama) { o.client.Timeout = d }
}

// NewOllama creates an Ollama generator with the given default model.
func NewOllama(model string, opts ...OllamaOption) (*Ollama, error) {
	if model == "" {
		return nil, fmt.Errorf("replygen: ollama model must not be empty")
	}
	o := &Ollama{
		baseURL:     DefaultOllamaBaseURL,
		model:       model,
		client:      &http.Client{Timeout: 30 * time.Second},
		temperature: 0.3,
		numPredict:  120,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// GenerateReply sends a single non-streaming generation request. The
// system prompt and user text are folded into one completion-style prompt.
func (o *Ollama) GenerateReply(ctx context.Context, req Request) (string, error) {
	userText := strings.TrimSpace(req.UserText)
	if userText == "" {
		return "", nil
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	prompt := fmt.Sprintf("%s\n\nUser: %s\nAssistant:", req.SystemPrompt, userText)

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": o.temperature,
			"num_predict": o.numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("replygen: encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("replygen: build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &BackendError{Backend: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &BackendError{
			Backend: "ollama",
			Err:     fmt.Errorf("generate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &BackendError{Backend: "ollama", Err: fmt.Errorf("decode response: %w", err)}
	}
	return strings.TrimSpace(out.Response), nil
}

// Available reports whether the daemon answers its /api/tags endpoint.
// Used by health checks; it never blocks longer than two seconds.
func (o *Ollama) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of all models the daemon serves.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("replygen: build tags request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{Backend: "ollama", Err: fmt.Errorf("tags returned status %d", resp.StatusCode)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &BackendError{Backend: "ollama", Err: fmt.Errorf("decode tags: %w", err)}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
