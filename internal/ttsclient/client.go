// Package ttsclient is the HTTP client for the speech synthesis service.
// One call sends the user's text and gets back a complete WAV clip plus
// the bot's textual reply.
package ttsclient

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

// botResponseHeader carries the generated reply text alongside the audio
// body, so the client can log what is about to be spoken.
const botResponseHeader = "X-Bot-Response"

// Result is a successful synthesis response.
type Result struct {
	// WAV is the complete audio clip.
	WAV []byte

	// BotResponse is the reply text the clip speaks.
	BotResponse string
}

// StatusError reports a non-200 response from the synthesis service.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ttsclient: server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("ttsclient: server returned %d", e.StatusCode)
}

// Client talks to the synthesis service.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. The default of 60s covers
// reply generation plus synthesis on slow hardware.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type ttsRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Speak sends text through the reply-and-synthesize pipeline and returns
// the audio plus the reply text. Non-200 responses become a [StatusError]
// with the server's detail message.
func (c *Client) Speak(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(ttsRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ttsclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ttsclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ttsclient: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := ""
		var er errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&er); err == nil {
			detail = er.Detail
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ttsclient: read audio: %w", err)
	}

	return &Result{
		WAV:         wav,
		BotResponse: resp.Header.Get(botResponseHeader),
	}, nil
}
