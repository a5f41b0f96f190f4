package replygen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Compile-time assertion that OpenAI satisfies Generator.
var _ Generator = (*OpenAI)(nil)

// OpenAI generates replies through any OpenAI-compatible chat completion
// API. Pointing it at a non-OpenAI server (llama.cpp, vLLM, LocalAI) only
// requires WithOpenAIBaseURL.
type OpenAI struct {
	client oai.Client
	model  string

	temperature float64
	maxTokens   int64
}

// openaiConfig holds optional configuration collected by options.
type openaiConfig struct {
	baseURL string
	timeout time.Duration
}

// OpenAIOption is a functional option for configuring an OpenAI generator.
type OpenAIOption func(*openaiConfig)

// WithOpenAIBaseURL overrides the default API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithOpenAITimeout sets a per-request HTTP timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) { c.timeout = d }
}

// NewOpenAI creates an OpenAI-backed generator.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("replygen: openai apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("replygen: openai model must not be empty")
	}

	cfg := &openaiConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &OpenAI{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		temperature: 0.3,
		maxTokens:   120,
	}, nil
}

// GenerateReply runs one chat completion with the persona as the system
// message and the utterance as the user message.
func (g *OpenAI) GenerateReply(ctx context.Context, req Request) (string, error) {
	userText := strings.TrimSpace(req.UserText)
	if userText == "" {
		return "", nil
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oai.UserMessage(userText))

	params := oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            messages,
		Temperature:         param.NewOpt(g.temperature),
		MaxCompletionTokens: param.NewOpt(g.maxTokens),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &BackendError{Backend: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Backend: "openai", Err: fmt.Errorf("empty choices in response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
