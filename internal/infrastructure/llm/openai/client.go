package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
)

const (
	defaultChatPath  = "/v1/chat/completions"
	defaultEmbedPath = "/v1/embeddings"
)

type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	ChatPath   string
	EmbedPath  string
	Timeout    time.Duration
	// RateLimitRPS <= 0 disables client-side throttling.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Client talks to an OpenAI-compatible chat/embedding API.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	chatPath   string
	embedPath  string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithResilience(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		chatModel:  strings.TrimSpace(cfg.ChatModel),
		embedModel: strings.TrimSpace(cfg.EmbedModel),
		chatPath:   pathOrDefault(cfg.ChatPath, defaultChatPath),
		embedPath:  pathOrDefault(cfg.EmbedPath, defaultEmbedPath),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func pathOrDefault(path, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// ChatCompleter is the generation/verification facade over Client.
type ChatCompleter struct {
	client *Client
}

func NewChatCompleter(client *Client) *ChatCompleter {
	return &ChatCompleter{client: client}
}

func (c *ChatCompleter) Enabled() bool {
	return c != nil && c.client != nil && c.client.baseURL != "" && c.client.chatModel != ""
}

func (c *ChatCompleter) ChatComplete(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error) {
	if !c.Enabled() {
		return "", domain.WrapError(domain.ErrServiceDisabled, "chat complete", fmt.Errorf("chat model is not configured"))
	}

	request := chatRequest{
		Model:       c.client.chatModel,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}

	var response chatResponse
	if err := c.client.call(ctx, "chat", c.client.chatPath, request, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrMalformedResponse, "chat complete", fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Enabled() bool {
	return e != nil && e.client != nil && e.client.baseURL != "" && e.client.embedModel != ""
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.Enabled() {
		return nil, domain.WrapError(domain.ErrServiceDisabled, "embed", fmt.Errorf("embedding model is not configured"))
	}

	request := embedRequest{
		Model: e.client.embedModel,
		Input: []string{text},
	}

	var response embedResponse
	if err := e.client.call(ctx, "embed", e.client.embedPath, request, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "embed", fmt.Errorf("empty embedding result"))
	}
	return response.Data[0].Embedding, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("llm %s rate limit wait: %w", operation, err)
		}
	}

	run := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}
	var err error
	if c.executor == nil {
		err = run(ctx)
	} else {
		err = c.executor.Execute(ctx, "llm."+operation, run, classifyLLMError)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "llm_request_failed", "operation", operation, "error", err)
	}
	return wrapTemporaryIfNeeded("llm."+operation, err)
}
