// Package oracle sends collected tab summaries to an OpenAI-compatible chat
// endpoint and returns the model's reply as text.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is LM Studio's local server.
	DefaultBaseURL = "http://127.0.0.1:1234/v1"
	DefaultModel   = "meta-llama-3.1-8b-instruct"
	DefaultTimeout = 120 * time.Second

	SystemPrompt = "You are a helpful assistant."
	Instruction  = "Cluster the following web pages into groups based on their content:"

	maxResponseBytes = 4 << 20
)

// Client talks to one chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIKey sets a bearer token. Local servers usually need none.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a Client with LM Studio defaults.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// BuildPrompt joins summary lines under the clustering instruction.
func BuildPrompt(lines []string) string {
	return Instruction + "\n" + strings.Join(lines, "\n")
}

// Cluster asks the model to cluster the given summary lines and returns its
// reply text. Errors are *types.CodedError with an ORACLE_* code.
func (c *Client) Cluster(ctx context.Context, lines []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := map[string]any{
		"model": c.model,
		"messages": []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(BuildPrompt(lines)),
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.NewError(types.CodeOracleUnavailable, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.CodeOracleUnavailable, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	slog.Info("oracle request", "model", c.model, "lines", len(lines), "prompt_chars", len(payload))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", types.NewError(types.CodeOracleUnavailable,
			fmt.Sprintf("oracle returned status %d: %s", resp.StatusCode, snippet(body)), nil)
	}

	text, err := DecodeReply(body)
	if err != nil {
		return "", err
	}
	slog.Info("oracle reply", "status", resp.StatusCode, "reply_chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.CodeOracleTimeout, "oracle did not answer in time", err)
	}
	return types.NewError(types.CodeOracleUnavailable, "oracle request failed", err)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
