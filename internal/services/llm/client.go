package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout     = 5 * time.Minute
	defaultBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultAzureAPIVersion = "2024-02-01"

	// FinishReasonLength is reported when the provider truncated the completion
	// because the context window was exhausted.
	FinishReasonLength = "length"
)

// Config captures the runtime settings required to talk to the LLM.
// When AzureEndpoint is set, requests target the Azure OpenAI deployment
// named by Model instead of BaseURL.
type Config struct {
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	Model           string
	TimeoutSeconds  int
}

// DefaultHTTPTimeout returns the default timeout used for LLM requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimSpace(cfg.BaseURL),
			AzureEndpoint:   strings.TrimRight(strings.TrimSpace(cfg.AzureEndpoint), "/"),
			AzureAPIVersion: strings.TrimSpace(cfg.AzureAPIVersion),
			Model:           strings.TrimSpace(cfg.Model),
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.AzureAPIVersion == "" {
		client.cfg.AzureAPIVersion = defaultAzureAPIVersion
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Model returns the configured model (or Azure deployment) name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one chat completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// Choice is one candidate completion.
type Choice struct {
	Message      Message
	FinishReason string
}

// Usage reports the provider's token accounting for a call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the decoded completion.
type Response struct {
	Choices []Choice
	Usage   Usage
}

// APIError is returned for non-2xx provider responses. Code and Type come from
// the provider's error envelope when present.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = summarizePayloadSnippet(e.Body)
	}
	if e.Code != "" {
		return fmt.Sprintf("llm request: http %d (%s): %s", e.StatusCode, e.Code, detail)
	}
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, detail)
}

// Complete sends a single chat completion request. It performs no retries;
// callers decide how to handle overload and context-length failures.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("llm complete: api key required")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("llm complete: at least one message required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	payload := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if c.cfg.AzureEndpoint != "" {
		// Azure addresses the deployment in the URL.
		payload.Model = ""
	}
	completion, err := c.sendChatRequestOnce(ctx, model, payload)
	if err != nil {
		return nil, err
	}
	resp := &Response{Usage: completion.Usage}
	for _, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Message: Message{
				Role:    choice.Message.Role,
				Content: firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text),
			},
			FinishReason: strings.TrimSpace(choice.FinishReason),
		})
	}
	return resp, nil
}

// HealthCheck issues a minimal completion to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.Complete(ctx, Request{
		Messages:    []Message{{Role: "user", Content: "Reply with the single word: ok"}},
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("llm health: empty choices")
	}
	return nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers mistakenly return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage          `json:"usage"`
	Error *errorEnvelope `json:"error"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *errorEnvelope) code() string {
	if e == nil || e.Code == nil {
		return ""
	}
	switch v := e.Code.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *Client) endpoint(model string) (string, error) {
	if c.cfg.AzureEndpoint == "" {
		return c.cfg.BaseURL, nil
	}
	base, err := url.JoinPath(c.cfg.AzureEndpoint, "openai", "deployments", model, "chat", "completions")
	if err != nil {
		return "", err
	}
	return base + "?api-version=" + url.QueryEscape(c.cfg.AzureAPIVersion), nil
}

func (c *Client) sendChatRequestOnce(ctx context.Context, model string, payload chatCompletionRequest) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	endpoint, err := c.endpoint(model)
	if err != nil {
		return completion, fmt.Errorf("llm request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("llm request: new request: %w", err)
	}
	if c.cfg.AzureEndpoint != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, newAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       completion.Error.code(),
			Type:       strings.TrimSpace(completion.Error.Type),
			Message:    strings.TrimSpace(completion.Error.Message),
			Body:       strings.TrimSpace(string(body)),
		}
		return completion, apiErr
	}
	return completion, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	var envelope struct {
		Error *errorEnvelope `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.code()
		apiErr.Type = strings.TrimSpace(envelope.Error.Type)
		apiErr.Message = strings.TrimSpace(envelope.Error.Message)
	}
	return apiErr
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil {
		return defaultHTTPTimeout
	}
	if c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
