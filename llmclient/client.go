package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"medquery/config"
	apperrors "medquery/errors"

	"go.uber.org/zap"
)

// Message is one chat turn sent to the generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carry the explicit per-request generation config; there is no
// hidden global state beyond the configured model and host.
type Options struct {
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client talks to an OpenAI-compatible chat-completions backend
// (OpenRouter and friends). It performs single attempts only; retry
// policy belongs to the caller.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
	}
}

// Chat performs one non-streaming chat completion call. Failures are
// classified into the error taxonomy so callers can distinguish transient
// classes (timeout, rate limit, upstream unavailable, empty output) from
// fatal ones.
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := chatRequest{
		Model:            opts.Model,
		Messages:         messages,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		MaxTokens:        opts.MaxTokens,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
	}
	if reqBody.Model == "" {
		reqBody.Model = c.cfg.LLMModel
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(c.cfg.LLMHost, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.LLMAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
	}
	if c.cfg.LLMSiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.LLMSiteURL)
	}
	if c.cfg.LLMSiteName != "" {
		req.Header.Set("X-Title", c.cfg.LLMSiteName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", apperrors.WrapError(apperrors.ErrGenerationTimeout, err.Error())
		}
		return "", apperrors.WrapErrorf(apperrors.ErrGeneration, "send chat request: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.WrapErrorf(apperrors.ErrGeneration, "read chat response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, bodyBytes)
	}

	var cr chatResponse
	if err := json.Unmarshal(bodyBytes, &cr); err != nil {
		return "", apperrors.WrapErrorf(apperrors.ErrGeneration, "decode chat response: %v", err)
	}
	if len(cr.Choices) == 0 {
		return "", apperrors.WrapError(apperrors.ErrEmptyAnswer, "no response choices")
	}
	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	if text == "" {
		return "", apperrors.WrapError(apperrors.ErrEmptyAnswer, "empty completion content")
	}
	return text, nil
}

func classifyStatus(status int, body []byte) error {
	bodyStr := strings.ToLower(string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.WrapErrorf(apperrors.ErrRateLimited, "llm server status %d", status)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return apperrors.WrapErrorf(apperrors.ErrServiceUnavailable, "llm server status %d", status)
	case strings.Contains(bodyStr, "rate limit") || strings.Contains(bodyStr, "quota") ||
		strings.Contains(bodyStr, "resource_exhausted"):
		return apperrors.WrapErrorf(apperrors.ErrRateLimited, "llm server status %d", status)
	default:
		return apperrors.WrapErrorf(apperrors.ErrGeneration, "llm server status %d: %s", status, truncateBody(body))
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func truncateBody(body []byte) string {
	const maxLogged = 512
	if len(body) > maxLogged {
		return string(body[:maxLogged]) + "..."
	}
	return string(body)
}
