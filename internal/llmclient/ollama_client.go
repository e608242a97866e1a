// internal/llmclient/ollama_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/config"
)

// OllamaClient talks to a local Ollama server through its chat endpoint.
type OllamaClient struct {
	endpoint       string
	model          string
	httpClient     *http.Client
	logger         *zap.Logger
	backoffFactory func() backoff.BackOff
}

// -- Ollama API Request/Response Structures --

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

// NewOllamaClient initializes the client.
func NewOllamaClient(cfg config.AgentConfig, logger *zap.Logger) (*OllamaClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("Ollama endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("Ollama model is required")
	}
	return &OllamaClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/") + "/api/chat",
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger.Named("llm_client.ollama"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

func (c *OllamaClient) buildRequestPayload(req Request) ollamaChatRequest {
	user := ollamaMessage{Role: "user", Content: req.UserPrompt}
	for _, img := range req.Images {
		user.Images = append(user.Images, base64.StdEncoding.EncodeToString(img))
	}
	payload := ollamaChatRequest{
		Model:   c.model,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
	}
	if req.SystemPrompt != "" {
		payload.Messages = append(payload.Messages, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	payload.Messages = append(payload.Messages, user)
	if req.JSON {
		payload.Format = "json"
	}
	return payload
}

// Generate sends the request and retries transient failures with exponential backoff.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var content string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var parsed ollamaChatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if parsed.Error != "" {
			return backoff.Permanent(fmt.Errorf("ollama error: %s", parsed.Error))
		}
		if strings.TrimSpace(parsed.Message.Content) == "" {
			return fmt.Errorf("ollama returned an empty message")
		}

		c.logger.Debug("LLM generation complete (Ollama)",
			zap.Duration("duration", time.Since(start)),
			zap.Int("prompt_tokens", parsed.PromptEvalCount),
			zap.Int("completion_tokens", parsed.EvalCount),
			zap.Int("images", len(req.Images)),
		)
		content = parsed.Message.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func (c *OllamaClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Ollama API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("ollama API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err
	default:
		return backoff.Permanent(err)
	}
}
