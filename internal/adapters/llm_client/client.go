package llm_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/port"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
)

// Config для клиента OpenAI-совместимого Chat Completions API
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature *float64
}

// Client реализует port.LanguageModelPort. Состояния между вызовами нет,
// один экземпляр можно использовать из разных запросов одновременно.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	httpClient  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm client: API key is required")
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// doRequest - внутренний хелпер: авторизация, заголовки, trace_id
func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// Complete отправляет промпт одним user-сообщением и возвращает текст ответа
func (c *Client) Complete(ctx context.Context, prompt string, hint port.ResponseHint) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	clientLogger := logger.WithFields(port.Fields{
		"component": "LLMClient",
		"model":     c.model,
	})

	reqBody := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	if hint == port.HintJSONObject {
		reqBody.ResponseFormat = &responseFormat{Type: string(port.HintJSONObject)}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm client: failed to marshal request: %w", err)
	}

	startTime := time.Now()
	resp, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		clientLogger.Error("Failed to perform request to language model", err, nil)
		return "", fmt.Errorf("llm client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("llm client: non-success status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		clientLogger.Error("Received non-OK response from language model", err, port.Fields{"status_code": resp.StatusCode})
		return "", err
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		clientLogger.Error("Failed to decode language model response", err, nil)
		return "", fmt.Errorf("llm client: failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm client: api error %s: %s", out.Error.Type, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm client: no choices in response")
	}

	clientLogger.Debug("Language model answered", port.Fields{
		"duration_ms":   time.Since(startTime).Milliseconds(),
		"finish_reason": out.Choices[0].FinishReason,
	})
	return out.Choices[0].Message.Content, nil
}
