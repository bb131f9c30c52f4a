package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSystemPrompt = `Вы профессиональный литературный переводчик.
Переведите следующий текст на русский язык.
Сохраняйте оригинальный стиль, тон и литературное качество.
Сохраняйте разбивку на абзацы и форматирование.`

type DeepSeekClientConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	FallbackModel   string
	Timeout         time.Duration
	MaxRetries      int
	Temperature     float64
	MaxOutputTokens int
	DefaultPrompt   string
	HTTPClient      *http.Client
}

// DeepSeekClient talks to a DeepSeek-compatible chat completions endpoint.
type DeepSeekClient struct {
	apiKey          string
	baseURL         string
	models          []string
	timeout         time.Duration
	maxRetries      int
	temperature     float64
	maxOutputTokens int
	defaultPrompt   string
	httpClient      *http.Client
}

func NewDeepSeekClient(config DeepSeekClientConfig) *DeepSeekClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.deepseek.com/v1"
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = "deepseek-chat"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 8000
	}
	if strings.TrimSpace(config.DefaultPrompt) == "" {
		config.DefaultPrompt = defaultSystemPrompt
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	models := []string{config.Model}
	if fallback := strings.TrimSpace(config.FallbackModel); fallback != "" && fallback != config.Model {
		models = append(models, fallback)
	}

	return &DeepSeekClient{
		apiKey:          strings.TrimSpace(config.APIKey),
		baseURL:         strings.TrimSuffix(config.BaseURL, "/"),
		models:          models,
		timeout:         config.Timeout,
		maxRetries:      config.MaxRetries,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
		defaultPrompt:   config.DefaultPrompt,
		httpClient:      config.HTTPClient,
	}
}

func (c *DeepSeekClient) Available() bool {
	return c.apiKey != ""
}

// Model is the primary model name. Output produced by the fallback model is
// keyed under it too: the fallback approximates the primary, not a distinct
// configuration.
func (c *DeepSeekClient) Model() string {
	return c.models[0]
}

// Translate calls the backend with up to maxRetries attempts per model,
// exponential backoff between attempts, and the fallback model once the
// primary is exhausted on retryable failures.
func (c *DeepSeekClient) Translate(ctx context.Context, request Request) (string, error) {
	if !c.Available() {
		return "", ErrBackendUnavailable
	}
	if strings.TrimSpace(request.Text) == "" {
		return "", fmt.Errorf("%w: empty segment text", ErrTranslationFailed)
	}

	var lastErr error
	for _, model := range c.models {
		payload, err := json.Marshal(c.buildPayload(model, request))
		if err != nil {
			return "", fmt.Errorf("marshal deepseek payload: %w", err)
		}

		for attempt := 0; attempt < c.maxRetries; attempt++ {
			text, callErr := c.callChatCompletions(ctx, payload)
			if callErr == nil {
				return text, nil
			}
			lastErr = callErr

			if !isRetryableError(callErr) || attempt == c.maxRetries-1 {
				break
			}

			backoff := time.Duration(500<<attempt) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if lastErr != nil && !isRetryableError(lastErr) {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown deepseek error")
	}
	return "", fmt.Errorf("%w: %s", ErrTranslationFailed, lastErr)
}

func (c *DeepSeekClient) buildPayload(model string, request Request) map[string]any {
	systemPrompt := strings.TrimSpace(request.Instructions)
	if systemPrompt == "" {
		systemPrompt = c.defaultPrompt
	}
	if request.SourceLang != "" && request.SourceLang != "auto" && request.TargetLang != "" {
		systemPrompt += fmt.Sprintf("\nНаправление перевода: %s -> %s.", request.SourceLang, request.TargetLang)
	}

	var user strings.Builder
	if strings.TrimSpace(request.Context) != "" {
		user.WriteString("Этот текст является частью большого документа. ")
		user.WriteString("Предыдущий фрагмент приведён только для контекста и уже был переведён.\n\n")
		user.WriteString("Контекст (не переводить):\n")
		user.WriteString(request.Context)
		user.WriteString("\n\nПереведите только НОВЫЙ текст ниже, сохраняя согласованность ")
		user.WriteString("со стилем и терминологией контекстной части.\n\n")
	}
	user.WriteString("Текст: ")
	user.WriteString(request.Text)

	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": user.String()},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxOutputTokens,
	}
}

func (c *DeepSeekClient) callChatCompletions(ctx context.Context, payload []byte) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create deepseek request: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("deepseek timeout: %w", err)
		}
		return "", fmt.Errorf("deepseek transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", fmt.Errorf("read deepseek body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return "", &backendHTTPError{
			StatusCode: httpResponse.StatusCode,
			Message:    message,
		}
	}

	var raw chatCompletionsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode deepseek response: %w", err)
	}

	text := extractChoiceText(raw)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("deepseek response without text output")
	}
	return text, nil
}

type chatCompletionsResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func extractChoiceText(response chatCompletionsResponse) string {
	for _, choice := range response.Choices {
		if strings.TrimSpace(choice.Message.Content) != "" {
			return choice.Message.Content
		}
	}
	return ""
}

type backendHTTPError struct {
	StatusCode int
	Message    string
}

func (e *backendHTTPError) Error() string {
	return fmt.Sprintf("deepseek status %d: %s", e.StatusCode, e.Message)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *backendHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "timeout") || strings.Contains(message, "tempor")
}
