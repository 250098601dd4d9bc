package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
)

// OpenAI speaks the chat/completions protocol; deepseek and most gateways accept it too.
type OpenAI struct {
	logger *slog.Logger
	http   *http.Client

	url         string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func NewOpenAI(logger *slog.Logger, httpClient *http.Client, conf *config.LLM) *OpenAI {
	return &OpenAI{
		logger:      logger.With("component", "llm", "provider", config.ProviderOpenAI),
		http:        httpClient,
		url:         conf.APIURL,
		apiKey:      conf.APIKey,
		model:       conf.Model,
		maxTokens:   conf.MaxTokens,
		temperature: conf.Temperature,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (that *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       that.model,
		Messages:    messages,
		MaxTokens:   that.maxTokens,
		Temperature: that.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+that.apiKey)

	started := time.Now()
	resp, err := that.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read chat response: %w", err)
	}

	that.logger.Debug("Chat completed", "status", resp.StatusCode, "messages", len(messages), "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	var cc chatResponse
	if err = json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("could not decode chat response: %w", err)
	}

	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrEmptyResponse)
	}

	return cc.Choices[0].Message.Content, nil
}
