package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
)

const (
	bedrockVersion   = "bedrock-2023-05-31"
	defaultMaxTokens = 4096
)

// Bedrock calls Claude models through the Bedrock runtime REST API with a bearer key.
type Bedrock struct {
	logger *slog.Logger
	http   *http.Client

	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func NewBedrock(logger *slog.Logger, httpClient *http.Client, conf *config.LLM) *Bedrock {
	maxTokens := conf.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Bedrock{
		logger:      logger.With("component", "llm", "provider", config.ProviderBedrock),
		http:        httpClient,
		baseURL:     fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", conf.AWSRegion),
		apiKey:      conf.APIKey,
		model:       conf.Model,
		maxTokens:   maxTokens,
		temperature: conf.Temperature,
	}
}

type bedrockRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// splitSystem folds system messages into one prompt; everything else becomes user or assistant.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	conversation := make([]Message, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			conversation = append(conversation, msg)
		default:
			conversation = append(conversation, Message{Role: RoleUser, Content: msg.Content})
		}
	}

	return strings.Join(system, "\n\n"), conversation
}

func (that *Bedrock) Chat(ctx context.Context, messages []Message) (string, error) {
	system, conversation := splitSystem(messages)

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockVersion,
		System:           system,
		Messages:         conversation,
		MaxTokens:        that.maxTokens,
		Temperature:      that.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal bedrock request: %w", err)
	}

	url := that.baseURL + "/model/" + that.model + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not build bedrock request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+that.apiKey)

	started := time.Now()
	resp, err := that.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("bedrock request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read bedrock response: %w", err)
	}

	that.logger.Debug("Chat completed", "status", resp.StatusCode, "messages", len(messages), "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	var br bedrockResponse
	if err = json.Unmarshal(raw, &br); err != nil {
		return "", fmt.Errorf("could not decode bedrock response: %w", err)
	}

	var text strings.Builder
	for _, block := range br.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}
