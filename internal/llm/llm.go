package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	maxErrorBody = 800
)

var (
	ErrEmptyResponse = errors.New("llm returned no content")
	ErrHTTPStatus    = errors.New("llm http error")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a single chat turn against a text model.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// New - builds the transport for the configured provider.
func New(logger *slog.Logger, conf *config.LLM) (Client, error) {
	httpClient := &http.Client{Timeout: conf.Timeout + 5*time.Second}

	switch conf.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(logger, httpClient, conf), nil
	case config.ProviderBedrock:
		return NewBedrock(logger, httpClient, conf), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, conf.Provider)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}

	return s[:n-3] + "..."
}
