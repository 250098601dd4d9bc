package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

const (
	basePath        = "/api/player-agent/game/"
	requestIDHeader = "X-Request-Id"
	maxErrorBody    = 800
)

var ErrUnsuccessful = errors.New("server reported success=false")

// Client talks to the game server on behalf of one seat.
type Client struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	token   string
}

func New(logger *slog.Logger, baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger.With("component", "gameapi"),
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Result  string          `json:"result,omitempty"`
	Error   *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetGameStatus - fetches the current snapshot of the game.
func (that *Client) GetGameStatus(ctx context.Context, gameID string) (*entity.GameState, error) {
	env, err := that.do(ctx, http.MethodGet, gameID, "status", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrFetch, err)
	}

	if !env.Success {
		return nil, fmt.Errorf("%w: %w: %s", apperror.ErrFetch, ErrUnsuccessful, env.Message)
	}

	var state entity.GameState
	if err = json.Unmarshal(env.Data, &state); err != nil {
		return nil, fmt.Errorf("%w: failed to decode game status: %w", apperror.ErrFetch, err)
	}

	return &state, nil
}

// SendReady - tells the server this seat is ready.
func (that *Client) SendReady(ctx context.Context, gameID string) (string, error) {
	env, err := that.do(ctx, http.MethodPost, gameID, "ready", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrReady, err)
	}

	if !env.Success {
		return env.Message, fmt.Errorf("%w: %w: %s", apperror.ErrReady, ErrUnsuccessful, env.Message)
	}

	return env.Message, nil
}

// SubmitAction - posts the action for the current turn. A non-2xx answer is returned as *APIError
// classified as duplicate, stale or transient.
func (that *Client) SubmitAction(ctx context.Context, gameID string, action *entity.Action) (*entity.ActionResult, error) {
	body, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("%w: could not marshal action: %w", apperror.ErrSubmission, err)
	}

	env, err := that.do(ctx, http.MethodPost, gameID, "action", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.kind = classifySubmission(apiErr.Code, apiErr.Message)
			return nil, apiErr
		}

		return nil, fmt.Errorf("%w: %w", apperror.ErrSubmission, err)
	}

	return &entity.ActionResult{
		Success: env.Success,
		Message: env.Message,
		Result:  env.Result,
	}, nil
}

func (that *Client) do(ctx context.Context, method, gameID, endpoint string, body []byte) (*envelope, error) {
	url := that.baseURL + basePath + gameID + "/" + endpoint
	requestID := uuid.NewString()
	log := that.logger.With("method", method, "endpoint", endpoint, "request_id", requestID)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+that.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	log.Debug("Sending request", "url", url, "body", string(body))

	started := time.Now()
	resp, err := that.http.Do(req)
	if err != nil {
		log.Debug("Request failed", "error", err, "elapsed", time.Since(started))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	log.Debug("Received response", "status", resp.StatusCode, "elapsed", time.Since(started))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		switch {
		case decodeErr == nil && env.Error != nil:
			apiErr.Code = env.Error.Code
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
		case decodeErr == nil && env.Message != "":
			apiErr.Message = env.Message
		case decodeErr != nil && len(raw) > 0:
			apiErr.Message = truncate(strings.TrimSpace(string(raw)), maxErrorBody)
		}

		log.Debug("Server rejected request", "status", resp.StatusCode, "code", apiErr.Code, "message", apiErr.Message)

		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("malformed response: %w", decodeErr)
	}

	return &env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}
