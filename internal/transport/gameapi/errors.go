package gameapi

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
)

// APIError is a non-2xx answer from the game server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	kind error
}

func (that *APIError) Error() string {
	if that.Code != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", that.StatusCode, that.Message, that.Code)
	}

	return fmt.Sprintf("HTTP %d: %s", that.StatusCode, that.Message)
}

// Unwrap exposes the classified kind of a submission error, so callers can use errors.Is
// against apperror sentinels. Errors of other endpoints are not classified.
func (that *APIError) Unwrap() error {
	return that.kind
}

var (
	duplicateCodes = map[string]struct{}{
		"ACTION_ALREADY_SUBMITTED": {},
		"DUPLICATE_ACTION":         {},
	}
	staleCodes = map[string]struct{}{
		"ACTION_TYPE_MISMATCH": {},
		"STALE_TURN":           {},
		"PHASE_MISMATCH":       {},
	}
)

// classifySubmission prefers the structured code and falls back to the message text
// for servers that only send a message.
func classifySubmission(code, message string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := duplicateCodes[code]; ok {
		return apperror.ErrDuplicateSubmission
	}
	if _, ok := staleCodes[code]; ok {
		return apperror.ErrStaleTurn
	}

	switch {
	case strings.Contains(message, "already submitted"):
		return apperror.ErrDuplicateSubmission
	case strings.Contains(message, "Action type mismatch"), strings.Contains(message, "actionType"):
		return apperror.ErrStaleTurn
	default:
		return apperror.ErrSubmission
	}
}
