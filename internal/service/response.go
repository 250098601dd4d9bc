package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

var (
	ErrNoJSON      = errors.New("no json object in response")
	ErrBadTarget   = errors.New("target is not a player number")
	fencedObjectRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
)

type rawAction struct {
	ActionType string          `json:"actionType"`
	Target     json.RawMessage `json:"target"`
	Action     string          `json:"action"`
	Content    string          `json:"content"`
}

// ParseAction turns a free-form model answer into an action for the requested turn.
//
// The requested action type is authoritative: whatever type the model wrote is replaced by it
// and returned as claimed, so callers can report the disagreement. Every failure wraps
// apperror.ErrDecision.
func ParseAction(text string, requested entity.ActionType) (*entity.Action, entity.ActionType, error) {
	object := extractObject(text)
	if object == "" {
		return nil, "", fmt.Errorf("%w: %w", apperror.ErrDecision, ErrNoJSON)
	}

	var raw rawAction
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return nil, "", fmt.Errorf("%w: malformed json: %w", apperror.ErrDecision, err)
	}

	target, err := parseTarget(raw.Target)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", apperror.ErrDecision, err)
	}

	action := &entity.Action{
		ActionType: requested,
		Target:     target,
		Action:     strings.ToLower(strings.TrimSpace(raw.Action)),
		Content:    strings.TrimSpace(raw.Content),
	}

	if err = action.Normalize(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", apperror.ErrDecision, err)
	}

	return action, entity.ActionType(strings.TrimSpace(raw.ActionType)), nil
}

// extractObject prefers a fenced code block and falls back to the first balanced object that is valid json.
func extractObject(text string) string {
	if m := fencedObjectRe.FindStringSubmatch(text); m != nil && json.Valid([]byte(m[1])) {
		return m[1]
	}

	// braces in prose are skipped until one opens a valid object
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 && json.Valid([]byte(text[start:end+1])) {
			return text[start : end+1]
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return ""
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

func parseTarget(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return intTarget(number)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadTarget, raw)
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "null") {
		return nil, nil
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadTarget, text)
	}

	return intTarget(number)
}

func intTarget(number float64) (*int, error) {
	if number != math.Trunc(number) || number < 0 || number > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %v", ErrBadTarget, number)
	}

	target := int(number)

	return &target, nil
}
