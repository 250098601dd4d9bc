package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ActionType string

const (
	ActionKill      ActionType = "kill"
	ActionCheck     ActionType = "check"
	ActionWitch     ActionType = "witch_action"
	ActionLastWords ActionType = "last_words"
	ActionSpeech    ActionType = "speech"
	ActionVote      ActionType = "vote"
	ActionPKSpeech  ActionType = "pk_speech"
	ActionPKVote    ActionType = "pk_vote"
	ActionSkip      ActionType = "skip"
)

const (
	WitchHeal   = "heal"
	WitchPoison = "poison"
	WitchSkip   = "skip"

	CheckResultWolf = "werewolf"

	maxActionContentLen = 2000
)

var ErrMalformedAction = errors.New("malformed action")

// NeedsTarget reports whether the action is meaningless without a target seat.
func (that ActionType) NeedsTarget() bool {
	return that == ActionKill || that == ActionCheck
}

// AllowsAbstain reports whether a nil target is a valid vote.
func (that ActionType) AllowsAbstain() bool {
	return that == ActionVote || that == ActionPKVote
}

// IsSpeech reports whether the action carries free text.
func (that ActionType) IsSpeech() bool {
	return that == ActionSpeech || that == ActionLastWords || that == ActionPKSpeech
}

// Action is what gets posted to the action endpoint.
type Action struct {
	ActionType ActionType `json:"actionType"`
	Target     *int       `json:"target,omitempty"`
	Action     string     `json:"action,omitempty"`
	Content    string     `json:"content,omitempty"`
}

func NewTargetAction(actionType ActionType, target int) *Action {
	return &Action{ActionType: actionType, Target: &target}
}

func NewAbstainAction(actionType ActionType) *Action {
	return &Action{ActionType: actionType}
}

func NewSpeechAction(actionType ActionType, content string) *Action {
	return &Action{ActionType: actionType, Content: content}
}

// MarshalJSON keeps an explicit null target for votes so abstaining is unambiguous on the wire.
func (that Action) MarshalJSON() ([]byte, error) {
	type plain Action
	if that.Target != nil || !that.ActionType.AllowsAbstain() {
		return json.Marshal(plain(that))
	}

	return json.Marshal(struct {
		plain
		Target *int `json:"target"`
	}{plain: plain(that)})
}

// Normalize checks the payload shape against the action type and trims what the server rejects.
func (that *Action) Normalize() error {
	switch {
	case that.ActionType == "":
		return fmt.Errorf("%w: empty action type", ErrMalformedAction)
	case that.ActionType.NeedsTarget() && that.Target == nil:
		return fmt.Errorf("%w: %s requires a target", ErrMalformedAction, that.ActionType)
	case that.ActionType == ActionWitch:
		switch that.Action {
		case WitchHeal, WitchSkip:
			that.Target = nil
		case WitchPoison:
			if that.Target == nil {
				return fmt.Errorf("%w: poison requires a target", ErrMalformedAction)
			}
		default:
			return fmt.Errorf("%w: unknown witch action %q", ErrMalformedAction, that.Action)
		}
	case that.ActionType.IsSpeech():
		that.Target = nil
		if runes := []rune(that.Content); len(runes) > maxActionContentLen {
			that.Content = string(runes[:maxActionContentLen])
		}
	}

	return nil
}

// ActionResult is the body of a 2xx answer from the action endpoint.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  string `json:"result,omitempty"`
}
