package entity

import (
	"fmt"
	"time"
)

// TurnKey identifies one turn of this seat. The server never issues two actions of the
// same type within one day and phase, so the triple is the uniqueness boundary.
type TurnKey struct {
	Day        int        `json:"day"`
	Phase      string     `json:"phase"`
	ActionType ActionType `json:"actionType"`
}

// TurnKeyOf derives the key of the state's current turn. A state without a turn
// yields a key with an empty action type.
func TurnKeyOf(state *GameState) TurnKey {
	key := TurnKey{Day: state.Day, Phase: state.Phase}
	if state.MyTurn != nil {
		key.ActionType = state.MyTurn.ActionType
	}

	return key
}

func (that TurnKey) IsZero() bool {
	return that == TurnKey{}
}

func (that TurnKey) String() string {
	return fmt.Sprintf("%d-%s-%s", that.Day, that.Phase, that.ActionType)
}

const (
	OutcomeSubmitted = "submitted"
	OutcomeRejected  = "rejected"
	OutcomeClosed    = "closed"
	OutcomeFailed    = "failed"
)

// JournalEntry is the audit record of one submission attempt.
type JournalEntry struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id"`
	TurnKey   TurnKey   `json:"turn_key"`
	Action    *Action   `json:"action"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	Result    string    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
