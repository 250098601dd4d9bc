package entity

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

const (
	RoleWerewolf = "werewolf"
	RoleWitch    = "witch"
	RoleSeer     = "seer"
	RoleVillager = "villager"
)

// GameState is the snapshot returned by the status endpoint. The agent never mutates it.
type GameState struct {
	Status             string           `json:"status"`
	Day                int              `json:"day"`
	Phase              string           `json:"phase"`
	MyPlayerIndex      int              `json:"myPlayerIndex"`
	MyRole             string           `json:"myRole"`
	MyIsAlive          bool             `json:"myIsAlive"`
	MyHasHealPotion    bool             `json:"myHasHealPotion,omitempty"`
	MyHasPoisonPotion  bool             `json:"myHasPoisonPotion,omitempty"`
	AlivePlayerIndexes []int            `json:"alivePlayerIndexes"`
	Players            []Player         `json:"players"`
	History            []HistoryMessage `json:"history"`
	MyTurn             *Turn            `json:"myTurn"`
}

type Player struct {
	PlayerIndex int    `json:"playerIndex"`
	Name        string `json:"name"`
	IsAlive     bool   `json:"isAlive"`
	Role        string `json:"role,omitempty"`
}

type HistoryMessage struct {
	Timestamp   FlexTime `json:"timestamp"`
	Day         int      `json:"day,omitempty"`
	Phase       string   `json:"phase,omitempty"`
	PlayerIndex *int     `json:"playerIndex,omitempty"`
	Content     string   `json:"content"`
}

// Turn describes what the seat may do right now. It is produced fresh every poll.
type Turn struct {
	CanAct        bool          `json:"canAct"`
	ActionType    ActionType    `json:"actionType"`
	ActionContext ActionContext `json:"actionContext"`
	RemainingTime int           `json:"remainingTime"`
}

// ActionContext carries the action-specific parameters of a turn.
type ActionContext struct {
	ActionType             ActionType `json:"actionType,omitempty"`
	AvailableTargets       []int      `json:"availableTargets,omitempty"`
	Teammates              []int      `json:"teammates,omitempty"`
	KilledPlayer           *int       `json:"killedPlayer,omitempty"`
	HasHealPotion          bool       `json:"hasHealPotion,omitempty"`
	HasPoisonPotion        bool       `json:"hasPoisonPotion,omitempty"`
	AvailablePoisonTargets []int      `json:"availablePoisonTargets,omitempty"`
	DeathReason            string     `json:"deathReason,omitempty"`
	PKCandidates           []int      `json:"pkCandidates,omitempty"`
	Deadline               FlexTime   `json:"deadline,omitempty"`
	Hint                   string     `json:"hint,omitempty"`
}

func (that *GameState) IsFinished() bool {
	return that.Status == StatusFinished
}

// PendingTurn returns the turn when the seat can act, nil otherwise.
func (that *GameState) PendingTurn() *Turn {
	if that.MyTurn == nil || !that.MyTurn.CanAct {
		return nil
	}

	return that.MyTurn
}

// RoleIs compares roles case-insensitively; the server sends both "WEREWOLF" and "werewolf".
func (that *GameState) RoleIs(role string) bool {
	return strings.EqualFold(that.MyRole, role)
}

// WerewolfTeammates lists living werewolves other than this seat, when roles are visible.
func (that *GameState) WerewolfTeammates() []int {
	var mates []int
	for _, p := range that.Players {
		if strings.EqualFold(p.Role, RoleWerewolf) && p.PlayerIndex != that.MyPlayerIndex && p.IsAlive {
			mates = append(mates, p.PlayerIndex)
		}
	}

	return mates
}

// FlexTime decodes RFC3339 strings, zone-less ISO strings and epoch milliseconds.
// Values it cannot read decode to the zero time, since no decision depends on them.
type FlexTime struct {
	time.Time
}

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

func (that *FlexTime) UnmarshalJSON(data []byte) error {
	that.Time = time.Time{}

	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = raw
	}
	s = strings.TrimSpace(s)

	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		that.Time = time.UnixMilli(int64(ms))
		return nil
	}

	for _, layout := range flexLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			that.Time = parsed
			return nil
		}
	}

	return nil
}

func (that FlexTime) MarshalJSON() ([]byte, error) {
	if that.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(that.Time.Format(time.RFC3339Nano))
}
