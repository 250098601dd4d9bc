package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/llm"
)

func TestBuild(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	speaker := 2

	state := &entity.GameState{
		Day:                1,
		Phase:              "night",
		MyPlayerIndex:      4,
		MyRole:             "WITCH",
		MyHasHealPotion:    true,
		AlivePlayerIndexes: []int{1, 2, 4},
		Players: []entity.Player{
			{PlayerIndex: 1, Name: "a", IsAlive: true},
			{PlayerIndex: 3, Name: "c", IsAlive: false},
		},
		History: []entity.HistoryMessage{{Day: 1, Phase: "day", PlayerIndex: &speaker, Content: "I am the seer"}},
	}
	killed := 1
	turn := &entity.Turn{
		CanAct:     true,
		ActionType: entity.ActionWitch,
		ActionContext: entity.ActionContext{
			KilledPlayer:  &killed,
			HasHealPotion: true,
			Deadline:      entity.FlexTime{Time: now.Add(30 * time.Second)},
		},
	}
	task := &config.Task{Type: TaskColdWitch, Name: "cold", Description: "no potions on night one", Reward: "10"}

	// When: messages are built
	messages := Build(state, turn, task, now)

	// Then: system, history and action prompts are present in order
	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "You are player 4")
	assert.Contains(t, messages[0].Content, "Witch potions: heal available, poison used")
	assert.Contains(t, messages[0].Content, "Player 3: c, dead")
	assert.Contains(t, messages[0].Content, "Your task:")

	assert.Contains(t, messages[1].Content, "player 2: I am the seer")

	action := messages[2].Content
	assert.Contains(t, action, "Time left: 30 seconds")
	assert.Contains(t, action, "Killed tonight: player 1")
	assert.Contains(t, action, "You must skip using potions")
	assert.Contains(t, action, `"action": "heal"|"poison"|"skip"`)
}

func TestBuild_NoHistoryNoTask(t *testing.T) {
	state := &entity.GameState{Day: 2, Phase: "day", MyRole: "villager"}
	turn := &entity.Turn{CanAct: true, ActionType: entity.ActionVote, RemainingTime: 12,
		ActionContext: entity.ActionContext{AvailableTargets: []int{2, 5}}}

	messages := Build(state, turn, nil, time.Now())

	require.Len(t, messages, 2)
	assert.NotContains(t, messages[0].Content, "Your task:")
	assert.Contains(t, messages[1].Content, "Time left: 12 seconds")
	assert.Contains(t, messages[1].Content, "Vote targets: 2, 5 (you may abstain)")
}

func TestActionFormat(t *testing.T) {
	assert.Equal(t, `{"actionType": "kill", "target": <player number>}`, ActionFormat(entity.ActionKill))
	assert.Equal(t, `{"actionType": "speech", "content": "<what you say>"}`, ActionFormat(entity.ActionSpeech))
	assert.Equal(t, `{"actionType": "skip"}`, ActionFormat(entity.ActionSkip))
}
