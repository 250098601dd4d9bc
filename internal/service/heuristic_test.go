package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/prompt"
)

func TestHeuristicOracle_Decide(t *testing.T) {
	ctx := context.Background()
	killed := 3

	tests := []struct {
		name  string
		task  *config.Task
		state *entity.GameState
		turn  *entity.Turn
		check func(t *testing.T, action *entity.Action)
	}{
		{
			name:  "kill avoids teammates",
			state: &entity.GameState{MyPlayerIndex: 1, MyRole: entity.RoleWerewolf},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionKill, ActionContext: entity.ActionContext{
				AvailableTargets: []int{1, 2, 5}, Teammates: []int{1, 2},
			}},
			check: func(t *testing.T, action *entity.Action) {
				require.NotNil(t, action.Target)
				assert.Equal(t, 5, *action.Target)
			},
		},
		{
			name:  "self kill task targets own seat",
			task:  &config.Task{Type: prompt.TaskSelfKillWerewolf},
			state: &entity.GameState{MyPlayerIndex: 2, MyRole: entity.RoleWerewolf},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionKill, ActionContext: entity.ActionContext{
				AvailableTargets: []int{2, 4, 6},
			}},
			check: func(t *testing.T, action *entity.Action) {
				require.NotNil(t, action.Target)
				assert.Equal(t, 2, *action.Target)
			},
		},
		{
			name:  "check without targets does nothing",
			state: &entity.GameState{},
			turn:  &entity.Turn{CanAct: true, ActionType: entity.ActionCheck},
			check: func(t *testing.T, action *entity.Action) {
				assert.Nil(t, action)
			},
		},
		{
			name:  "witch heals the victim",
			state: &entity.GameState{Day: 1, MyRole: entity.RoleWitch},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionWitch, ActionContext: entity.ActionContext{
				KilledPlayer: &killed, HasHealPotion: true, HasPoisonPotion: true, AvailablePoisonTargets: []int{4},
			}},
			check: func(t *testing.T, action *entity.Action) {
				assert.Equal(t, entity.WitchHeal, action.Action)
				assert.Nil(t, action.Target)
			},
		},
		{
			name:  "cold witch skips on night one",
			task:  &config.Task{Type: prompt.TaskColdWitch},
			state: &entity.GameState{Day: 1, MyRole: entity.RoleWitch},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionWitch, ActionContext: entity.ActionContext{
				KilledPlayer: &killed, HasHealPotion: true,
			}},
			check: func(t *testing.T, action *entity.Action) {
				assert.Equal(t, entity.WitchSkip, action.Action)
			},
		},
		{
			name:  "witch poisons without a victim",
			state: &entity.GameState{Day: 2, MyRole: entity.RoleWitch},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionWitch, ActionContext: entity.ActionContext{
				HasPoisonPotion: true, AvailablePoisonTargets: []int{6},
			}},
			check: func(t *testing.T, action *entity.Action) {
				assert.Equal(t, entity.WitchPoison, action.Action)
				require.NotNil(t, action.Target)
				assert.Equal(t, 6, *action.Target)
			},
		},
		{
			name:  "vote abstains without candidates",
			state: &entity.GameState{},
			turn:  &entity.Turn{CanAct: true, ActionType: entity.ActionVote},
			check: func(t *testing.T, action *entity.Action) {
				assert.Equal(t, entity.ActionVote, action.ActionType)
				assert.Nil(t, action.Target)
			},
		},
		{
			name:  "pk vote picks a candidate",
			state: &entity.GameState{},
			turn: &entity.Turn{CanAct: true, ActionType: entity.ActionPKVote, ActionContext: entity.ActionContext{
				PKCandidates: []int{7},
			}},
			check: func(t *testing.T, action *entity.Action) {
				require.NotNil(t, action.Target)
				assert.Equal(t, 7, *action.Target)
			},
		},
		{
			name:  "silent villager says nothing",
			task:  &config.Task{Type: prompt.TaskSilentVillager},
			state: &entity.GameState{MyRole: entity.RoleVillager, MyPlayerIndex: 3},
			turn:  &entity.Turn{CanAct: true, ActionType: entity.ActionSpeech},
			check: func(t *testing.T, action *entity.Action) {
				assert.Equal(t, entity.ActionSpeech, action.ActionType)
				assert.Empty(t, action.Content)
			},
		},
		{
			name:  "speech mentions own seat",
			state: &entity.GameState{MyRole: entity.RoleSeer, MyPlayerIndex: 3},
			turn:  &entity.Turn{CanAct: true, ActionType: entity.ActionSpeech},
			check: func(t *testing.T, action *entity.Action) {
				assert.Contains(t, action.Content, "player 3")
			},
		},
		{
			name:  "unknown action type is ignored",
			state: &entity.GameState{},
			turn:  &entity.Turn{CanAct: true, ActionType: "dance"},
			check: func(t *testing.T, action *entity.Action) {
				assert.Nil(t, action)
			},
		},
		{
			name:  "cannot act",
			state: &entity.GameState{},
			turn:  &entity.Turn{CanAct: false, ActionType: entity.ActionVote},
			check: func(t *testing.T, action *entity.Action) {
				assert.Nil(t, action)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewHeuristicOracle(tt.task, 42)

			action, err := oracle.Decide(ctx, tt.state, tt.turn)

			require.NoError(t, err)
			tt.check(t, action)
		})
	}
}

func TestHeuristicOracle_ActionsAreValid(t *testing.T) {
	// Given: every action type with some targets
	oracle := NewHeuristicOracle(nil, 7)
	state := &entity.GameState{Day: 2, MyPlayerIndex: 1, MyRole: entity.RoleWerewolf}
	types := []entity.ActionType{
		entity.ActionKill, entity.ActionCheck, entity.ActionWitch, entity.ActionLastWords,
		entity.ActionSpeech, entity.ActionVote, entity.ActionPKSpeech, entity.ActionPKVote, entity.ActionSkip,
	}

	for _, actionType := range types {
		turn := &entity.Turn{CanAct: true, ActionType: actionType, ActionContext: entity.ActionContext{
			AvailableTargets: []int{2, 3}, PKCandidates: []int{2, 3},
		}}

		// When: the oracle decides
		action, err := oracle.Decide(context.Background(), state, turn)

		// Then: the action carries the requested type and passes normalization
		require.NoError(t, err)
		require.NotNil(t, action, actionType)
		assert.Equal(t, actionType, action.ActionType)
		assert.NoError(t, action.Normalize(), actionType)
	}
}
