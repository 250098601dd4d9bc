package service

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/prompt"
)

const (
	lastWordsText = "I am one of the good guys. Pass."
	wolfSpeech    = "I am player %d and I am one of the good guys. Pass."
	goodSpeech    = "I am player %d and I am one of the good guys, please trust me."
	pkSpeech      = "I think there is a werewolf among players %s, please think it through."
)

type heuristicOracle struct {
	task *config.Task

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicOracle - random-but-legal play with no I/O. A zero seed picks a time-based one.
func NewHeuristicOracle(task *config.Task, seed int64) Oracle {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &heuristicOracle{
		task: task,
		rng:  rand.New(rand.NewSource(seed)), //nolint: gosec // it's ok
	}
}

func (that *heuristicOracle) Name() string {
	return "heuristic"
}

func (that *heuristicOracle) Decide(_ context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error) {
	if turn == nil || !turn.CanAct {
		return nil, nil
	}

	ctx := turn.ActionContext

	switch turn.ActionType {
	case entity.ActionKill:
		return that.kill(state, ctx), nil
	case entity.ActionCheck:
		target, ok := that.pick(ctx.AvailableTargets)
		if !ok {
			return nil, nil
		}
		return entity.NewTargetAction(entity.ActionCheck, target), nil
	case entity.ActionWitch:
		return that.witch(state, ctx), nil
	case entity.ActionLastWords:
		return entity.NewSpeechAction(entity.ActionLastWords, lastWordsText), nil
	case entity.ActionSpeech:
		return that.speech(state), nil
	case entity.ActionVote:
		return that.vote(entity.ActionVote, ctx.AvailableTargets), nil
	case entity.ActionPKSpeech:
		return entity.NewSpeechAction(entity.ActionPKSpeech, fmt.Sprintf(pkSpeech, joinSeats(ctx.PKCandidates))), nil
	case entity.ActionPKVote:
		return that.vote(entity.ActionPKVote, ctx.PKCandidates), nil
	case entity.ActionSkip:
		return &entity.Action{ActionType: entity.ActionSkip}, nil
	default:
		return nil, nil
	}
}

// kill prefers a non-teammate; a self-kill task overrides the choice.
func (that *heuristicOracle) kill(state *entity.GameState, ctx entity.ActionContext) *entity.Action {
	if that.hasTask(prompt.TaskSelfKillWerewolf) && slices.Contains(ctx.AvailableTargets, state.MyPlayerIndex) {
		return entity.NewTargetAction(entity.ActionKill, state.MyPlayerIndex)
	}

	candidates := make([]int, 0, len(ctx.AvailableTargets))
	for _, idx := range ctx.AvailableTargets {
		if !slices.Contains(ctx.Teammates, idx) {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		candidates = ctx.AvailableTargets
	}

	target, ok := that.pick(candidates)
	if !ok {
		return nil
	}

	return entity.NewTargetAction(entity.ActionKill, target)
}

func (that *heuristicOracle) witch(state *entity.GameState, ctx entity.ActionContext) *entity.Action {
	if that.hasTask(prompt.TaskColdWitch) && state.Day == 1 {
		return &entity.Action{ActionType: entity.ActionWitch, Action: entity.WitchSkip}
	}

	if ctx.KilledPlayer != nil && ctx.HasHealPotion {
		return &entity.Action{ActionType: entity.ActionWitch, Action: entity.WitchHeal}
	}

	if ctx.HasPoisonPotion {
		if target, ok := that.pick(ctx.AvailablePoisonTargets); ok {
			return &entity.Action{ActionType: entity.ActionWitch, Action: entity.WitchPoison, Target: &target}
		}
	}

	return &entity.Action{ActionType: entity.ActionWitch, Action: entity.WitchSkip}
}

func (that *heuristicOracle) speech(state *entity.GameState) *entity.Action {
	if that.hasTask(prompt.TaskSilentVillager) && state.RoleIs(entity.RoleVillager) {
		return entity.NewSpeechAction(entity.ActionSpeech, "")
	}

	text := goodSpeech
	if state.RoleIs(entity.RoleWerewolf) {
		text = wolfSpeech
	}

	return entity.NewSpeechAction(entity.ActionSpeech, fmt.Sprintf(text, state.MyPlayerIndex))
}

func (that *heuristicOracle) vote(actionType entity.ActionType, candidates []int) *entity.Action {
	target, ok := that.pick(candidates)
	if !ok {
		return entity.NewAbstainAction(actionType)
	}

	return entity.NewTargetAction(actionType, target)
}

func (that *heuristicOracle) pick(candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return candidates[that.rng.Intn(len(candidates))], true
}

func (that *heuristicOracle) hasTask(taskType string) bool {
	return that.task != nil && that.task.Type == taskType
}

func joinSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = fmt.Sprint(s)
	}

	return strings.Join(parts, ", ")
}
