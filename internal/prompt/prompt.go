// Package prompt turns a game snapshot into chat messages for the LLM oracle.
// Everything here is pure formatting.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/llm"
)

const (
	TaskColdWitch        = "cold_witch"
	TaskSelfKillWerewolf = "self_kill_werewolf"
	TaskSilentVillager   = "silent_villager"
)

// Build returns the system prompt, the public history (when any) and the action prompt.
func Build(state *entity.GameState, turn *entity.Turn, task *config.Task, now time.Time) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt(state, task)}}

	if history := historyContent(state); history != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: history})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: actionPrompt(state, turn, task, now)})

	return messages
}

func systemPrompt(state *entity.GameState, task *config.Task) string {
	var b strings.Builder

	b.WriteString("You are an AI player in a game of Werewolf.\n\n")
	b.WriteString("Current game:\n")
	fmt.Fprintf(&b, "- You are player %d\n", state.MyPlayerIndex)
	fmt.Fprintf(&b, "- Your role: %s\n", state.MyRole)
	fmt.Fprintf(&b, "- Day: %d\n", state.Day)
	fmt.Fprintf(&b, "- Phase: %s\n\n", state.Phase)

	if task != nil && task.IsSet() {
		b.WriteString("Your task:\n")
		fmt.Fprintf(&b, "- Name: %s\n", task.Name)
		fmt.Fprintf(&b, "- Description: %s\n", task.Description)
		fmt.Fprintf(&b, "- Reward: %s points\n", task.Reward)
		fmt.Fprintf(&b, "- Type: %s\n\n", task.Type)
		b.WriteString("Completing the task earns the reward, so weigh it in every decision.\n\n")
	}

	b.WriteString("Players:\n")
	for _, p := range state.Players {
		status := "alive"
		if !p.IsAlive {
			status = "dead"
		}
		role := ""
		if p.Role != "" {
			role = " (role: " + p.Role + ")"
		}
		fmt.Fprintf(&b, "- Player %d: %s, %s%s\n", p.PlayerIndex, p.Name, status, role)
	}
	fmt.Fprintf(&b, "\nAlive players: %s\n\n", joinInts(state.AlivePlayerIndexes))

	if state.RoleIs(entity.RoleWitch) {
		fmt.Fprintf(&b, "Witch potions: heal %s, poison %s\n\n", have(state.MyHasHealPotion), have(state.MyHasPoisonPotion))
	}

	if state.RoleIs(entity.RoleWerewolf) {
		if mates := state.WerewolfTeammates(); len(mates) > 0 {
			fmt.Fprintf(&b, "Your werewolf teammates: %s\n\n", joinInts(mates))
		}
	}

	return b.String()
}

func historyContent(state *entity.GameState) string {
	if len(state.History) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Game history:\n\n")

	for _, msg := range state.History {
		var parts []string
		if !msg.Timestamp.IsZero() {
			parts = append(parts, "["+msg.Timestamp.Format(time.TimeOnly)+"]")
		}
		if msg.Day > 0 {
			parts = append(parts, "day "+strconv.Itoa(msg.Day))
		}
		if msg.Phase != "" {
			parts = append(parts, "["+msg.Phase+"]")
		}
		if msg.PlayerIndex != nil {
			parts = append(parts, "player "+strconv.Itoa(*msg.PlayerIndex))
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.Join(parts, " "), msg.Content)
	}

	return b.String()
}

func actionPrompt(state *entity.GameState, turn *entity.Turn, task *config.Task, now time.Time) string {
	ctx := turn.ActionContext

	var b strings.Builder
	b.WriteString("\nIt is your turn to act.\n\n")
	fmt.Fprintf(&b, "Action type: %s\n", turn.ActionType)
	fmt.Fprintf(&b, "Time left: %d seconds\n", remainingSeconds(turn, now))

	hint := ctx.Hint
	if hint == "" {
		hint = "decide based on the current situation"
	}
	fmt.Fprintf(&b, "Hint: %s\n\n", hint)

	b.WriteString(taskReminder(state, turn, task))

	switch turn.ActionType {
	case entity.ActionKill:
		fmt.Fprintf(&b, "Kill targets: %s\n", joinInts(ctx.AvailableTargets))
		if len(ctx.Teammates) > 0 {
			fmt.Fprintf(&b, "Your werewolf teammates: %s\n", joinInts(ctx.Teammates))
		}
	case entity.ActionCheck:
		fmt.Fprintf(&b, "Check targets: %s\n", joinInts(ctx.AvailableTargets))
	case entity.ActionWitch:
		if ctx.KilledPlayer != nil {
			fmt.Fprintf(&b, "Killed tonight: player %d\n", *ctx.KilledPlayer)
		} else {
			b.WriteString("Nobody was killed tonight\n")
		}
		fmt.Fprintf(&b, "Heal potion: %s\n", have(ctx.HasHealPotion))
		fmt.Fprintf(&b, "Poison potion: %s\n", have(ctx.HasPoisonPotion))
		if len(ctx.AvailablePoisonTargets) > 0 {
			fmt.Fprintf(&b, "Poison targets: %s\n", joinInts(ctx.AvailablePoisonTargets))
		}
	case entity.ActionLastWords:
		fmt.Fprintf(&b, "You died (%s). Give your last words.\n", ctx.DeathReason)
	case entity.ActionSpeech:
		b.WriteString("It is your turn to speak.\n")
	case entity.ActionVote:
		fmt.Fprintf(&b, "Vote targets: %s (you may abstain)\n", joinInts(ctx.AvailableTargets))
	case entity.ActionPKSpeech:
		fmt.Fprintf(&b, "PK candidates: %s\n", joinInts(ctx.PKCandidates))
	case entity.ActionPKVote:
		fmt.Fprintf(&b, "PK candidates: %s (you must pick one)\n", joinInts(ctx.PKCandidates))
	}

	b.WriteString("\nDecide and reply strictly in this JSON format:\n")
	b.WriteString(ActionFormat(turn.ActionType))

	return b.String()
}

func taskReminder(state *entity.GameState, turn *entity.Turn, task *config.Task) string {
	if task == nil || !task.IsSet() {
		return ""
	}

	switch {
	case task.Type == TaskColdWitch && state.Day == 1 && turn.ActionType == entity.ActionWitch:
		return fmt.Sprintf("Task reminder: %s. You must skip using potions!\n\n", task.Description)
	case task.Type == TaskSelfKillWerewolf && turn.ActionType == entity.ActionKill:
		return fmt.Sprintf("Task reminder: %s. You must kill yourself (player %d)!\n\n", task.Description, state.MyPlayerIndex)
	case task.Type == TaskSilentVillager && turn.ActionType == entity.ActionSpeech && state.RoleIs(entity.RoleVillager):
		return fmt.Sprintf("Task reminder: %s. You may not speak, reply with empty content!\n\n", task.Description)
	default:
		return ""
	}
}

// ActionFormat is the reply shape the model is asked to follow.
func ActionFormat(actionType entity.ActionType) string {
	switch actionType {
	case entity.ActionKill, entity.ActionCheck, entity.ActionPKVote:
		return fmt.Sprintf(`{"actionType": "%s", "target": <player number>}`, actionType)
	case entity.ActionWitch:
		return `{"actionType": "witch_action", "action": "heal"|"poison"|"skip", "target": <player number, only for poison>}`
	case entity.ActionLastWords, entity.ActionSpeech, entity.ActionPKSpeech:
		return fmt.Sprintf(`{"actionType": "%s", "content": "<what you say>"}`, actionType)
	case entity.ActionVote:
		return `{"actionType": "vote", "target": <player number>|null (null abstains)}`
	default:
		return fmt.Sprintf(`{"actionType": "%s"}`, actionType)
	}
}

func remainingSeconds(turn *entity.Turn, now time.Time) int {
	if deadline := turn.ActionContext.Deadline; !deadline.IsZero() {
		return max(0, int(deadline.Sub(now).Seconds()))
	}

	return max(0, turn.RemainingTime)
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "none"
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ", ")
}

func have(ok bool) string {
	if ok {
		return "available"
	}

	return "used"
}
