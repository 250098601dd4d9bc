package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/llm"
	"github.com/rocketscienceinc/werewolf-agent/internal/prompt"
)

type llmOracle struct {
	logger *slog.Logger
	chat   llm.Client
	task   *config.Task
	now    func() time.Time
}

// NewLLMOracle - asks the chat model and validates its answer against the pending turn.
func NewLLMOracle(logger *slog.Logger, chat llm.Client, task *config.Task) Oracle {
	return &llmOracle{
		logger: logger.With("component", "llm_oracle"),
		chat:   chat,
		task:   task,
		now:    time.Now,
	}
}

func (that *llmOracle) Name() string {
	return "llm"
}

func (that *llmOracle) Decide(ctx context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error) {
	if turn == nil || !turn.CanAct {
		return nil, nil
	}

	messages := prompt.Build(state, turn, that.task, that.now())

	started := time.Now()
	text, err := that.chat.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrDecision, err)
	}

	that.logger.Debug("model replied", "action_type", turn.ActionType, "elapsed", time.Since(started).String(), "chars", len(text))

	action, claimed, err := ParseAction(text, turn.ActionType)
	if err != nil {
		that.logger.Warn("unusable model reply", "action_type", turn.ActionType, "error", err)
		return nil, err
	}

	if claimed != "" && claimed != turn.ActionType {
		that.logger.Warn("model answered for another action type, coerced",
			"requested", turn.ActionType, "claimed", claimed)
	}

	return action, nil
}
