package service

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/llm"
)

// Oracle decides the action for a pending turn. A nil action without error means
// "do nothing this turn".
type Oracle interface {
	Decide(ctx context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error)
	Name() string
}

// NewOracle - installs the LLM oracle when it is configured and has credentials,
// the heuristic one otherwise.
func NewOracle(logger *slog.Logger, conf *config.Config) (Oracle, error) {
	heuristic := NewHeuristicOracle(&conf.Task, 0)
	if !conf.UseLLM() {
		if conf.Oracle == config.OracleLLM {
			logger.Warn("LLM oracle requested without api key, using heuristic oracle")
		}
		return heuristic, nil
	}

	chat, err := llm.New(logger, &conf.LLM)
	if err != nil {
		return nil, err
	}

	return NewLLMOracle(logger, chat, &conf.Task), nil
}
