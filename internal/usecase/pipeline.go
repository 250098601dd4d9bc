package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

type Outcome string

const (
	OutcomeIdle           Outcome = "idle"
	OutcomeBusy           Outcome = "busy"
	OutcomeNoAction       Outcome = "no_action"
	OutcomeDecisionFailed Outcome = "decision_failed"
	OutcomeMismatch       Outcome = "mismatch"
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeClosed         Outcome = "closed"
	OutcomeRetry          Outcome = "retry"
)

type oracle interface {
	Decide(ctx context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error)
	Name() string
}

type actionSubmitter interface {
	SubmitAction(ctx context.Context, gameID string, action *entity.Action) (*entity.ActionResult, error)
}

type turnJournal interface {
	Record(ctx context.Context, entry *entity.JournalEntry) error
}

// TurnPipeline drives one pending turn through decision, validation and submission.
type TurnPipeline struct {
	logger    *slog.Logger
	guard     *TurnGuard
	oracle    oracle
	submitter actionSubmitter
	journal   turnJournal

	gameID          string
	playerID        string
	decisionTimeout time.Duration
}

// NewTurnPipeline - journal may be nil. A zero decisionTimeout leaves the oracle unbounded.
func NewTurnPipeline(
	logger *slog.Logger,
	guard *TurnGuard,
	oracle oracle,
	submitter actionSubmitter,
	journal turnJournal,
	gameID, playerID string,
	decisionTimeout time.Duration,
) *TurnPipeline {
	return &TurnPipeline{
		logger:          logger.With("component", "pipeline"),
		guard:           guard,
		oracle:          oracle,
		submitter:       submitter,
		journal:         journal,
		gameID:          gameID,
		playerID:        playerID,
		decisionTimeout: decisionTimeout,
	}
}

// HandleTurn runs the state's pending turn if the guard lets it through.
// The returned error is informational; no outcome is fatal to the caller.
func (that *TurnPipeline) HandleTurn(ctx context.Context, state *entity.GameState) (Outcome, error) {
	key, err := that.guard.Acquire(state)
	switch {
	case errors.Is(err, ErrTurnBusy):
		return OutcomeBusy, nil
	case err != nil:
		return OutcomeIdle, nil
	}
	defer that.guard.Release()

	turn := state.PendingTurn()
	logger := that.logger.With("turn", key.String(), "oracle", that.oracle.Name())
	logger.Info("my turn", "remaining_time", turn.RemainingTime)

	action, err := that.decide(ctx, state, turn)
	if err != nil {
		logger.Warn("decision failed, will retry next cycle", "error", err)
		return OutcomeDecisionFailed, err
	}

	if action == nil {
		logger.Info("oracle chose to do nothing")
		return OutcomeNoAction, nil
	}

	if action.ActionType != turn.ActionType {
		err = fmt.Errorf("%w: requested %s, got %s", apperror.ErrValidationMismatch, turn.ActionType, action.ActionType)
		logger.Warn("refusing to submit", "error", err)
		return OutcomeMismatch, err
	}

	result, err := that.submitter.SubmitAction(ctx, that.gameID, action)
	if err != nil {
		return that.handleSubmitError(ctx, logger, key, action, err)
	}

	that.guard.MarkSubmitted(key)

	if result == nil {
		result = &entity.ActionResult{}
	}

	outcome := entity.OutcomeSubmitted
	if !result.Success {
		outcome = entity.OutcomeRejected
		logger.Warn("server rejected action", "message", result.Message)
	} else {
		logger.Info("action submitted", "action", action.ActionType, "message", result.Message)
	}

	if action.ActionType == entity.ActionCheck && result.Result != "" {
		logger.Info("seer check result",
			"target", *action.Target,
			"result", result.Result,
			"is_werewolf", strings.Contains(strings.ToLower(result.Result), entity.CheckResultWolf))
	}

	that.record(ctx, key, action, outcome, result.Message, result.Result)

	return OutcomeSubmitted, nil
}

func (that *TurnPipeline) decide(ctx context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error) {
	if that.decisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, that.decisionTimeout)
		defer cancel()
	}

	action, err := that.oracle.Decide(ctx, state, turn)
	if err != nil {
		if !errors.Is(err, apperror.ErrDecision) {
			err = fmt.Errorf("%w: %w", apperror.ErrDecision, err)
		}
		return nil, err
	}

	if action == nil {
		return nil, nil
	}

	if err = action.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrDecision, err)
	}

	return action, nil
}

func (that *TurnPipeline) handleSubmitError(
	ctx context.Context,
	logger *slog.Logger,
	key entity.TurnKey,
	action *entity.Action,
	err error,
) (Outcome, error) {
	if apperror.IsTurnClosing(err) {
		that.guard.MarkSubmitted(key)
		logger.Warn("turn closed by server, not retrying", "error", err)
		that.record(ctx, key, action, entity.OutcomeClosed, err.Error(), "")

		return OutcomeClosed, nil
	}

	logger.Error("submission failed, will retry next cycle", "error", err)
	that.record(ctx, key, action, entity.OutcomeFailed, err.Error(), "")

	return OutcomeRetry, err
}

func (that *TurnPipeline) record(ctx context.Context, key entity.TurnKey, action *entity.Action, outcome, message, result string) {
	if that.journal == nil {
		return
	}

	entry := &entity.JournalEntry{
		ID:        uuid.NewString(),
		GameID:    that.gameID,
		PlayerID:  that.playerID,
		TurnKey:   key,
		Action:    action,
		Outcome:   outcome,
		Message:   message,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	if err := that.journal.Record(ctx, entry); err != nil {
		that.logger.Warn("failed to journal turn", "turn", key.String(), "error", err)
	}
}
