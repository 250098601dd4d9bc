package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/werewolf-agent/internal/apperror"
	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

const (
	testGameID   = "game-1"
	testPlayerID = "player-1"
)

var (
	errLLMDown   = errors.New("llm down")
	errBadGate   = errors.New("502 bad gateway")
	errRedisDown = errors.New("redis down")
)

type pipelineDeps struct {
	guard     *TurnGuard
	oracle    *mockOracle
	submitter *mockSubmitter
	journal   *mockJournal
	pipeline  *TurnPipeline
}

func newPipeline(t *testing.T, withJournal bool) *pipelineDeps {
	t.Helper()

	deps := &pipelineDeps{
		guard:     NewTurnGuard(),
		oracle:    newMockOracle(t),
		submitter: newMockSubmitter(t),
	}

	var journal turnJournal
	if withJournal {
		deps.journal = newMockJournal(t)
		journal = deps.journal
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	deps.pipeline = NewTurnPipeline(logger, deps.guard, deps.oracle, deps.submitter, journal, testGameID, testPlayerID, time.Second)

	return deps
}

func TestTurnPipeline_SubmitsOncePerTurn(t *testing.T) {
	ctx := context.Background()

	// Given: day=2 night kill observed on two consecutive cycles
	deps := newPipeline(t, false)
	first := pendingState(2, "night", entity.ActionKill)
	second := pendingState(2, "night", entity.ActionKill)
	kill := entity.NewTargetAction(entity.ActionKill, 4)

	deps.oracle.On("Decide", mock.Anything, first, first.MyTurn).Return(kill, nil).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, kill).
		Return(&entity.ActionResult{Success: true, Message: "ok"}, nil).Once()

	// When: both cycles reach the pipeline
	outcome, err := deps.pipeline.HandleTurn(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)

	outcome, err = deps.pipeline.HandleTurn(ctx, second)

	// Then: the second cycle is idle and nothing else was called
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)
	assert.False(t, deps.guard.ShouldAct(second))
	assert.Equal(t, entity.TurnKeyOf(first), deps.guard.LastSubmitted())
	assert.False(t, deps.guard.InProgress())
}

func TestTurnPipeline_ServerRejectionStillClosesTurn(t *testing.T) {
	deps := newPipeline(t, true)
	state := pendingState(1, "day", entity.ActionVote)
	vote := entity.NewTargetAction(entity.ActionVote, 9)

	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(vote, nil).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, vote).
		Return(&entity.ActionResult{Success: false, Message: "invalid target"}, nil).Once()
	deps.journal.On("Record", mock.Anything, mock.MatchedBy(func(entry *entity.JournalEntry) bool {
		return entry.Outcome == entity.OutcomeRejected && entry.Message == "invalid target" &&
			entry.GameID == testGameID && entry.PlayerID == testPlayerID && entry.ID != ""
	})).Return(nil).Once()

	outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, entity.TurnKeyOf(state), deps.guard.LastSubmitted())
}

func TestTurnPipeline_SubmissionErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOutcome Outcome
		wantClosed  bool
	}{
		{
			name:        "already submitted closes the turn",
			err:         fmt.Errorf("%w: Action already submitted", apperror.ErrDuplicateSubmission),
			wantOutcome: OutcomeClosed,
			wantClosed:  true,
		},
		{
			name:        "type mismatch closes the turn",
			err:         fmt.Errorf("%w: Action type mismatch", apperror.ErrStaleTurn),
			wantOutcome: OutcomeClosed,
			wantClosed:  true,
		},
		{
			name:        "transient error leaves the turn open",
			err:         fmt.Errorf("%w: %w", apperror.ErrSubmission, errBadGate),
			wantOutcome: OutcomeRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newPipeline(t, false)
			state := pendingState(3, "day", entity.ActionSpeech)
			speech := entity.NewSpeechAction(entity.ActionSpeech, "hello")

			deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(speech, nil).Once()
			deps.submitter.On("SubmitAction", mock.Anything, testGameID, speech).Return(nil, tt.err).Once()

			outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantClosed, !deps.guard.ShouldAct(state))
			assert.False(t, deps.guard.InProgress())
			if tt.wantClosed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, errBadGate)
			}
		})
	}
}

func TestTurnPipeline_TransientFailureRedecides(t *testing.T) {
	ctx := context.Background()

	// Given: the first submission fails with a 5xx
	deps := newPipeline(t, false)
	state := pendingState(2, "vote", entity.ActionVote)
	firstVote := entity.NewTargetAction(entity.ActionVote, 1)
	secondVote := entity.NewTargetAction(entity.ActionVote, 2)

	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(firstVote, nil).Once()
	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(secondVote, nil).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, firstVote).
		Return(nil, fmt.Errorf("%w: timeout", apperror.ErrSubmission)).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, secondVote).
		Return(&entity.ActionResult{Success: true}, nil).Once()

	// When: the same turn is observed again
	outcome, err := deps.pipeline.HandleTurn(ctx, state)
	require.ErrorIs(t, err, apperror.ErrSubmission)
	assert.Equal(t, OutcomeRetry, outcome)

	outcome, err = deps.pipeline.HandleTurn(ctx, state)

	// Then: the oracle is asked again and the fresh decision is submitted
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
}

func TestTurnPipeline_NoSubmission(t *testing.T) {
	t.Run("oracle failure", func(t *testing.T) {
		deps := newPipeline(t, false)
		state := pendingState(1, "night", entity.ActionCheck)

		deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(nil, errLLMDown).Once()

		outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

		assert.Equal(t, OutcomeDecisionFailed, outcome)
		require.ErrorIs(t, err, apperror.ErrDecision)
		require.ErrorIs(t, err, errLLMDown)
		assert.True(t, deps.guard.ShouldAct(state))
		assert.True(t, deps.guard.LastSubmitted().IsZero())
	})

	t.Run("oracle does nothing", func(t *testing.T) {
		deps := newPipeline(t, false)
		state := pendingState(1, "night", entity.ActionCheck)

		deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(nil, nil).Once()

		outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

		require.NoError(t, err)
		assert.Equal(t, OutcomeNoAction, outcome)
		assert.False(t, deps.guard.InProgress())
	})

	t.Run("oracle answers for another turn", func(t *testing.T) {
		deps := newPipeline(t, false)
		state := pendingState(2, "day", entity.ActionPKVote)

		deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).
			Return(entity.NewTargetAction(entity.ActionVote, 3), nil).Once()

		outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

		assert.Equal(t, OutcomeMismatch, outcome)
		require.ErrorIs(t, err, apperror.ErrValidationMismatch)
		assert.True(t, deps.guard.ShouldAct(state))
	})

	t.Run("malformed action", func(t *testing.T) {
		deps := newPipeline(t, false)
		state := pendingState(2, "night", entity.ActionKill)

		deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).
			Return(&entity.Action{ActionType: entity.ActionKill}, nil).Once()

		outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

		assert.Equal(t, OutcomeDecisionFailed, outcome)
		require.ErrorIs(t, err, entity.ErrMalformedAction)
	})

	t.Run("turn already in progress", func(t *testing.T) {
		deps := newPipeline(t, false)
		state := pendingState(2, "night", entity.ActionKill)

		_, err := deps.guard.Acquire(state)
		require.NoError(t, err)

		outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

		require.NoError(t, err)
		assert.Equal(t, OutcomeBusy, outcome)
		assert.True(t, deps.guard.InProgress())
	})
}

func TestTurnPipeline_DecisionTimeout(t *testing.T) {
	// Given: an oracle that honours its context deadline
	deps := newPipeline(t, false)
	deps.pipeline.decisionTimeout = 10 * time.Millisecond
	state := pendingState(1, "day", entity.ActionSpeech)

	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).
		Run(func(args mock.Arguments) {
			ctx, _ := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	// When: the turn is handled
	outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

	// Then: the turn is abandoned for this cycle
	assert.Equal(t, OutcomeDecisionFailed, outcome)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, deps.guard.InProgress())
}

func TestTurnPipeline_SeerResultAndJournalFailure(t *testing.T) {
	// Given: a check that the server answers with a result, and a broken journal
	deps := newPipeline(t, true)
	state := pendingState(1, "night", entity.ActionCheck)
	check := entity.NewTargetAction(entity.ActionCheck, 5)

	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(check, nil).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, check).
		Return(&entity.ActionResult{Success: true, Result: "werewolf"}, nil).Once()
	deps.journal.On("Record", mock.Anything, mock.MatchedBy(func(entry *entity.JournalEntry) bool {
		return entry.Result == "werewolf" && entry.TurnKey == entity.TurnKeyOf(state)
	})).Return(errRedisDown).Once()

	// When: the turn is handled
	outcome, err := deps.pipeline.HandleTurn(context.Background(), state)

	// Then: the journal failure does not affect the turn
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.False(t, deps.guard.ShouldAct(state))
}

func TestTurnPipeline_TypeFidelity(t *testing.T) {
	deps := newPipeline(t, false)
	state := pendingState(4, "day", entity.ActionLastWords)
	words := entity.NewSpeechAction(entity.ActionLastWords, "bye")

	deps.oracle.On("Decide", mock.Anything, state, state.MyTurn).Return(words, nil).Once()
	deps.submitter.On("SubmitAction", mock.Anything, testGameID, mock.MatchedBy(func(action *entity.Action) bool {
		return action.ActionType == state.MyTurn.ActionType
	})).Return(&entity.ActionResult{Success: true}, nil).Once()

	_, err := deps.pipeline.HandleTurn(context.Background(), state)

	require.NoError(t, err)
}
