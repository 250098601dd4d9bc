package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
	"github.com/rocketscienceinc/werewolf-agent/internal/usecase"
)

const DefaultInterval = 2 * time.Second

var ErrAlreadyRunning = errors.New("poller is already running")

type gameAPI interface {
	GetGameStatus(ctx context.Context, gameID string) (*entity.GameState, error)
	SendReady(ctx context.Context, gameID string) (string, error)
}

type turnHandler interface {
	HandleTurn(ctx context.Context, state *entity.GameState) (usecase.Outcome, error)
}

type dedupView interface {
	LastSubmitted() entity.TurnKey
	InProgress() bool
}

// Snapshot is what the poller last observed. Served by the health endpoint.
type Snapshot struct {
	Running          bool      `json:"running"`
	GameID           string    `json:"game_id"`
	Status           string    `json:"status,omitempty"`
	Day              int       `json:"day,omitempty"`
	Phase            string    `json:"phase,omitempty"`
	Cycles           uint64    `json:"cycles"`
	LastOutcome      string    `json:"last_outcome,omitempty"`
	LastSubmitted    string    `json:"last_submitted_turn,omitempty"`
	ActionInProgress bool      `json:"action_in_progress"`
	LastPollAt       time.Time `json:"last_poll_at,omitempty"`
}

// Poller fetches the game state on a fixed cadence and hands pending turns to the pipeline.
// One cycle finishes before the next timer is armed, so cycles never overlap.
type Poller struct {
	logger   *slog.Logger
	api      gameAPI
	pipeline turnHandler
	dedup    dedupView
	gameID   string
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	snapshot Snapshot
}

// New - dedup may be nil, it only feeds Snapshot.
func New(logger *slog.Logger, api gameAPI, pipeline turnHandler, dedup dedupView, gameID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		logger:   logger.With("component", "poller"),
		api:      api,
		pipeline: pipeline,
		dedup:    dedup,
		gameID:   gameID,
		interval: interval,
		snapshot: Snapshot{GameID: gameID},
	}
}

// Start sends the ready signal and polls until Stop, ctx cancellation or the end of the game.
func (that *Poller) Start(ctx context.Context) error {
	that.mu.Lock()
	if that.running {
		that.mu.Unlock()
		return ErrAlreadyRunning
	}
	that.running = true
	that.stop = make(chan struct{})
	stop := that.stop
	that.mu.Unlock()

	that.logger.Info("agent started", "game_id", that.gameID, "interval", that.interval.String())

	that.sendReady(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			that.Stop()
			return nil
		case <-stop:
			return nil
		case <-timer.C:
		}

		if finished := that.cycle(ctx); finished {
			that.logger.Info("game finished, agent stopping")
			that.Stop()
			return nil
		}

		if !that.IsRunning() {
			return nil
		}

		timer.Reset(that.interval)
	}
}

// Stop cancels future cycles. An in-flight cycle runs to completion and its result is dropped.
func (that *Poller) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.running {
		return
	}

	that.running = false
	close(that.stop)
	that.logger.Info("agent stopped")
}

func (that *Poller) IsRunning() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.running
}

func (that *Poller) Snapshot() Snapshot {
	that.mu.Lock()
	snapshot := that.snapshot
	snapshot.Running = that.running
	that.mu.Unlock()

	if that.dedup != nil {
		if key := that.dedup.LastSubmitted(); !key.IsZero() {
			snapshot.LastSubmitted = key.String()
		}
		snapshot.ActionInProgress = that.dedup.InProgress()
	}

	return snapshot
}

func (that *Poller) sendReady(ctx context.Context) {
	message, err := that.api.SendReady(ctx, that.gameID)
	if err != nil {
		that.logger.Warn("ready signal failed, polling anyway", "error", err)
		return
	}

	that.logger.Info("ready signal sent", "message", message)
}

// cycle reports whether the game has finished.
func (that *Poller) cycle(ctx context.Context) bool {
	that.mu.Lock()
	that.snapshot.Cycles++
	that.snapshot.LastPollAt = time.Now().UTC()
	that.mu.Unlock()

	state, err := that.api.GetGameStatus(ctx, that.gameID)
	if !that.IsRunning() {
		that.logger.Debug("discarding status fetched after stop")
		return false
	}

	if err != nil {
		that.logger.Warn("failed to fetch game status", "error", err)
		return false
	}

	that.observe(state)

	if state.IsFinished() {
		return true
	}

	if state.PendingTurn() == nil {
		return false
	}

	outcome, err := that.pipeline.HandleTurn(ctx, state)
	if !that.IsRunning() {
		that.logger.Debug("discarding turn outcome after stop", "outcome", outcome)
		return false
	}

	if err != nil {
		that.logger.Debug("turn not completed", "outcome", outcome, "error", err)
	}

	that.mu.Lock()
	that.snapshot.LastOutcome = string(outcome)
	that.mu.Unlock()

	return false
}

func (that *Poller) observe(state *entity.GameState) {
	that.mu.Lock()
	that.snapshot.Status = state.Status
	that.snapshot.Day = state.Day
	that.snapshot.Phase = state.Phase
	that.mu.Unlock()

	attrs := []any{
		"status", state.Status,
		"day", state.Day,
		"phase", state.Phase,
		"seat", state.MyPlayerIndex,
		"role", state.MyRole,
		"alive", state.MyIsAlive,
		"alive_seats", state.AlivePlayerIndexes,
	}
	if state.MyTurn != nil {
		attrs = append(attrs, "can_act", state.MyTurn.CanAct, "action_type", state.MyTurn.ActionType)
	}

	that.logger.Debug("game state", attrs...)
}
