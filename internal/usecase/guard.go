package usecase

import (
	"errors"
	"sync"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

var (
	ErrNotMyTurn        = errors.New("no pending turn")
	ErrTurnBusy         = errors.New("another decision is in progress")
	ErrAlreadySubmitted = errors.New("turn already submitted")
)

// TurnGuard owns the dedup state of one agent: the last closed turn and the in-progress flag.
// It lives as long as the process; nothing is persisted.
type TurnGuard struct {
	mu sync.Mutex

	lastSubmitted entity.TurnKey
	inProgress    bool
}

func NewTurnGuard() *TurnGuard {
	return &TurnGuard{}
}

// ShouldAct - true iff the seat can act, nothing is in progress and the turn is not closed yet.
func (that *TurnGuard) ShouldAct(state *entity.GameState) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.check(state) == nil
}

// Acquire marks the state's turn as in progress. Callers must Release on every path.
func (that *TurnGuard) Acquire(state *entity.GameState) (entity.TurnKey, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.check(state); err != nil {
		return entity.TurnKey{}, err
	}

	that.inProgress = true

	return entity.TurnKeyOf(state), nil
}

func (that *TurnGuard) Release() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.inProgress = false
}

// MarkSubmitted closes the turn; later observations of the same key are ignored.
func (that *TurnGuard) MarkSubmitted(key entity.TurnKey) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.lastSubmitted = key
}

func (that *TurnGuard) LastSubmitted() entity.TurnKey {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.lastSubmitted
}

func (that *TurnGuard) InProgress() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.inProgress
}

func (that *TurnGuard) check(state *entity.GameState) error {
	if state == nil || state.PendingTurn() == nil {
		return ErrNotMyTurn
	}

	if that.inProgress {
		return ErrTurnBusy
	}

	if entity.TurnKeyOf(state) == that.lastSubmitted {
		return ErrAlreadySubmitted
	}

	return nil
}
