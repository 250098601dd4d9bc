package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

type mockOracle struct {
	mock.Mock
}

func newMockOracle(t *testing.T) *mockOracle {
	m := &mockOracle{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *mockOracle) Decide(ctx context.Context, state *entity.GameState, turn *entity.Turn) (*entity.Action, error) {
	args := that.Called(ctx, state, turn)

	action, _ := args.Get(0).(*entity.Action)

	return action, args.Error(1)
}

func (that *mockOracle) Name() string {
	return "mock"
}

type mockSubmitter struct {
	mock.Mock
}

func newMockSubmitter(t *testing.T) *mockSubmitter {
	m := &mockSubmitter{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *mockSubmitter) SubmitAction(ctx context.Context, gameID string, action *entity.Action) (*entity.ActionResult, error) {
	args := that.Called(ctx, gameID, action)

	result, _ := args.Get(0).(*entity.ActionResult)

	return result, args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func newMockJournal(t *testing.T) *mockJournal {
	m := &mockJournal{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *mockJournal) Record(ctx context.Context, entry *entity.JournalEntry) error {
	return that.Called(ctx, entry).Error(0)
}
