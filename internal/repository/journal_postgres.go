package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

const postgresJournalSchema = `
CREATE TABLE IF NOT EXISTS turn_journal (
    id          UUID PRIMARY KEY,
    game_id     TEXT        NOT NULL,
    player_id   TEXT        NOT NULL,
    day         INTEGER     NOT NULL,
    phase       TEXT        NOT NULL,
    action_type TEXT        NOT NULL,
    action      JSONB,
    outcome     TEXT        NOT NULL,
    message     TEXT        NOT NULL DEFAULT '',
    result      TEXT        NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS turn_journal_seat_idx ON turn_journal (game_id, player_id, created_at);
`

type postgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal - creates the table when it is missing.
func NewPostgresJournal(ctx context.Context, pool *pgxpool.Pool) (JournalRepository, error) {
	if _, err := pool.Exec(ctx, postgresJournalSchema); err != nil {
		return nil, fmt.Errorf("can't create journal table: %w", err)
	}

	return &postgresJournal{pool: pool}, nil
}

func (that *postgresJournal) Record(ctx context.Context, entry *entity.JournalEntry) error {
	actionJSON, err := json.Marshal(entry.Action)
	if err != nil {
		return fmt.Errorf("could not marshal action: %w", err)
	}

	_, err = that.pool.Exec(ctx, `
		INSERT INTO turn_journal (id, game_id, player_id, day, phase, action_type, action, outcome, message, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.GameID, entry.PlayerID,
		entry.TurnKey.Day, entry.TurnKey.Phase, string(entry.TurnKey.ActionType),
		actionJSON, entry.Outcome, entry.Message, entry.Result, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return nil
}

func (that *postgresJournal) List(ctx context.Context, gameID, playerID string) ([]*entity.JournalEntry, error) {
	rows, err := that.pool.Query(ctx, `
		SELECT id::text, game_id, player_id, day, phase, action_type, action, outcome, message, result, created_at
		  FROM turn_journal
		 WHERE game_id = $1 AND player_id = $2
		 ORDER BY created_at, id`, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.JournalEntry, error) {
		var (
			entry      entity.JournalEntry
			actionType string
			actionJSON []byte
		)

		if err := row.Scan(
			&entry.ID, &entry.GameID, &entry.PlayerID,
			&entry.TurnKey.Day, &entry.TurnKey.Phase, &actionType,
			&actionJSON, &entry.Outcome, &entry.Message, &entry.Result, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		entry.TurnKey.ActionType = entity.ActionType(actionType)

		if err := decodeAction(actionJSON, &entry); err != nil {
			return nil, err
		}

		return &entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return entries, nil
}

func decodeAction(actionJSON []byte, entry *entity.JournalEntry) error {
	if len(actionJSON) == 0 || string(actionJSON) == "null" {
		return nil
	}

	var action entity.Action
	if err := json.Unmarshal(actionJSON, &action); err != nil {
		return fmt.Errorf("failed to unmarshal action: %w", err)
	}
	entry.Action = &action

	return nil
}
