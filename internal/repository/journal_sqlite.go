package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

const sqliteJournalSchema = `
CREATE TABLE IF NOT EXISTS turn_journal (
    id            TEXT PRIMARY KEY,
    game_id       TEXT    NOT NULL,
    player_id     TEXT    NOT NULL,
    day           INTEGER NOT NULL,
    phase         TEXT    NOT NULL,
    action_type   TEXT    NOT NULL,
    action        TEXT,
    outcome       TEXT    NOT NULL,
    message       TEXT    NOT NULL DEFAULT '',
    result        TEXT    NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL
)`

type sqliteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal - creates the table when it is missing.
func NewSQLiteJournal(ctx context.Context, db *sql.DB) (JournalRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteJournalSchema); err != nil {
		return nil, fmt.Errorf("can't create table: %w", err)
	}

	return &sqliteJournal{db: db}, nil
}

func (that *sqliteJournal) Record(ctx context.Context, entry *entity.JournalEntry) error {
	actionJSON, err := json.Marshal(entry.Action)
	if err != nil {
		return fmt.Errorf("could not marshal action: %w", err)
	}

	_, err = that.db.ExecContext(ctx, `
		INSERT INTO turn_journal (id, game_id, player_id, day, phase, action_type, action, outcome, message, result, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.GameID, entry.PlayerID,
		entry.TurnKey.Day, entry.TurnKey.Phase, string(entry.TurnKey.ActionType),
		string(actionJSON), entry.Outcome, entry.Message, entry.Result, entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return nil
}

func (that *sqliteJournal) List(ctx context.Context, gameID, playerID string) ([]*entity.JournalEntry, error) {
	rows, err := that.db.QueryContext(ctx, `
		SELECT id, game_id, player_id, day, phase, action_type, action, outcome, message, result, created_at_ms
		  FROM turn_journal
		 WHERE game_id = ? AND player_id = ?
		 ORDER BY created_at_ms, rowid`, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*entity.JournalEntry
	for rows.Next() {
		var (
			entry      entity.JournalEntry
			actionType string
			actionJSON sql.NullString
			createdAt  int64
		)

		if err = rows.Scan(
			&entry.ID, &entry.GameID, &entry.PlayerID,
			&entry.TurnKey.Day, &entry.TurnKey.Phase, &actionType,
			&actionJSON, &entry.Outcome, &entry.Message, &entry.Result, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		entry.TurnKey.ActionType = entity.ActionType(actionType)
		entry.CreatedAt = time.UnixMilli(createdAt).UTC()

		if err = decodeAction([]byte(actionJSON.String), &entry); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return entries, nil
}
