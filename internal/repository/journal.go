package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/werewolf-agent/internal/entity"
)

const journalTTL = 7 * 24 * time.Hour

// JournalRepository is the audit trail of submission attempts for one seat.
type JournalRepository interface {
	Record(ctx context.Context, entry *entity.JournalEntry) error
}

type redisJournal struct {
	client *redis.Client
}

func NewRedisJournal(client *redis.Client) JournalRepository {
	return &redisJournal{
		client: client,
	}
}

func (that *redisJournal) Record(ctx context.Context, entry *entity.JournalEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not marshal journal entry: %w", err)
	}

	key := journalKey(entry.GameID, entry.PlayerID)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, entryJSON)
		pipe.Expire(ctx, key, journalTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

func (that *redisJournal) List(ctx context.Context, gameID, playerID string) ([]*entity.JournalEntry, error) {
	values, err := that.client.LRange(ctx, journalKey(gameID, playerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	entries := make([]*entity.JournalEntry, 0, len(values))
	for _, value := range values {
		var entry entity.JournalEntry
		if err = json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func journalKey(gameID, playerID string) string {
	return "journal:" + gameID + ":" + playerID
}
