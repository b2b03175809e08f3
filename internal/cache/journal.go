// internal/cache/journal.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher accepts action records for the historian.
type Publisher interface {
	Publish(ctx context.Context, record ActionRecord) error
}

// Journal pushes action records onto a Redis list.
type Journal struct {
	rdb   *redis.Client
	queue string
}

// NewJournal returns a journal writing to queue, or DefaultQueueName when empty.
func NewJournal(rdb *redis.Client, queue string) *Journal {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Journal{rdb: rdb, queue: queue}
}

// Queue is the list name records are pushed to.
func (j *Journal) Queue() string {
	return j.queue
}

// Publish serializes record and RPushes it onto the queue.
func (j *Journal) Publish(ctx context.Context, record ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := j.rdb.RPush(ctx, j.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.queue, err)
	}
	return nil
}

// Discard drops every record. Used when no Redis is configured.
type Discard struct{}

func (Discard) Publish(context.Context, ActionRecord) error { return nil }
