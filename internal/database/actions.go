// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/songquiz/internal/cache"
)

// InsertGameActions writes a batch of journaled actions in one transaction.
// Redelivered records are ignored.
func InsertGameActions(ctx context.Context, records []cache.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
		INSERT INTO game_actions (
			game_id, action_index, room_id, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	return beginTxFunc(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s: %w", rec.ActionType, err)
			}
			var actor interface{}
			if rec.ActorUserID != uuid.Nil {
				actor = rec.ActorUserID
			}
			_, err = tx.Exec(ctx, q,
				rec.GameID, rec.ActionIndex, rec.RoomID, actor, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp).UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert action %d of game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
}

// ActionWriter adapts InsertGameActions to the historian's sink.
type ActionWriter struct{}

func (ActionWriter) WriteActions(ctx context.Context, records []cache.ActionRecord) error {
	return InsertGameActions(ctx, records)
}
