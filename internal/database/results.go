// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/songquiz/internal/models"
)

// InsertGameResults stores the final standings of one game.
// Guests are skipped since their rows may be gone by the time a game ends.
func InsertGameResults(ctx context.Context, results []models.GameResult) error {
	if len(results) == 0 {
		return nil
	}
	q := `
		INSERT INTO game_results (game_id, user_id, room_id, mode, place, points, rounds, ended_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM users WHERE id = $2 AND NOT is_ephemeral)
		ON CONFLICT (game_id, user_id)
		DO UPDATE SET place = $5, points = $6, rounds = $7, ended_at = $8
	`
	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range results {
			batch.Queue(q, r.GameID, r.UserID, r.RoomID, r.Mode, r.Place, r.Points, r.Rounds, r.EndedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert game results: %w", err)
	}
	return nil
}

// GetUserResults lists a user's most recent finished games.
func GetUserResults(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not connected")
	}
	q := `
		SELECT game_id, user_id, room_id, mode, place, points, rounds, ended_at
		FROM game_results
		WHERE user_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GameResult, error) {
		var r models.GameResult
		err := row.Scan(&r.GameID, &r.UserID, &r.RoomID, &r.Mode, &r.Place, &r.Points, &r.Rounds, &r.EndedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan game results: %w", err)
	}
	return out, nil
}

// Results adapts the package functions to the lobby's result store.
// Saving standings also rates the registered players of the game.
type Results struct{}

func (Results) SaveGameResults(ctx context.Context, results []models.GameResult) error {
	if err := InsertGameResults(ctx, results); err != nil {
		return err
	}
	return UpdateRatings(ctx, results)
}
