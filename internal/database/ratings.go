// internal/database/ratings.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rating"
)

// GetUserRating returns a user's rating, or the default for an unrated user.
func GetUserRating(ctx context.Context, userID uuid.UUID) (models.Rating, error) {
	if DB == nil {
		return models.Rating{}, fmt.Errorf("database not connected")
	}
	r := models.DefaultRating()
	err := DB.QueryRow(ctx,
		`SELECT rating, deviation, volatility, games FROM ratings WHERE user_id = $1`,
		userID,
	).Scan(&r.Value, &r.Deviation, &r.Volatility, &r.Games)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return models.Rating{}, fmt.Errorf("query rating: %w", err)
	}
	return r, nil
}

// UpdateRatings runs one rating period over the registered players of a finished game.
func UpdateRatings(ctx context.Context, results []models.GameResult) error {
	if len(results) < 2 {
		return nil
	}
	ids := make([]uuid.UUID, len(results))
	points := make(map[uuid.UUID]int, len(results))
	for i, r := range results {
		ids[i] = r.UserID
		points[r.UserID] = r.Points
	}

	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT u.id, r.rating, r.deviation, r.volatility, COALESCE(r.games, 0)
			FROM users u
			LEFT JOIN ratings r ON r.user_id = u.id
			WHERE u.id = ANY($1) AND NOT u.is_ephemeral
			FOR UPDATE OF u
		`, ids)
		if err != nil {
			return err
		}
		standings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rating.Standing, error) {
			var (
				s               rating.Standing
				value, dev, vol *float64
			)
			if err := row.Scan(&s.UserID, &value, &dev, &vol, &s.Rating.Games); err != nil {
				return s, err
			}
			def := models.DefaultRating()
			s.Rating.Value, s.Rating.Deviation, s.Rating.Volatility = def.Value, def.Deviation, def.Volatility
			if value != nil && dev != nil && vol != nil {
				s.Rating.Value, s.Rating.Deviation, s.Rating.Volatility = *value, *dev, *vol
			}
			s.Points = points[s.UserID]
			return s, nil
		})
		if err != nil {
			return err
		}
		if len(standings) < 2 {
			return nil
		}

		batch := &pgx.Batch{}
		for id, r := range rating.Rate(standings) {
			batch.Queue(`
				INSERT INTO ratings (user_id, rating, deviation, volatility, games, updated_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				ON CONFLICT (user_id)
				DO UPDATE SET rating = $2, deviation = $3, volatility = $4, games = $5, updated_at = NOW()
			`, id, r.Value, r.Deviation, r.Volatility, r.Games)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("update ratings: %w", err)
	}
	return nil
}
