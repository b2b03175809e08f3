// internal/models/result.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameResult is the final standing of one participant in a finished game.
type GameResult struct {
	GameID  uuid.UUID `json:"game_id"`
	RoomID  string    `json:"room_id"`
	Mode    string    `json:"mode"`
	UserID  uuid.UUID `json:"user_id"`
	Place   int       `json:"place"`
	Points  int       `json:"points"`
	Rounds  int       `json:"rounds"`
	EndedAt time.Time `json:"ended_at"`
}
