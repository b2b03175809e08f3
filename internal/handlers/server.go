// internal/handlers/server.go
package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/auth"
	"github.com/jason-s-yu/songquiz/internal/database"
	"github.com/jason-s-yu/songquiz/internal/lobby"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/sirupsen/logrus"
)

// Server holds what the HTTP and WebSocket handlers share.
type Server struct {
	Store  *lobby.Store
	Issuer *auth.Issuer
	Log    *logrus.Logger
	// OriginPatterns are passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
	// LoadUser resolves a token subject. Defaults to database.GetUserByID.
	LoadUser func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// NewServer wires the handlers to a lobby store and token issuer.
func NewServer(store *lobby.Store, issuer *auth.Issuer, logger *logrus.Logger, origins []string) *Server {
	return &Server{
		Store:          store,
		Issuer:         issuer,
		Log:            logger,
		OriginPatterns: origins,
		LoadUser:       database.GetUserByID,
	}
}
