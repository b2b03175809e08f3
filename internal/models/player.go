// internal/models/player.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/ratelimit"
)

// Role is a participant's standing in a room.
type Role string

const (
	RoleOwner  Role = "owner"
	RolePlayer Role = "player"
)

const (
	// GuessLimit guesses are accepted per GuessWindow for each participant.
	GuessLimit  = 5
	GuessWindow = 5 * time.Second
)

// Endpoint delivers named events to one connected client. Implementations must not block.
type Endpoint interface {
	Send(event string, payload interface{})
}

// Player is one identity's membership record within a room.
// All fields are guarded by the owning room's lock.
type Player struct {
	ID        uuid.UUID
	Username  string
	Nickname  string
	Ephemeral bool

	// Endpoint is borrowed from the transport for the lifetime of the connection.
	Endpoint Endpoint

	Role     Role
	IsActive bool
	IsReady  bool
	Points   int

	// per turn
	GuessedSong       bool
	GuessedArtist     bool
	GuessedAllArtists bool
	GuessedArtists    map[string]struct{}

	// per round
	HadTurn bool

	guesses *ratelimit.Window
}

// NewPlayer builds an active participant for u.
func NewPlayer(u *User, ep Endpoint, c clock.Clock) *Player {
	return &Player{
		ID:             u.ID,
		Username:       u.Username,
		Nickname:       u.Nickname,
		Ephemeral:      u.IsEphemeral,
		Endpoint:       ep,
		Role:           RolePlayer,
		IsActive:       true,
		GuessedArtists: make(map[string]struct{}),
		guesses:        ratelimit.NewWindow(c, GuessWindow, GuessLimit),
	}
}

// Rebind attaches a fresh connection and profile to a returning participant.
func (p *Player) Rebind(u *User, ep Endpoint) {
	p.Endpoint = ep
	p.Username = u.Username
	p.Nickname = u.Nickname
}

// CanGuess records a guess attempt and reports whether it is within the rate limit.
func (p *Player) CanGuess() bool {
	return p.guesses.Allow()
}

func (p *Player) ResetTurn() {
	p.GuessedSong = false
	p.GuessedArtist = false
	p.GuessedAllArtists = false
	p.GuessedArtists = make(map[string]struct{})
}

func (p *Player) ResetRound() {
	p.ResetTurn()
	p.HadTurn = false
}

func (p *Player) ResetGame() {
	p.ResetRound()
	p.Points = 0
	p.IsReady = false
}

// SolvedAll is true once both the title and every artist are found.
func (p *Player) SolvedAll() bool {
	return p.GuessedSong && p.GuessedAllArtists
}

// Send delivers an event regardless of activity.
func (p *Player) Send(event string, payload interface{}) {
	if p.Endpoint != nil {
		p.Endpoint.Send(event, payload)
	}
}

// Notify delivers an event only while the participant is active.
func (p *Player) Notify(event string, payload interface{}) {
	if p.IsActive {
		p.Send(event, payload)
	}
}

// DisplayName is "nickname (@username)", or the username alone when there is no nickname.
func (p *Player) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname + " (@" + p.Username + ")"
	}
	return p.Username
}

// PlayerView is a participant as shown in the room's player list.
type PlayerView struct {
	Username          string `json:"username"`
	Nickname          string `json:"nickname"`
	IsReady           bool   `json:"isReady"`
	IsActive          bool   `json:"isActive"`
	Role              Role   `json:"role"`
	Points            int    `json:"points"`
	GuessedSong       bool   `json:"guessedSong"`
	GuessedArtist     bool   `json:"guessedArtist"`
	GuessedAllArtists bool   `json:"guessedAllArtists"`
}

func (p *Player) View() PlayerView {
	return PlayerView{
		Username:          p.Username,
		Nickname:          p.Nickname,
		IsReady:           p.IsReady,
		IsActive:          p.IsActive,
		Role:              p.Role,
		Points:            p.Points,
		GuessedSong:       p.GuessedSong,
		GuessedArtist:     p.GuessedArtist,
		GuessedAllArtists: p.GuessedAllArtists,
	}
}

// ScoreInfo is a participant's entry in the final standings.
type ScoreInfo struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Points   int    `json:"points"`
}

func (p *Player) Score() ScoreInfo {
	return ScoreInfo{Username: p.Username, Nickname: p.Nickname, Points: p.Points}
}
