package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/stretchr/testify/assert"
)

type recordingEndpoint struct {
	events []string
}

func (r *recordingEndpoint) Send(event string, _ interface{}) {
	r.events = append(r.events, event)
}

func newTestPlayer(ep Endpoint) (*Player, *clock.Fake) {
	c := clock.NewFake(time.Unix(0, 0))
	u := &User{ID: uuid.New(), Username: "ada", Nickname: "Ada"}
	return NewPlayer(u, ep, c), c
}

func TestNewPlayerDefaults(t *testing.T) {
	p, _ := newTestPlayer(nil)
	assert.True(t, p.IsActive)
	assert.False(t, p.IsReady)
	assert.Equal(t, RolePlayer, p.Role)
	assert.Equal(t, "Ada (@ada)", p.DisplayName())

	p.Nickname = ""
	assert.Equal(t, "ada", p.DisplayName())
}

func TestCanGuessLimit(t *testing.T) {
	p, c := newTestPlayer(nil)
	for i := 0; i < GuessLimit; i++ {
		assert.True(t, p.CanGuess())
	}
	assert.False(t, p.CanGuess())
	c.Advance(GuessWindow + time.Millisecond)
	assert.True(t, p.CanGuess())
}

func TestResets(t *testing.T) {
	p, _ := newTestPlayer(nil)
	p.GuessedSong, p.GuessedArtist, p.GuessedAllArtists = true, true, true
	p.GuessedArtists["Queen"] = struct{}{}
	p.HadTurn = true
	p.Points = 40
	p.IsReady = true

	p.ResetTurn()
	assert.False(t, p.SolvedAll())
	assert.Empty(t, p.GuessedArtists)
	assert.True(t, p.HadTurn)

	p.ResetRound()
	assert.False(t, p.HadTurn)
	assert.Equal(t, 40, p.Points)

	p.ResetGame()
	assert.Zero(t, p.Points)
	assert.False(t, p.IsReady)

	p.HadTurn = true
	p.ResetGame()
	assert.False(t, p.HadTurn)
}

func TestNotifyOnlyWhileActive(t *testing.T) {
	ep := &recordingEndpoint{}
	p, _ := newTestPlayer(ep)

	p.Notify("lobbyInfo", nil)
	p.IsActive = false
	p.Notify("lobbyInfo", nil)
	p.Send("gameEnd", nil)

	assert.Equal(t, []string{"lobbyInfo", "gameEnd"}, ep.events)
}
