// internal/lobby/client.go
package lobby

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/sirupsen/logrus"
)

// OpClass groups requests that may not overlap for one connection.
type OpClass int

const (
	OpLobby OpClass = iota
	OpKick
	opClasses
)

// Client is one connection's view of the lobby system: who it is, and which
// room it currently belongs to.
type Client struct {
	User     *models.User
	Endpoint models.Endpoint

	store *Store
	log   *logrus.Entry

	mu sync.Mutex
	// closed is set once the connection is gone; later creates and joins are refused.
	closed bool
	room   *Room
	// oldRoom is an empty room still kept for this user after they left as owner.
	oldRoom *Room

	busy [opClasses]atomic.Bool
}

// NewClient binds a connection for u to the store.
func NewClient(s *Store, u *models.User, ep models.Endpoint) *Client {
	c := &Client{User: u, Endpoint: ep, store: s}
	name := "anonymous"
	if u != nil {
		name = u.Username
	}
	c.log = s.log.WithField("user", name)
	return c
}

// Acquire claims the op class for one request. It fails with codes.Busy while a
// previous request of the same class is still running.
func (c *Client) Acquire(class OpClass) (release func(), err error) {
	if !c.busy[class].CompareAndSwap(false, true) {
		return nil, codes.Busy
	}
	return func() { c.busy[class].Store(false) }, nil
}

// Room returns the room the user is currently in, if any.
func (c *Client) Room() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRoomLocked()
}

// currentRoomLocked forgets a room that was deleted or that no longer lists the user.
func (c *Client) currentRoomLocked() *Room {
	if c.room != nil && (c.room.Deleted() || !c.room.Has(c.User.ID)) {
		c.room = nil
	}
	return c.room
}

func (c *Client) dropOldRoomLocked() {
	if c.oldRoom != nil {
		c.oldRoom.DeleteIfHeldBy(c.User.ID)
		c.oldRoom = nil
	}
}

// CreateLobby makes a new room owned by the user and returns its id.
func (c *Client) CreateLobby() (string, error) {
	if c.User == nil {
		return "", codes.NotLoggedIn
	}
	if c.User.IsEphemeral {
		return "", codes.TmpUserCanNotCreate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", codes.NotLoggedIn
	}
	if c.currentRoomLocked() != nil {
		return "", codes.AlreadyInLobby
	}
	c.dropOldRoomLocked()

	r, err := c.store.Create(c.User, c.Endpoint)
	if err != nil {
		return "", err
	}
	c.room = r
	return r.ID, nil
}

// JoinLobby enters the room with the given id.
func (c *Client) JoinLobby(id string) error {
	if c.User == nil {
		return codes.NotLoggedIn
	}
	r, ok := c.store.Get(id)
	if !ok {
		return codes.LobbyNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return codes.NotLoggedIn
	}
	if c.currentRoomLocked() != nil {
		return codes.AlreadyInLobby
	}
	if c.oldRoom != r {
		c.dropOldRoomLocked()
	}
	if err := r.Join(c.User, c.Endpoint); err != nil {
		return err
	}
	c.room = r
	c.oldRoom = nil
	return nil
}

// LeaveLobby leaves the current room.
func (c *Client) LeaveLobby() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.currentRoomLocked()
	if r == nil {
		return codes.NotInLobby
	}
	retained, err := r.RemovePlayer(c.User.ID)
	if err != nil {
		c.log.Warnf("leave %s: %v", r.ID, err)
		return codes.ErrorRemovingPlayer
	}
	c.room = nil
	if retained {
		c.oldRoom = r
	}
	return nil
}

func (c *Client) inRoom() (*Room, error) {
	if c.User == nil {
		return nil, codes.NotLoggedIn
	}
	r := c.Room()
	if r == nil {
		return nil, codes.NotInLobby
	}
	return r, nil
}

func (c *Client) SetReady(ready bool) error {
	r, err := c.inRoom()
	if err != nil {
		return err
	}
	return r.SetReady(c.User.ID, ready)
}

// ChangeRules forwards a rule change; a change always costs readiness.
func (c *Client) ChangeRules(key string, value interface{}) error {
	r, err := c.inRoom()
	if err != nil {
		return err
	}
	wasReady, err := r.ChangeRules(c.User.ID, key, value)
	if err != nil {
		return err
	}
	if wasReady {
		return codes.NotReady
	}
	return nil
}

func (c *Client) Kick(username string) error {
	r, err := c.inRoom()
	if err != nil {
		return err
	}
	return r.Kick(c.User.ID, username)
}

func (c *Client) SetGameMode(name string) error {
	r, err := c.inRoom()
	if err != nil {
		return err
	}
	wasReady, err := r.SetGameMode(c.User.ID, name)
	if err != nil {
		return err
	}
	if wasReady {
		return codes.NotReady
	}
	return nil
}

// SetInactive parks the user in the current room, or leaves it outright when no game runs.
func (c *Client) SetInactive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.currentRoomLocked()
	if r == nil {
		return codes.NotInLobby
	}
	retained, err := r.SetInactive(c.User.ID)
	if err != nil {
		return err
	}
	if retained {
		c.room = nil
		c.oldRoom = r
	}
	return nil
}

func (c *Client) LobbyExists(id string) bool {
	return c.store.Exists(id)
}

func (c *Client) GameModes() []string {
	return c.store.Modes()
}

func (c *Client) SelectSong(ctx context.Context, songID string, songStart *int) error {
	r, err := c.inRoom()
	if err != nil {
		return err
	}
	return r.SelectSong(ctx, c.User.ID, songID, songStart)
}

func (c *Client) Guess(kind game.GuessKind, text string) (*game.GuessReply, error) {
	r, err := c.inRoom()
	if err != nil {
		return nil, err
	}
	return r.Guess(kind, c.User.ID, text)
}

// Disconnect marks the user inactive and releases any room kept for them.
// A room the user has since rejoined from another connection is left untouched.
// The client accepts no further creates or joins.
func (c *Client) Disconnect() {
	if c.User == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if r := c.currentRoomLocked(); r != nil {
		if _, err := r.Disconnect(c.User.ID, c.Endpoint); err != nil {
			c.log.Debugf("disconnect from %s: %v", r.ID, err)
		} else {
			r.DeleteIfHeldBy(c.User.ID)
		}
	}
	c.room = nil
	c.dropOldRoomLocked()
}
