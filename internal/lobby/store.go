// internal/lobby/store.go
package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultRoomExpiry is how long an empty or fully inactive room survives.
	DefaultRoomExpiry = 5 * time.Minute

	idLength   = 3
	idAttempts = 64
)

// ResultStore persists final standings.
type ResultStore interface {
	SaveGameResults(ctx context.Context, results []models.GameResult) error
}

// Options are the collaborators and tunables shared by every room in a store.
type Options struct {
	Modes        []string
	Clock        clock.Clock
	Fetcher      catalog.Fetcher
	Journal      cache.Publisher
	Results      ResultStore
	Logger       logrus.FieldLogger
	RoomExpiry   time.Duration
	Intermission time.Duration
}

// Store is the registry of live rooms, keyed by their short id.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	opts  Options
	log   logrus.FieldLogger
}

// NewStore builds an empty registry. Missing options fall back to defaults.
func NewStore(opts Options) *Store {
	if len(opts.Modes) == 0 {
		opts.Modes = game.DefaultModes
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = catalog.Unavailable{}
	}
	if opts.Journal == nil {
		opts.Journal = cache.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.RoomExpiry <= 0 {
		opts.RoomExpiry = DefaultRoomExpiry
	}
	if opts.Intermission <= 0 {
		opts.Intermission = game.DefaultIntermission
	}
	return &Store{
		rooms: make(map[string]*Room),
		opts:  opts,
		log:   opts.Logger,
	}
}

// Create registers a new room owned by a fresh participant for u.
func (s *Store) Create(u *models.User, ep models.Endpoint) (*Room, error) {
	if u == nil {
		return nil, codes.OwnerIsNotAParticipant
	}
	owner := models.NewPlayer(u, ep, s.opts.Clock)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newIDLocked()
	if err != nil {
		return nil, err
	}
	r, err := newRoom(id, owner, s)
	if err != nil {
		return nil, err
	}
	s.rooms[id] = r
	s.log.Infof("room %s created by %s (%d rooms)", id, u.Username, len(s.rooms))
	return r, nil
}

// newIDLocked draws random 3-character base-36 ids until one is free.
func (s *Store) newIDLocked() (string, error) {
	space := 1
	for i := 0; i < idLength; i++ {
		space *= 36
	}
	for i := 0; i < idAttempts; i++ {
		id := strconv.FormatInt(int64(rand.Intn(space)), 36)
		id = strings.Repeat("0", idLength-len(id)) + id
		if _, taken := s.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free room id after %d attempts", idAttempts)
}

// Get looks up a live room.
func (s *Store) Get(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) Exists(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Modes lists the game modes rooms may switch between.
func (s *Store) Modes() []string {
	out := make([]string, len(s.opts.Modes))
	copy(out, s.opts.Modes)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Shutdown deletes every room, stopping their timers.
func (s *Store) Shutdown() {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	for _, r := range rooms {
		r.Delete()
	}
}

// remove drops r from the registry. Called by the room itself, with the room lock held.
func (s *Store) remove(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[r.ID]; ok && cur == r {
		delete(s.rooms, r.ID)
		s.log.Infof("room %s deleted (%d rooms)", r.ID, len(s.rooms))
	}
}
