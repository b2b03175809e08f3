// internal/game/session.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/guess"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rules"
	"github.com/jason-s-yu/songquiz/internal/scoring"
	"github.com/sirupsen/logrus"
)

// State is the phase of the turn cycle.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateGuessWindow
	StateResolving
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateGuessWindow:
		return "guessing"
	case StateResolving:
		return "resolving"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

const (
	// DefaultIntermission is the pause between a turn's reveal and the next turn.
	DefaultIntermission = 10 * time.Second
	// MaxGuessLength bounds a single guess, in characters.
	MaxGuessLength = 100
	journalTimeout = 2 * time.Second
)

// Host is the room a session runs inside. Every method is called with the room lock held.
type Host interface {
	// Players is the live roster in join order.
	Players() []*models.Player
	Rules() *rules.RuleSet
	BroadcastPlayers()
	// EndGame tears the session down and publishes the standings.
	EndGame()
}

// Config wires a session to its room and collaborators.
type Config struct {
	RoomID       string
	Mode         *Mode
	Host         Host
	Lock         sync.Locker // the room lock; held by every caller of an exported method
	Clock        clock.Clock
	Fetcher      catalog.Fetcher
	Journal      cache.Publisher
	Logger       logrus.FieldLogger
	Intermission time.Duration
	Rand         *rand.Rand
}

// Session is the turn/round state machine of one running game.
// Exported methods must be called with the room lock held; timers take it themselves.
type Session struct {
	ID     uuid.UUID
	RoomID string

	mode    *Mode
	host    Host
	mu      sync.Locker
	clock   clock.Clock
	fetcher catalog.Fetcher
	journal cache.Publisher
	log     *logrus.Entry
	rng     *rand.Rand

	intermission time.Duration

	state      State
	pausedFrom State
	round      int
	turnID     int
	active     *models.Player

	track         *catalog.Track
	songStart     int
	playbackStart time.Time

	// guessStart is zero unless the guess window is running.
	guessStart time.Time
	// elapsed is guess time consumed before the last pause.
	elapsed time.Duration
	window  time.Duration

	timer    clock.Timer
	timerSeq int

	matcher guess.Matcher
	formula scoring.Formula

	actionIndex int
}

// NewSession builds an idle session. Call Start to begin the first turn.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Journal == nil {
		cfg.Journal = cache.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Intermission <= 0 {
		cfg.Intermission = DefaultIntermission
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	id, _ := uuid.NewRandom()
	s := &Session{
		ID:           id,
		RoomID:       cfg.RoomID,
		mode:         cfg.Mode,
		host:         cfg.Host,
		mu:           cfg.Lock,
		clock:        cfg.Clock,
		fetcher:      cfg.Fetcher,
		journal:      cfg.Journal,
		rng:          cfg.Rand,
		intermission: cfg.Intermission,
		matcher:      guess.New(cfg.Mode.Matcher),
		log: cfg.Logger.WithFields(logrus.Fields{
			"room": cfg.RoomID,
			"game": id,
		}),
	}
	s.formula = scoring.New(cfg.Mode.Scoring, s)
	return s
}

// Start resets every participant and begins round one.
func (s *Session) Start() {
	if s.state != StateIdle {
		return
	}
	players := s.host.Players()
	for _, p := range players {
		p.ResetGame()
	}
	s.round = 1
	s.log.Infof("game started with %d players in mode %s", len(players), s.mode.Name)
	s.logAction(uuid.Nil, "game_start", map[string]interface{}{
		"mode":    s.mode.Name,
		"players": len(players),
	})
	s.nextTurn()
}

// Stop cancels any pending timer. The session is inert afterwards.
func (s *Session) Stop() {
	if s.state == StateEnded {
		return
	}
	s.cancelTimer()
	s.state = StateEnded
	s.guessStart = time.Time{}
	s.logAction(uuid.Nil, "game_end", map[string]interface{}{"round": s.round})
}

func (s *Session) State() State { return s.state }
func (s *Session) Round() int { return s.round }
func (s *Session) TurnID() int { return s.turnID }
func (s *Session) Mode() *Mode { return s.mode }
func (s *Session) ActivePlayer() *models.Player { return s.active }
func (s *Session) Track() *catalog.Track { return s.track }

// Running is false while paused or after the game ended.
func (s *Session) Running() bool {
	return s.state != StatePaused && s.state != StateEnded
}

// ParticipantCount, Elapsed and GuessingTime feed the score formula.

func (s *Session) ParticipantCount() int {
	return len(s.host.Players())
}

func (s *Session) Elapsed() time.Duration {
	e := s.elapsed
	if !s.guessStart.IsZero() {
		e += s.clock.Now().Sub(s.guessStart)
	}
	return e
}

func (s *Session) GuessingTime() time.Duration {
	return s.host.Rules().Seconds(rules.GuessingTime)
}

// Remaining is the guess time left in the current window.
func (s *Session) Remaining() time.Duration {
	if r := s.window - s.Elapsed(); r > 0 {
		return r
	}
	return 0
}

func (s *Session) minPlayers() int {
	return s.host.Rules().Int(rules.MinPlayers)
}

func (s *Session) activeCount() int {
	n := 0
	for _, p := range s.host.Players() {
		if p.IsActive {
			n++
		}
	}
	return n
}

func (s *Session) player(id uuid.UUID) *models.Player {
	for _, p := range s.host.Players() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) isActivePlayer(p *models.Player) bool {
	return s.active != nil && p != nil && s.active.ID == p.ID
}

// notifyActive sends to every active participant.
func (s *Session) notifyActive(event string, payload interface{}) {
	for _, p := range s.host.Players() {
		p.Notify(event, payload)
	}
}

// notice is a system message on both chat channels.
func (s *Session) notice(text string) {
	msg := systemMessage(text, "")
	s.notifyActive(EventSongMessage, msg)
	s.notifyActive(EventArtistMessage, msg)
}

// arm replaces the pending timer. A callback that lost the race against a newer
// arm or cancel finds the sequence moved on and does nothing.
func (s *Session) arm(d time.Duration, fire func()) {
	s.cancelTimer()
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timerSeq != seq || s.state == StateEnded {
			return
		}
		s.timer = nil
		fire()
	})
}

func (s *Session) cancelTimer() {
	s.timerSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// logAction journals a transition for the historian without blocking the room.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.ActionRecord{
		GameID:        s.ID,
		RoomID:        s.RoomID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     s.clock.Now().UnixMilli(),
	}
	go func(rec cache.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := s.journal.Publish(ctx, rec); err != nil {
			s.log.Warnf("failed to journal action %d (%s): %v", rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}
