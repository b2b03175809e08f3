// internal/lobby/room.go
package lobby

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rules"
	"github.com/sirupsen/logrus"
)

const resultsTimeout = 5 * time.Second

var errRebound = errors.New("participant is bound to another connection")

// Room is a joinable group of participants sharing one game.
// Mu serializes every mutation; methods ending in Unsafe expect it to be held.
type Room struct {
	ID string
	Mu sync.Mutex

	store *Store
	clock clock.Clock
	log   *logrus.Entry

	mode    *game.Mode
	rules   *rules.RuleSet
	players []*models.Player
	owner   *models.Player
	// heldFor is the former owner an empty room is kept for.
	heldFor uuid.UUID

	gameRunning bool
	session     *game.Session

	deleteTimer clock.Timer
	deleteSeq   int
	deleted     bool
}

func newRoom(id string, owner *models.Player, s *Store) (*Room, error) {
	if owner == nil {
		return nil, codes.OwnerIsNotAParticipant
	}
	r := &Room{
		ID:    id,
		store: s,
		clock: s.opts.Clock,
		log:   s.log.WithField("room", id),
	}
	owner.Role = models.RoleOwner
	r.owner = owner
	r.players = []*models.Player{owner}

	if err := r.changeModeUnsafe(s.opts.Modes[0]); err != nil {
		return nil, err
	}
	r.broadcastPlayersUnsafe()
	return r, nil
}

// Join adds u to the room, or rebinds a returning participant and marks it active.
func (r *Room) Join(u *models.User, ep models.Endpoint) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.deleted {
		return codes.LobbyNotFound
	}
	if p := r.findUnsafe(u.ID); p != nil {
		if p.IsActive {
			r.log.Warnf("rejoin of %s who is still active", u.Username)
		}
		p.Rebind(u, ep)
		r.setActiveUnsafe(p)
		return nil
	}
	return r.addPlayerUnsafe(models.NewPlayer(u, ep, r.clock))
}

// AddPlayer appends p to the roster.
func (r *Room) AddPlayer(p *models.Player) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.deleted {
		return codes.LobbyNotFound
	}
	return r.addPlayerUnsafe(p)
}

func (r *Room) addPlayerUnsafe(p *models.Player) error {
	if len(r.players) >= r.rules.Int(rules.MaxPlayers) {
		return codes.LobbyIsFull
	}
	if r.findUnsafe(p.ID) != nil {
		return codes.PlayerAlreadyInLobby
	}

	if len(r.players) == 0 {
		// the former owner no longer holds an empty room
		r.heldFor = uuid.Nil
		r.owner = nil
	}
	if r.owner == nil {
		r.makeOwnerUnsafe(p)
	}
	r.cancelDeletionUnsafe()

	r.players = append(r.players, p)
	r.log.Infof("%s joined (%d players)", p.Username, len(r.players))
	r.broadcastPlayersUnsafe()
	r.bringUpToDateUnsafe(p)
	if r.gameRunning {
		r.session.Resume()
	}
	return nil
}

// RemovePlayer drops a participant. retained reports that the room was kept for
// the leaving owner because nobody else was left.
func (r *Room) RemovePlayer(id uuid.UUID) (retained bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.removePlayerUnsafe(id)
}

func (r *Room) removePlayerUnsafe(id uuid.UUID) (bool, error) {
	idx := r.indexUnsafe(id)
	if idx < 0 {
		return false, codes.PlayerNotFound
	}
	p := r.players[idx]
	retained := r.handOverOwnershipUnsafe(p, true)
	r.players = slices.Delete(r.players, idx, idx+1)
	r.log.Infof("%s left (%d players)", p.Username, len(r.players))

	if len(r.players) == 0 || !r.anyActiveUnsafe() {
		switch {
		case !r.gameRunning:
			r.scheduleDeletionUnsafe()
		case len(r.players) == 0:
			r.deleteUnsafe()
		default:
			r.session.Pause()
			r.scheduleDeletionUnsafe()
		}
		return retained, nil
	}

	r.broadcastPlayersUnsafe()
	if r.gameRunning {
		r.session.PlayerLeft(p)
	} else if err := r.startIfAllReadyUnsafe(); err != nil {
		r.log.Debugf("auto start after leave: %v", err)
	}
	return retained, nil
}

// handOverOwnershipUnsafe marks p inactive and, if p owned the room, passes
// ownership to the first other active participant in roster order. With no
// active successor the room goes ownerless; a sole leaving owner keeps a claim
// on the empty room.
func (r *Room) handOverOwnershipUnsafe(p *models.Player, leaving bool) (retained bool) {
	p.IsActive = false
	if r.owner != p {
		return false
	}
	for _, o := range r.players {
		if o != p && o.IsActive {
			p.Role = models.RolePlayer
			r.makeOwnerUnsafe(o)
			r.log.Infof("ownership passed to %s", o.Username)
			return false
		}
	}
	if len(r.players) > 1 {
		p.Role = models.RolePlayer
		r.owner = nil
		return false
	}
	if leaving {
		p.Role = models.RolePlayer
		r.owner = nil
		r.heldFor = p.ID
		return true
	}
	return false
}

func (r *Room) makeOwnerUnsafe(p *models.Player) {
	r.owner = p
	p.Role = models.RoleOwner
}

// SetActive marks a participant active again and resumes a paused game.
func (r *Room) SetActive(id uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.findUnsafe(id)
	if p == nil {
		return codes.PlayerNotFound
	}
	r.setActiveUnsafe(p)
	return nil
}

func (r *Room) setActiveUnsafe(p *models.Player) {
	p.IsActive = true
	r.cancelDeletionUnsafe()
	if r.owner == nil {
		r.makeOwnerUnsafe(p)
	}
	r.broadcastPlayersUnsafe()
	r.bringUpToDateUnsafe(p)
	if r.gameRunning {
		r.session.Resume()
	}
}

// SetInactive parks a participant during a game. Without a running game it is
// the same as leaving, and retained has RemovePlayer's meaning.
func (r *Room) SetInactive(id uuid.UUID) (retained bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findUnsafe(id)
	if p == nil {
		return false, codes.PlayerNotFound
	}
	return r.setInactiveUnsafe(p)
}

// Disconnect is SetInactive for a closing connection. It leaves the participant
// alone, returning errRebound, once a newer connection has rejoined as them.
func (r *Room) Disconnect(id uuid.UUID, ep models.Endpoint) (retained bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findUnsafe(id)
	if p == nil {
		return false, codes.PlayerNotFound
	}
	if p.Endpoint != ep {
		return false, errRebound
	}
	return r.setInactiveUnsafe(p)
}

func (r *Room) setInactiveUnsafe(p *models.Player) (bool, error) {
	if !r.gameRunning {
		return r.removePlayerUnsafe(p.ID)
	}

	r.handOverOwnershipUnsafe(p, false)
	r.log.Infof("%s is inactive", p.Username)
	r.session.PlayerInactive(p)

	if r.anyActiveUnsafe() {
		r.broadcastPlayersUnsafe()
	} else {
		r.scheduleDeletionUnsafe()
	}
	return false, nil
}

// SetReady updates readiness and starts the game once everybody is ready.
// A failed auto start is returned; the readiness change stands.
func (r *Room) SetReady(id uuid.UUID, ready bool) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findUnsafe(id)
	if p == nil {
		return codes.PlayerNotFound
	}
	if r.gameRunning {
		// the client is showing the wrong screen
		r.session.BringUpToDate(p)
		r.broadcastPlayersUnsafe()
		return codes.GameAlreadyStarted
	}

	p.IsReady = ready
	r.broadcastPlayersUnsafe()
	if ready {
		return r.startIfAllReadyUnsafe()
	}
	return nil
}

func (r *Room) startIfAllReadyUnsafe() error {
	for _, p := range r.players {
		if !p.IsReady {
			return nil
		}
	}
	return r.startGameUnsafe()
}

// unreadyUnsafe clears p's readiness and reports whether it was set.
func (r *Room) unreadyUnsafe(p *models.Player) bool {
	if !p.IsReady {
		return false
	}
	p.IsReady = false
	r.broadcastPlayersUnsafe()
	return true
}

// ChangeRules applies an owner's rule change. Changing rules clears the caller's
// readiness; wasReady reports that it was set. On failure the caller gets the
// unchanged rules back.
func (r *Room) ChangeRules(id uuid.UUID, key string, value interface{}) (wasReady bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findUnsafe(id)
	if p == nil {
		return false, codes.PlayerNotFound
	}
	wasReady = r.unreadyUnsafe(p)

	switch {
	case r.owner != p:
		err = codes.ChangingRulesNotOwner
	case key == "" || value == nil:
		err = codes.DataNotValid
	default:
		err = r.rules.Change(key, value)
	}
	if err != nil {
		r.sendRulesUnsafe(p)
		return wasReady, err
	}

	r.log.Debugf("rule %s changed to %v", key, value)
	for _, o := range r.players {
		r.sendRulesUnsafe(o)
	}
	return wasReady, nil
}

// Kick removes the participant named targetName and tells them who did it.
func (r *Room) Kick(requesterID uuid.UUID, targetName string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	initiator := r.findUnsafe(requesterID)
	if initiator == nil {
		return codes.PlayerNotFound
	}
	if r.owner != initiator {
		return codes.KickingNotOwner
	}
	var target *models.Player
	for _, p := range r.players {
		if p.Username == targetName {
			target = p
			break
		}
	}
	if target == nil {
		return codes.PlayerNotFound
	}
	if target == r.owner {
		return codes.OwnerCantKickHimself
	}

	if _, err := r.removePlayerUnsafe(target.ID); err != nil {
		return err
	}
	target.Send(game.EventLobbyInfo, game.LobbyInfo{
		Type: game.InfoKicked,
		Data: game.Selecting{Username: initiator.Username, Nickname: initiator.Nickname},
	})
	r.log.Infof("%s kicked %s", initiator.Username, target.Username)
	return nil
}

// SetGameMode switches mode and resets the rules to that mode's defaults.
func (r *Room) SetGameMode(id uuid.UUID, name string) (wasReady bool, err error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.findUnsafe(id)
	if p == nil {
		return false, codes.PlayerNotFound
	}
	wasReady = r.unreadyUnsafe(p)

	if r.owner != p {
		return wasReady, codes.GameModeNotOwner
	}
	if r.gameRunning {
		return wasReady, codes.CantChangeGameMode
	}
	return wasReady, r.changeModeUnsafe(name)
}

func (r *Room) changeModeUnsafe(name string) error {
	if !slices.Contains(r.store.opts.Modes, name) {
		return codes.GameModeNotAvailable
	}
	m, err := game.LookupMode(name)
	if err != nil {
		return err
	}
	r.mode = m
	r.rules = m.NewRules(r.clock)
	r.log.Debugf("game mode set to %s", m.Name)

	for _, p := range r.players {
		p.Notify(game.EventLobbyInfo, game.LobbyInfo{Type: game.InfoGameMode, Data: m.Info()})
		r.sendRulesUnsafe(p)
	}
	return nil
}

// StartGame begins a session if the room and the mode allow it.
func (r *Room) StartGame() error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.startGameUnsafe()
}

func (r *Room) startGameUnsafe() error {
	if len(r.players) < r.rules.Int(rules.MinPlayers) {
		return codes.NotEnoughPlayers
	}
	if r.mode == nil {
		return codes.NoGameModeSet
	}
	if r.gameRunning {
		return codes.GameAlreadyRunning
	}
	if err := r.mode.CanStart(r.players); err != nil {
		return err
	}

	r.gameRunning = true
	r.session = game.NewSession(game.Config{
		RoomID:       r.ID,
		Mode:         r.mode,
		Host:         sessionHost{r},
		Lock:         &r.Mu,
		Clock:        r.clock,
		Fetcher:      r.store.opts.Fetcher,
		Journal:      r.store.opts.Journal,
		Logger:       r.log,
		Intermission: r.store.opts.Intermission,
	})
	r.log.Infof("game %s started in mode %s", r.session.ID, r.mode.Name)

	for _, p := range r.players {
		p.Notify(game.EventLobbyInfo, game.LobbyInfo{Type: game.InfoGameStart})
	}
	r.session.Start()
	return nil
}

// endGameUnsafe publishes the top three, records the results and resets everyone.
func (r *Room) endGameUnsafe() {
	if !r.gameRunning {
		return
	}
	s := r.session
	r.gameRunning = false
	r.session = nil
	s.Stop()

	ranked := slices.Clone(r.players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	var places [3]*models.ScoreInfo
	for i := 0; i < len(places) && i < len(ranked); i++ {
		info := ranked[i].Score()
		places[i] = &info
	}
	standings := game.Standings{Data: game.Places{Place1: places[0], Place2: places[1], Place3: places[2]}}
	for _, p := range r.players {
		p.Send(game.EventGameEnd, standings)
	}

	r.saveResultsUnsafe(s, ranked)
	for _, p := range r.players {
		p.ResetGame()
	}
	r.log.Infof("game %s ended", s.ID)
	r.broadcastPlayersUnsafe()
}

func (r *Room) saveResultsUnsafe(s *game.Session, ranked []*models.Player) {
	store := r.store.opts.Results
	if store == nil {
		return
	}
	endedAt := r.clock.Now()
	results := make([]models.GameResult, 0, len(ranked))
	for i, p := range ranked {
		results = append(results, models.GameResult{
			GameID:  s.ID,
			RoomID:  r.ID,
			Mode:    s.Mode().Name,
			UserID:  p.ID,
			Place:   i + 1,
			Points:  p.Points,
			Rounds:  s.Round() - 1,
			EndedAt: endedAt,
		})
	}
	logger := r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultsTimeout)
		defer cancel()
		if err := store.SaveGameResults(ctx, results); err != nil {
			logger.Errorf("failed to save results of game %s: %v", s.ID, err)
		}
	}()
}

// SelectSong forwards a track selection to the running session.
func (r *Room) SelectSong(ctx context.Context, id uuid.UUID, songID string, songStart *int) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.gameRunning {
		return codes.NoGameRunning
	}
	return r.session.SelectSong(ctx, id, songID, songStart)
}

// Guess forwards a songGuess or artistGuess to the running session.
func (r *Room) Guess(kind game.GuessKind, id uuid.UUID, text string) (*game.GuessReply, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.gameRunning {
		return nil, codes.NoGameRunning
	}
	return r.session.Guess(kind, id, text)
}

// Delete tears the room down and removes it from the store.
func (r *Room) Delete() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.deleteUnsafe()
}

// DeleteIfHeldBy deletes an empty room still kept for the former owner userID.
func (r *Room) DeleteIfHeldBy(userID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.deleted && len(r.players) == 0 && r.heldFor == userID {
		r.deleteUnsafe()
	}
}

func (r *Room) deleteUnsafe() {
	if r.deleted {
		return
	}
	r.deleted = true
	r.cancelDeletionUnsafe()
	if r.gameRunning {
		r.gameRunning = false
		r.session.Stop()
		r.session = nil
	}
	r.players = nil
	r.owner = nil
	r.heldFor = uuid.Nil
	r.store.remove(r)
}

func (r *Room) scheduleDeletionUnsafe() {
	r.cancelDeletionUnsafe()
	seq := r.deleteSeq
	r.deleteTimer = r.clock.AfterFunc(r.store.opts.RoomExpiry, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if r.deleteSeq != seq || r.deleted {
			return
		}
		r.log.Infof("room expired")
		r.deleteUnsafe()
	})
}

func (r *Room) cancelDeletionUnsafe() {
	r.deleteSeq++
	if r.deleteTimer != nil {
		r.deleteTimer.Stop()
		r.deleteTimer = nil
	}
}

func (r *Room) findUnsafe(id uuid.UUID) *models.Player {
	if i := r.indexUnsafe(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) indexUnsafe(id uuid.UUID) int {
	return slices.IndexFunc(r.players, func(p *models.Player) bool { return p.ID == id })
}

func (r *Room) anyActiveUnsafe() bool {
	return slices.ContainsFunc(r.players, func(p *models.Player) bool { return p.IsActive })
}

func (r *Room) broadcastPlayersUnsafe() {
	views := make([]models.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, p.View())
	}
	info := game.LobbyInfo{Type: game.InfoPlayerList, Data: views}
	for _, p := range r.players {
		p.Notify(game.EventLobbyInfo, info)
	}
}

func (r *Room) sendRulesUnsafe(p *models.Player) {
	p.Notify(game.EventLobbyInfo, game.LobbyInfo{Type: game.InfoRules, Data: r.rules.Info()})
}

// bringUpToDateUnsafe sends a (re)joining participant the rules, the mode and,
// during a game, enough session state to resume.
func (r *Room) bringUpToDateUnsafe(p *models.Player) {
	r.sendRulesUnsafe(p)
	p.Notify(game.EventLobbyInfo, game.LobbyInfo{Type: game.InfoGameMode, Data: r.mode.Info()})
	if r.gameRunning {
		r.session.BringUpToDate(p)
	}
}

// sessionHost exposes the room to its session. The session only calls it with Mu held.
type sessionHost struct {
	r *Room
}

func (h sessionHost) Players() []*models.Player { return h.r.players }
func (h sessionHost) Rules() *rules.RuleSet { return h.r.rules }
func (h sessionHost) BroadcastPlayers() { h.r.broadcastPlayersUnsafe() }
func (h sessionHost) EndGame() { h.r.endGameUnsafe() }

// Has reports whether id is on the roster.
func (r *Room) Has(id uuid.UUID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.findUnsafe(id) != nil
}

// Owner returns the owner's view, or false when the room is ownerless.
func (r *Room) Owner() (models.PlayerView, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.owner == nil {
		return models.PlayerView{}, false
	}
	return r.owner.View(), true
}

func (r *Room) Players() []models.PlayerView {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	views := make([]models.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, p.View())
	}
	return views
}

func (r *Room) GameRunning() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.gameRunning
}

func (r *Room) HeldFor() uuid.UUID {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.heldFor
}

func (r *Room) Deleted() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.deleted
}

// Session returns the running game, if any. Callers must hold Mu while using it.
func (r *Room) Session() *game.Session {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.session
}
