// internal/game/turns.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rules"
)

// nextTurn hands the turn to a random eligible participant. Too few active
// participants pause the game whether or not anyone is still eligible.
func (s *Session) nextTurn() {
	players := s.host.Players()

	active := 0
	var eligible []*models.Player
	for _, p := range players {
		if s.mode.skipsTurn(p) {
			p.HadTurn = true
		}
		if !p.IsActive {
			continue
		}
		active++
		if !p.HadTurn {
			eligible = append(eligible, p)
		}
	}

	if active == 0 || active < s.minPlayers() {
		s.pause()
		return
	}
	if len(eligible) == 0 {
		s.nextRound()
		return
	}

	next := s.pick(eligible)
	next.HadTurn = true
	s.active = next
	s.turnID++
	s.track = nil
	s.guessStart = time.Time{}
	s.elapsed = 0
	s.state = StateSelecting

	for _, p := range players {
		p.ResetTurn()
	}
	// the selecting participant has nothing left to guess
	next.GuessedSong = true
	next.GuessedArtist = true
	next.GuessedAllArtists = true

	s.announceSelecting()
	s.log.Debugf("turn %d (round %d): %s is selecting", s.turnID, s.round, next.Username)
	s.logAction(next.ID, "turn_start", map[string]interface{}{
		"round": s.round,
		"turn":  s.turnID,
	})
}

// pick chooses uniformly among eligible, avoiding the previous active participant
// unless nobody else is left.
func (s *Session) pick(eligible []*models.Player) *models.Player {
	if len(eligible) == 1 {
		return eligible[0]
	}
	candidates := make([]*models.Player, 0, len(eligible))
	for _, p := range eligible {
		if !s.isActivePlayer(p) {
			candidates = append(candidates, p)
		}
	}
	return candidates[s.rng.Intn(len(candidates))]
}

func (s *Session) announceSelecting() {
	s.active.Send(EventYourTurn, nil)
	sel := Selecting{Username: s.active.Username, Nickname: s.active.Nickname}
	for _, p := range s.host.Players() {
		if p != s.active {
			p.Notify(EventIsSelecting, sel)
		}
	}
}

// nextRound starts another turn while someone active still has not had one,
// otherwise advances the round counter and ends the game past the last round.
// It pauses instead while too few participants are active.
func (s *Session) nextRound() {
	if n := s.activeCount(); n == 0 || n < s.minPlayers() {
		s.pause()
		return
	}
	players := s.host.Players()
	for _, p := range players {
		if p.IsActive && !p.HadTurn {
			s.nextTurn()
			return
		}
	}

	s.round++
	if s.round > s.host.Rules().Int(rules.Rounds) {
		s.log.Infof("last round played, ending game")
		s.host.EndGame()
		return
	}

	info := LobbyInfo{Type: InfoRound, Data: RoundNumber{Round: s.round}}
	for _, p := range players {
		p.Notify(EventLobbyInfo, info)
		p.ResetRound()
	}
	s.logAction(uuid.Nil, "round_start", map[string]interface{}{"round": s.round})
	s.nextTurn()
}

// turnEnd scores the selecting participant, reveals the track and schedules the
// next turn after the intermission.
func (s *Session) turnEnd() {
	s.cancelTimer()
	s.guessStart = time.Time{}
	s.elapsed = 0

	var actor uuid.UUID
	if s.active != nil {
		actor = s.active.ID
		s.active.Points += s.formula.ActiveParticipant()
	}
	s.host.BroadcastPlayers()
	s.formula.NewTurn()

	s.notifyActive(EventTurnEnd, revealOf(s.track))
	s.state = StateResolving

	payload := map[string]interface{}{"turn": s.turnID}
	if s.track != nil {
		payload["song_id"] = s.track.ID
	}
	s.logAction(actor, "turn_end", payload)

	s.arm(s.intermission, s.nextRound)
}

// pause freezes the session, banking elapsed guess time. Pausing twice is a no-op.
func (s *Session) pause() {
	if s.state == StatePaused || s.state == StateEnded {
		return
	}
	s.notice(noticePaused)

	if !s.guessStart.IsZero() {
		s.elapsed += s.clock.Now().Sub(s.guessStart)
		s.guessStart = time.Time{}
	}
	s.cancelTimer()
	s.pausedFrom = s.state
	s.state = StatePaused

	s.log.Infof("game paused during %s", s.pausedFrom)
	s.logAction(uuid.Nil, "game_paused", map[string]interface{}{
		"from":       s.pausedFrom.String(),
		"elapsed_ms": s.elapsed.Milliseconds(),
	})
}

// Resume continues a paused game if enough participants are active again.
// The guess window resumes with the time it had left.
func (s *Session) Resume() {
	if s.state != StatePaused {
		return
	}
	if s.activeCount() < s.minPlayers() {
		s.notice(noticeStillPaused)
		return
	}
	s.notice(noticeResumed)

	from := s.pausedFrom
	s.state = from
	s.log.Infof("game resumed into %s", from)
	s.logAction(uuid.Nil, "game_resumed", map[string]interface{}{"to": from.String()})

	switch from {
	case StateGuessWindow:
		remaining := s.window - s.elapsed
		if remaining < 0 {
			remaining = 0
		}
		s.guessStart = s.clock.Now()
		s.arm(remaining, s.turnEnd)
	case StateSelecting:
		if s.active != nil && s.active.IsActive && s.player(s.active.ID) == s.active {
			s.announceSelecting()
			return
		}
		s.nextRound()
	default:
		s.nextRound()
	}
}

// PlayerInactive reacts to a participant going inactive mid-game.
func (s *Session) PlayerInactive(p *models.Player) {
	if s.state == StateEnded {
		return
	}
	if s.isActivePlayer(p) {
		switch s.state {
		case StateSelecting:
			s.nextRound()
		case StateGuessWindow:
			s.turnEnd()
		}
	}
	if s.state != StateEnded && s.activeCount() < s.minPlayers() {
		s.pause()
	}
}

// PlayerLeft reacts to a participant leaving the roster mid-game.
func (s *Session) PlayerLeft(p *models.Player) {
	s.log.Debugf("player left: %s", p.Username)
	s.PlayerInactive(p)
}

// Pause is used by the room when every remaining participant went inactive.
func (s *Session) Pause() {
	s.pause()
}

// BringUpToDate replays what a joining or returning participant needs to resume.
func (s *Session) BringUpToDate(p *models.Player) {
	p.Send(EventLobbyInfo, LobbyInfo{Type: InfoGameStart})
	p.Send(EventLobbyInfo, LobbyInfo{Type: InfoRound, Data: RoundNumber{Round: s.round}})

	state := s.state
	if state == StatePaused {
		state = s.pausedFrom
	}
	switch state {
	case StateGuessWindow:
		p.Send(EventSelectedSong, s.mode.roundInfoFor(p, s.active, s.roundInfo()))
	case StateResolving:
		p.Send(EventTurnEnd, revealOf(s.track))
	case StateSelecting:
		if s.active == nil {
			return
		}
		if s.isActivePlayer(p) {
			p.Send(EventYourTurn, nil)
			return
		}
		p.Send(EventIsSelecting, Selecting{Username: s.active.Username, Nickname: s.active.Nickname})
	}
}
