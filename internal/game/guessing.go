// internal/game/guessing.go
package game

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/guess"
	"github.com/jason-s-yu/songquiz/internal/models"
)

// solved reports whether p has nothing left to find in kind.
func solved(kind GuessKind, p *models.Player) bool {
	if kind == GuessArtist {
		return p.GuessedAllArtists
	}
	return p.GuessedSong
}

// Guess evaluates a songGuess or artistGuess from playerID.
func (s *Session) Guess(kind GuessKind, playerID uuid.UUID, text string) (*GuessReply, error) {
	if s.state == StateEnded {
		return nil, codes.NoGameRunning
	}
	if strings.TrimSpace(text) == "" {
		return nil, codes.NoGuess
	}
	text = guess.Sanitize(text)

	p := s.player(playerID)
	if p == nil {
		s.log.Warnf("guess from unknown player %s", playerID)
		return nil, codes.PlayerNotFound
	}
	if s.isActivePlayer(p) {
		return nil, codes.SelectedSongCantGuess
	}

	if solved(kind, p) {
		echo := playerMessage(p, text, MessageAlreadyGuessed)
		for _, o := range s.host.Players() {
			if solved(kind, o) {
				o.Notify(kind.event(), echo)
			}
		}
		return nil, codes.AlreadyGuessed
	}

	if utf8.RuneCountInString(text) > MaxGuessLength {
		return nil, codes.GuessTooLong
	}
	if s.state != StateGuessWindow {
		return nil, codes.InbetweenRounds
	}
	if !p.CanGuess() {
		return nil, codes.DoNotSpam
	}

	var (
		correct bool
		near    bool
		optimal string
	)
	switch kind {
	case GuessArtist:
		correct, optimal = s.matcher.Artist(text)
		near = s.matcher.ArtistClose(text)
		if correct {
			if _, dup := p.GuessedArtists[strings.ToLower(optimal)]; dup {
				return nil, codes.AlreadyGotArtist
			}
		}
	default:
		correct, optimal = s.matcher.Song(text)
		near = s.matcher.SongClose(text)
	}

	switch {
	case correct:
		return s.credit(kind, p, text, optimal), nil
	case near:
		msg := "'" + text + "' is close!"
		for _, o := range s.host.Players() {
			if o != p && solved(kind, o) {
				o.Notify(kind.event(), playerMessage(p, msg, MessageClose))
			}
		}
		p.Send(kind.event(), systemMessage(msg, MessageClose))
		return &GuessReply{Close: true}, nil
	default:
		s.notifyActive(kind.event(), playerMessage(p, text, ""))
		return &GuessReply{}, nil
	}
}

// credit applies a correct guess. The turn ends at once when every active
// participant has solved the whole track.
func (s *Session) credit(kind GuessKind, p *models.Player, text, optimal string) *GuessReply {
	s.notifyActive(kind.event(), systemMessage("User "+p.DisplayName()+" guessed the "+string(kind)+"!", MessageGuessed))

	if kind == GuessArtist {
		p.GuessedArtist = true
		p.GuessedArtists[strings.ToLower(optimal)] = struct{}{}
		if len(p.GuessedArtists) >= s.matcher.ArtistCount() {
			p.GuessedAllArtists = true
		}
		p.Points += s.formula.ArtistGuessed(len(p.GuessedArtists))
	} else {
		p.GuessedSong = true
		p.Points += s.formula.SongGuessed()
	}

	s.logAction(p.ID, "guess_correct", map[string]interface{}{
		"kind":   string(kind),
		"guess":  text,
		"points": p.Points,
	})

	reply := &GuessReply{Correct: true, Optimal: optimal}
	if !p.SolvedAll() {
		s.host.BroadcastPlayers()
		return reply
	}

	p.Points += s.formula.AllRight()
	reply.SongID = s.track.ID
	reply.SongName = s.track.Title
	reply.ArtistsNames = s.track.ArtistNames
	reply.AlbumCover = s.track.CoverArtURL

	if s.everyoneSolved() {
		s.turnEnd()
		return reply
	}
	s.host.BroadcastPlayers()
	return reply
}

func (s *Session) everyoneSolved() bool {
	for _, p := range s.host.Players() {
		if p.IsActive && !p.SolvedAll() {
			return false
		}
	}
	return true
}
