// internal/game/selection.go
package game

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/rules"
)

// SelectSong arms the turn with a track chosen by the active participant.
// songStart is the playback offset into the track in milliseconds.
//
// The room lock is released while the catalog is queried. Once it is held again
// the result is discarded unless the same turn is still waiting for a selection.
func (s *Session) SelectSong(ctx context.Context, playerID uuid.UUID, songID string, songStart *int) error {
	if s.state == StateEnded {
		return codes.NoGameRunning
	}
	if s.active == nil || s.active.ID != playerID {
		return codes.NotYourTurn
	}
	if strings.TrimSpace(songID) == "" {
		return codes.NoSong
	}
	if songStart == nil {
		return codes.NoSongStart
	}
	if *songStart < 0 {
		return codes.SongStartTooSmall
	}
	if err := s.acceptsSelection(); err != nil {
		return err
	}

	turn := s.turnID
	s.mu.Unlock()
	track, err := s.fetcher.FetchTrack(ctx, songID)
	s.mu.Lock()

	if s.state == StateEnded || s.turnID != turn || s.active == nil || s.active.ID != playerID {
		s.log.Debugf("dropping stale track lookup for turn %d", turn)
		return codes.NotYourTurn
	}
	if stateErr := s.acceptsSelection(); stateErr != nil {
		return stateErr
	}
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			s.log.Errorf("track lookup %q failed: %v", songID, err)
		}
		return err
	}
	if track.ID != songID {
		return codes.SongNotFound
	}
	if *songStart > track.DurationMs {
		return codes.SongStartTooBig
	}

	s.startGuessing(track, *songStart)
	return nil
}

func (s *Session) acceptsSelection() error {
	switch s.state {
	case StateSelecting:
		return nil
	case StatePaused:
		return codes.NotEnoughPlayers
	default:
		return codes.SongAlreadySelected
	}
}

// startGuessing opens the guess window. The window covers the playback offset
// plus the configured guessing time.
func (s *Session) startGuessing(track *catalog.Track, songStart int) {
	rs := s.host.Rules()
	offset := rs.Seconds(rules.Offset)
	now := s.clock.Now()

	s.track = track
	s.songStart = songStart
	s.matcher.SetRound(track.Title, track.ArtistNames)
	s.playbackStart = now.Add(offset)
	s.guessStart = now
	s.elapsed = 0
	s.window = rs.Seconds(rules.GuessingTime) + offset
	s.state = StateGuessWindow

	info := s.roundInfo()
	for _, p := range s.host.Players() {
		p.Notify(EventSelectedSong, s.mode.roundInfoFor(p, s.active, info))
	}
	s.arm(s.window, s.turnEnd)

	s.log.Debugf("turn %d: %q selected, window %s", s.turnID, track.Title, s.window)
	s.logAction(s.active.ID, "song_selected", map[string]interface{}{
		"song_id":    track.ID,
		"song_start": songStart,
		"turn":       s.turnID,
	})
}

func (s *Session) roundInfo() RoundInfo {
	info := RoundInfo{SongStart: s.songStart}
	if s.track != nil {
		info.SongID = s.track.ID
		info.PlaybackStart = s.playbackStart.UnixMilli()
	}
	return info
}
