// internal/game/mode.go
package game

import (
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/guess"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rules"
	"github.com/jason-s-yu/songquiz/internal/scoring"
)

// ModeKind enumerates the game modes.
type ModeKind int

const (
	ModeClassic ModeKind = iota
	ModeOneRoom
)

// Mode describes a game mode: its rules, strategies and the hooks where it differs from Classic.
type Mode struct {
	Kind        ModeKind
	Name        string
	Description string
	Matcher     guess.Kind
	Scoring     scoring.Kind
	NewRules    func(c clock.Clock) *rules.RuleSet
}

// ModeInfo is the wire form of a mode.
type ModeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var (
	Classic = &Mode{
		Kind:        ModeClassic,
		Name:        "Classic",
		Description: "No description available",
		Matcher:     guess.KindBasic,
		Scoring:     scoring.KindTimed,
		NewRules:    rules.NewClassic,
	}
	OneRoom = &Mode{
		Kind:        ModeOneRoom,
		Name:        "OneRoom",
		Description: "One device that plays music (lobby owner), everyone guesses",
		Matcher:     guess.KindBasic,
		Scoring:     scoring.KindTimed,
		NewRules:    rules.NewClassic,
	}
)

var modes = map[string]*Mode{
	Classic.Name: Classic,
	OneRoom.Name: OneRoom,
}

// DefaultModes is the mode list a room offers when none is configured.
var DefaultModes = []string{Classic.Name, OneRoom.Name}

// LookupMode finds a mode by name.
func LookupMode(name string) (*Mode, error) {
	m, ok := modes[name]
	if !ok {
		return nil, codes.GameModeNotAvailable
	}
	return m, nil
}

func (m *Mode) Info() ModeInfo {
	return ModeInfo{Name: m.Name, Description: m.Description}
}

// CanStart is the mode's own start check, run after the room's generic checks.
func (m *Mode) CanStart(players []*models.Player) error {
	if m.Kind == ModeClassic {
		for _, p := range players {
			if p.Ephemeral {
				return codes.CantStartWithTempUsers
			}
		}
	}
	return nil
}

// skipsTurn marks participants who never select a track.
func (m *Mode) skipsTurn(p *models.Player) bool {
	return m.Kind == ModeOneRoom && p.Ephemeral
}

// roundInfoFor is what p receives when a track is selected.
func (m *Mode) roundInfoFor(p, active *models.Player, info RoundInfo) interface{} {
	if m.Kind == ModeOneRoom && p != active {
		return struct{}{}
	}
	return info
}
