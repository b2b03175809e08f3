// internal/rules/classic.go
package rules

import (
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/codes"
)

const (
	MaxPlayers   = "max_players"
	MinPlayers   = "min_players"
	Rounds       = "rounds"
	GuessingTime = "guessing_time"
	Offset       = "offset"
)

// PlayerCap is the exclusive upper bound for max_players.
const PlayerCap = 100

// NewClassic returns the default rule set shared by the Classic and OneRoom modes.
func NewClassic(c clock.Clock) *RuleSet {
	return New(c, checkClassic,
		Rule{Key: MaxPlayers, Value: 4, Type: TypeNumber,
			Description: "Number of players"},
		Rule{Key: MinPlayers, Value: 2, Type: TypeNumber,
			Description: "Minimum number of players needed to start the game"},
		Rule{Key: Rounds, Value: 10, Type: TypeNumber,
			Description: "Number of rounds"},
		Rule{Key: GuessingTime, Value: 60, Type: TypeNumber,
			Description: "Time to guess the song (in seconds)"},
		Rule{Key: Offset, Value: 3, Type: TypeNumber,
			Description: "Time between song selection and song start (in seconds). Increase if player have bad internet connection"},
	)
}

func checkClassic(rs *RuleSet, key string, value interface{}) error {
	v, _ := value.(int)
	switch key {
	case MaxPlayers:
		if v < rs.Int(MinPlayers) {
			return codes.DecreaseMinPlayersFirst
		}
		if v >= PlayerCap {
			return codes.BeReasonable
		}
	case MinPlayers:
		if v > rs.Int(MaxPlayers) {
			return codes.IncreaseMaxPlayersFirst
		}
		if v < 2 {
			return codes.Minimum2Players
		}
	}
	return nil
}
