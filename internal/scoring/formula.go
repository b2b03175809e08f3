// internal/scoring/formula.go
package scoring

import "time"

// Kind selects a Formula implementation when a session is built.
type Kind int

const (
	KindFlat Kind = iota
	KindTimed
)

const (
	// AllRightBonus is awarded for solving the title and every artist in one turn.
	AllRightBonus = 10
	// ActiveMultiplier scales the selecting participant's turn-end award under timed scoring.
	ActiveMultiplier = 10
	// decaySteps is how many award steps a full guess window is divided into.
	decaySteps = 30
)

// Turn is what a formula needs to know about the running turn.
type Turn interface {
	// ParticipantCount is the size of the roster.
	ParticipantCount() int
	// Elapsed is the guess time consumed so far, excluding paused spans.
	Elapsed() time.Duration
	// GuessingTime is the configured length of a guess window.
	GuessingTime() time.Duration
}

// Formula converts correct guesses into points. Counters are per turn; NewTurn resets them.
type Formula interface {
	SongGuessed() int
	// ArtistGuessed is called after the artist has been credited; credited is how many
	// artists this participant now holds for the turn.
	ArtistGuessed(credited int) int
	AllRight() int
	// ActiveParticipant is the turn-end award for the participant who selected the track.
	ActiveParticipant() int
	NewTurn()
}

// New returns the formula for kind, reading turn state from t.
func New(kind Kind, t Turn) Formula {
	flat := &Flat{turn: t}
	switch kind {
	case KindTimed:
		return &Timed{Flat: flat}
	default:
		return flat
	}
}
