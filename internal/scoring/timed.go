// internal/scoring/timed.go
package scoring

import (
	"math"
	"time"
)

const fallbackGuessingTime = 60 * time.Second

// Timed scales Flat awards by how much of the guess window is left.
type Timed struct {
	*Flat
}

func (t *Timed) SongGuessed() int {
	return t.Flat.SongGuessed() * t.factor()
}

func (t *Timed) ArtistGuessed(credited int) int {
	return t.Flat.ArtistGuessed(credited) * t.factor()
}

func (t *Timed) AllRight() int {
	return t.Flat.AllRight() * t.factor()
}

func (t *Timed) ActiveParticipant() int {
	return t.Flat.ActiveParticipant() * ActiveMultiplier
}

// factor is max(1, round((window - elapsed) / (window / 30))) with elapsed
// rounded to whole seconds and never below one.
func (t *Timed) factor() int {
	window := t.turn.GuessingTime()
	if window <= 0 {
		window = fallbackGuessingTime
	}
	g := window.Seconds()
	elapsed := math.Max(1, math.Round(t.turn.Elapsed().Seconds()))
	return max(1, int(math.Round((g-elapsed)/(g/decaySteps))))
}
