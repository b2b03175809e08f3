package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedTurn struct {
	players int
	elapsed time.Duration
	window  time.Duration
}

func (f *fixedTurn) ParticipantCount() int { return f.players }
func (f *fixedTurn) Elapsed() time.Duration { return f.elapsed }
func (f *fixedTurn) GuessingTime() time.Duration { return f.window }

func TestFlatSongAwardsShrink(t *testing.T) {
	f := New(KindFlat, &fixedTurn{players: 3})

	assert.Equal(t, 5, f.SongGuessed())
	assert.Equal(t, 4, f.SongGuessed())
	assert.Equal(t, 3, f.SongGuessed())
	assert.Equal(t, 2, f.SongGuessed())
	assert.Equal(t, 2, f.SongGuessed(), "award never drops below 2")
}

func TestFlatArtistAwards(t *testing.T) {
	f := New(KindFlat, &fixedTurn{players: 4})

	assert.Equal(t, 7, f.ArtistGuessed(1), "first artist for this participant")
	assert.Equal(t, 2, f.ArtistGuessed(2), "second artist uses the smaller scale")
	assert.Equal(t, 1, f.ArtistGuessed(3))
	assert.Equal(t, 10, f.AllRight())
}

func TestFlatActiveParticipantAndNewTurn(t *testing.T) {
	f := New(KindFlat, &fixedTurn{players: 4})
	f.SongGuessed()
	f.SongGuessed()
	f.ArtistGuessed(1)
	assert.Equal(t, 3, f.ActiveParticipant())

	f.NewTurn()
	assert.Equal(t, 0, f.ActiveParticipant())
	assert.Equal(t, 7, f.SongGuessed())
}

func TestTimedFactorDecays(t *testing.T) {
	turn := &fixedTurn{players: 2, window: 60 * time.Second}
	f := New(KindTimed, turn)

	// elapsed rounds up to 1s: (60-1)/2 = 29.5 -> 30
	turn.elapsed = 200 * time.Millisecond
	assert.Equal(t, 3*30, f.SongGuessed())

	f.NewTurn()
	turn.elapsed = 30 * time.Second
	assert.Equal(t, 3*15, f.SongGuessed())

	f.NewTurn()
	turn.elapsed = 59 * time.Second
	assert.Equal(t, 3*1, f.SongGuessed(), "factor never drops below 1")

	f.NewTurn()
	turn.elapsed = 90 * time.Second
	assert.Equal(t, 3, f.SongGuessed())
}

func TestTimedBonusAndActive(t *testing.T) {
	turn := &fixedTurn{players: 2, window: 30 * time.Second, elapsed: 15 * time.Second}
	f := New(KindTimed, turn)

	// (30-15)/(30/30) = 15
	assert.Equal(t, 10*15, f.AllRight())

	f.SongGuessed()
	f.ArtistGuessed(1)
	assert.Equal(t, 2*ActiveMultiplier, f.ActiveParticipant())
}
