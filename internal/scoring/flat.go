// internal/scoring/flat.go
package scoring

// Flat awards a fixed amount that shrinks as more participants find the answer.
type Flat struct {
	turn Turn

	rightSongs   int
	rightArtists int
}

func (f *Flat) SongGuessed() int {
	f.rightSongs++
	return max(2*f.turn.ParticipantCount()-f.rightSongs, 2)
}

func (f *Flat) ArtistGuessed(credited int) int {
	f.rightArtists++
	n := f.turn.ParticipantCount()
	if credited <= 1 {
		return max(2*n-f.rightArtists, 2)
	}
	return max(n-f.rightArtists, 1)
}

func (f *Flat) AllRight() int {
	return AllRightBonus
}

func (f *Flat) ActiveParticipant() int {
	return f.rightSongs + f.rightArtists
}

func (f *Flat) NewTurn() {
	f.rightSongs = 0
	f.rightArtists = 0
}
