package guess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTitle(t *testing.T) {
	cases := map[string]string{
		"Song Title - Remix (feat. Artist) ": "song title",
		"Blinding Lights":                    "blinding lights",
		"Old Town Road (Remix)":              "old town road",
		"Stay feat. Someone":                 "stay",
		"  UPPER  ":                          "upper",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTitle(in), in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("", "anything"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("abcde", "abcde"), 1e-9)
	assert.InDelta(t, 0.8, Similarity("abcde", "abcdx"), 1e-9)
	assert.InDelta(t, 0.9, Similarity("abcdefghij", "abcdefghix"), 1e-9)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", Sanitize("<b>hi</b>"))
}

func TestBasicSong(t *testing.T) {
	m := New(KindBasic)
	m.SetRound("Bohemian Rhapsody - Remastered 2011", []string{"Queen"})

	ok, optimal := m.Song("bohemian rhapsody")
	assert.True(t, ok)
	assert.Equal(t, "Bohemian Rhapsody - Remastered 2011", optimal)

	ok, _ = m.Song("bohemian rapsody")
	assert.False(t, ok)
	assert.True(t, m.SongClose("bohemian rapsody"))
	assert.False(t, m.SongClose("we will rock you"))
}

func TestBasicArtistDedupesAndKeepsDisplayCase(t *testing.T) {
	m := New(KindBasic)
	m.SetRound("Under Pressure", []string{"Queen", "David Bowie", "queen"})
	require.Equal(t, 2, m.ArtistCount())

	ok, optimal := m.Artist("DAVID BOWIE")
	assert.True(t, ok)
	assert.Equal(t, "David Bowie", optimal)

	ok, optimal = m.Artist("queen")
	assert.True(t, ok)
	assert.Equal(t, "Queen", optimal)

	ok, _ = m.Artist("Freddie")
	assert.False(t, ok)
}

func TestBasicArtistClose(t *testing.T) {
	m := New(KindBasic)
	m.SetRound("Under Pressure", []string{"Queen", "David Bowie"})

	assert.True(t, m.ArtistClose("david bowi"))
	assert.False(t, m.ArtistClose("queeeen"))
	assert.False(t, m.ArtistClose("metallica"))
}

func TestBasicSetRoundReplacesPreviousAnswer(t *testing.T) {
	m := New(KindBasic)
	m.SetRound("First", []string{"A", "B"})
	m.SetRound("Second", []string{"C"})

	assert.Equal(t, 1, m.ArtistCount())
	ok, _ := m.Artist("a")
	assert.False(t, ok)
	ok, _ = m.Song("second")
	assert.True(t, ok)
}
