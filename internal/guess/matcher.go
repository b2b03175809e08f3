// internal/guess/matcher.go
package guess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// CloseThreshold is the similarity above which a wrong guess counts as "close".
const CloseThreshold = 0.8

// Kind selects a Matcher implementation when a session is built.
type Kind int

const (
	KindBasic Kind = iota
)

// Matcher judges guesses against the answer armed for the current turn.
type Matcher interface {
	// SetRound arms the matcher with the authoritative title and artists.
	SetRound(title string, artists []string)
	// Song reports whether guess matches the title, and the title as it should be displayed.
	Song(guess string) (bool, string)
	// Artist reports whether guess names one of the artists, and that artist's display form.
	Artist(guess string) (bool, string)
	SongClose(guess string) bool
	ArtistClose(guess string) bool
	// ArtistCount is the number of distinct artists for the armed track.
	ArtistCount() int
}

// New returns the Matcher for kind.
func New(kind Kind) Matcher {
	switch kind {
	default:
		return &Basic{}
	}
}

var qualifiers = regexp.MustCompile(`(?i)\s*-.*|\(.*\)|feat.*`)

// NormalizeTitle strips dash qualifiers, parenthetical asides and "feat" suffixes,
// then lowercases and trims.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(strings.ToLower(qualifiers.ReplaceAllString(title, "")))
}

// Similarity is 1 - distance/len(answer), measured in runes. An empty answer is fully similar.
func Similarity(answer, guess string) float64 {
	return similarityWithDistance(answer, levenshtein.ComputeDistance(answer, guess))
}

func similarityWithDistance(answer string, dist int) float64 {
	n := utf8.RuneCountInString(answer)
	if n == 0 {
		return 1.0
	}
	return float64(n-dist) / float64(n)
}

var escaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize escapes angle brackets so guesses can be echoed as chat safely.
func Sanitize(s string) string {
	return escaper.Replace(s)
}
