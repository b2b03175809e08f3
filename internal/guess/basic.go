// internal/guess/basic.go
package guess

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Basic compares normalized, lowercased text exactly, and uses edit distance for "close".
type Basic struct {
	title       string
	masterTitle string

	// artists holds lowercased distinct names; display keeps the first spelling seen for each.
	artists []string
	display []string
}

func (b *Basic) SetRound(title string, artists []string) {
	b.masterTitle = title
	b.title = NormalizeTitle(title)

	b.artists = b.artists[:0]
	b.display = b.display[:0]
	seen := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		b.artists = append(b.artists, key)
		b.display = append(b.display, a)
	}
}

func (b *Basic) Song(guess string) (bool, string) {
	return b.title == NormalizeTitle(guess), b.masterTitle
}

func (b *Basic) Artist(guess string) (bool, string) {
	key := strings.ToLower(strings.TrimSpace(guess))
	for i, a := range b.artists {
		if a == key {
			return true, b.display[i]
		}
	}
	return false, ""
}

func (b *Basic) SongClose(guess string) bool {
	return Similarity(b.title, NormalizeTitle(guess)) > CloseThreshold
}

// ArtistClose compares against the nearest artist by edit distance.
func (b *Basic) ArtistClose(guess string) bool {
	if len(b.artists) == 0 {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(guess))
	best, bestDist := 0, math.MaxInt
	for i, a := range b.artists {
		if d := levenshtein.ComputeDistance(key, a); d < bestDist {
			best, bestDist = i, d
		}
	}
	return similarityWithDistance(b.artists[best], bestDist) > CloseThreshold
}

func (b *Basic) ArtistCount() int {
	return len(b.artists)
}
