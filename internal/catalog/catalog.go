// internal/catalog/catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/songquiz/internal/codes"
)

// Track is the metadata a turn needs about the selected song.
type Track struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ArtistIDs   []string `json:"artist_ids"`
	ArtistNames []string `json:"artist_names"`
	DurationMs  int      `json:"duration_ms"`
	CoverArtURL string   `json:"cover_art_url"`
}

// Fetcher looks up a track by its catalog id.
type Fetcher interface {
	FetchTrack(ctx context.Context, id string) (*Track, error)
}

var (
	// ErrNotFound reports an id the catalog does not know. It maps to song_not_found.
	ErrNotFound = fmt.Errorf("track not found: %w", codes.SongNotFound)
	// ErrUnavailable wraps transport and upstream failures.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Unavailable is the fetcher used when no catalog is configured.
type Unavailable struct{}

func (Unavailable) FetchTrack(context.Context, string) (*Track, error) {
	return nil, ErrUnavailable
}
