// internal/catalog/spotify.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com"
)

// SpotifyConfig holds the client-credentials app and endpoints.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
	Market       string
	Timeout      time.Duration
}

// Spotify fetches tracks from the Spotify Web API.
type Spotify struct {
	client *http.Client
	apiURL string
	market string
}

// NewSpotify builds a client whose requests carry a client-credentials bearer token.
// The token is fetched lazily and refreshed by the oauth2 transport.
func NewSpotify(ctx context.Context, cfg SpotifyConfig) *Spotify {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := cc.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	return NewSpotifyWithClient(httpClient, cfg.APIURL, cfg.Market)
}

// NewSpotifyWithClient uses an already authorized http client.
func NewSpotifyWithClient(client *http.Client, apiURL, market string) *Spotify {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Spotify{
		client: client,
		apiURL: strings.TrimRight(apiURL, "/"),
		market: market,
	}
}

type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Artists    []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (s *Spotify) FetchTrack(ctx context.Context, id string) (*Track, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	endpoint := s.apiURL + "/v1/tracks/" + url.PathEscape(id)
	if s.market != "" {
		endpoint += "?market=" + url.QueryEscape(s.market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: spotify status %d", ErrUnavailable, resp.StatusCode)
	}

	var body spotifyTrack
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode track: %v", ErrUnavailable, err)
	}

	t := &Track{
		ID:         body.ID,
		Title:      body.Name,
		DurationMs: body.DurationMs,
	}
	for _, a := range body.Artists {
		t.ArtistIDs = append(t.ArtistIDs, a.ID)
		t.ArtistNames = append(t.ArtistNames, a.Name)
	}
	if len(body.Album.Images) > 0 {
		t.CoverArtURL = body.Album.Images[0].URL
	}
	return t, nil
}
