package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/sirupsen/logrus"
)

var testTrack = &catalog.Track{
	ID:          "track1",
	Title:       "Africa",
	ArtistIDs:   []string{"toto"},
	ArtistNames: []string{"Toto"},
	DurationMs:  295893,
}

type sentEvent struct {
	event   string
	payload interface{}
}

// mockEndpoint collects events instead of sending them over WS.
type mockEndpoint struct {
	mu     sync.Mutex
	events []sentEvent
}

func (m *mockEndpoint) Send(event string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{event, payload})
}

func (m *mockEndpoint) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.event == event {
			n++
		}
	}
	return n
}

// lobbyInfos returns every lobbyInfo payload of the given type, oldest first.
func (m *mockEndpoint) lobbyInfos(typ string) []game.LobbyInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.LobbyInfo
	for _, e := range m.events {
		if info, ok := e.payload.(game.LobbyInfo); ok && e.event == game.EventLobbyInfo && info.Type == typ {
			out = append(out, info)
		}
	}
	return out
}

func (m *mockEndpoint) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

type stubFetcher struct {
	tracks map[string]*catalog.Track
}

func (f *stubFetcher) FetchTrack(_ context.Context, id string) (*catalog.Track, error) {
	if t, ok := f.tracks[id]; ok {
		return t, nil
	}
	return nil, catalog.ErrNotFound
}

type recordingResults struct {
	mu      sync.Mutex
	results []models.GameResult
}

func (r *recordingResults) SaveGameResults(_ context.Context, results []models.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
	return nil
}

func (r *recordingResults) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type testEnv struct {
	store   *Store
	clk     *clock.Fake
	results *recordingResults
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	env := &testEnv{
		clk:     clock.NewFake(time.Unix(1700000000, 0)),
		results: &recordingResults{},
	}
	env.store = NewStore(Options{
		Clock:        env.clk,
		Fetcher:      &stubFetcher{tracks: map[string]*catalog.Track{testTrack.ID: testTrack}},
		Results:      env.results,
		Logger:       logger,
		Intermission: time.Second,
	})
	t.Cleanup(env.store.Shutdown)
	return env
}

type testUser struct {
	*models.User
	ep *mockEndpoint
}

func newTestUser(name string) testUser {
	return testUser{
		User: &models.User{ID: uuid.New(), Username: name},
		ep:   &mockEndpoint{},
	}
}

func (e *testEnv) client(u testUser) *Client {
	return NewClient(e.store, u.User, u.ep)
}

// activeID reads the id of the participant currently selecting.
func activeID(r *Room) uuid.UUID {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.session == nil || r.session.ActivePlayer() == nil {
		return uuid.Nil
	}
	return r.session.ActivePlayer().ID
}

func sessionState(r *Room) game.State {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.session == nil {
		return game.StateEnded
	}
	return r.session.State()
}
