package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchTrack(ctx context.Context, id string) (*Track, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*Track)
	return t, args.Error(1)
}

func newCached(t *testing.T, next Fetcher) (*Cached, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCached(next, rdb, time.Hour, logger), mr
}

func TestCachedStoresAndServesHits(t *testing.T) {
	next := &mockFetcher{}
	track := &Track{ID: "abc", Title: "Song", ArtistNames: []string{"A"}, DurationMs: 1000}
	next.On("FetchTrack", mock.Anything, "abc").Return(track, nil).Once()

	c, mr := newCached(t, next)

	got, err := c.FetchTrack(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, track, got)
	assert.True(t, mr.Exists(DefaultCachePrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultCachePrefix+"abc"))

	got, err = c.FetchTrack(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, track, got)
	next.AssertExpectations(t)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	next := &mockFetcher{}
	next.On("FetchTrack", mock.Anything, "nope").Return(nil, ErrNotFound).Twice()

	c, mr := newCached(t, next)

	_, err := c.FetchTrack(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(DefaultCachePrefix+"nope"))

	_, err = c.FetchTrack(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	next.AssertExpectations(t)
}

func TestCachedFallsThroughWhenRedisIsDown(t *testing.T) {
	next := &mockFetcher{}
	track := &Track{ID: "abc", Title: "Song"}
	next.On("FetchTrack", mock.Anything, "abc").Return(track, nil)

	c, mr := newCached(t, next)
	mr.Close()

	got, err := c.FetchTrack(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, track, got)
}
