package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	failures int
	batches  [][]cache.ActionRecord
}

func (s *recordingSink) WriteActions(_ context.Context, records []cache.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]cache.ActionRecord(nil), records...))
	return nil
}

func (s *recordingSink) indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, b := range s.batches {
		for _, r := range b {
			out = append(out, r.ActionIndex)
		}
	}
	return out
}

func setup(t *testing.T, sink Sink, batchSize int) (*Historian, *cache.Journal, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	h := New(rdb, sink, Config{
		BatchSize:     batchSize,
		FlushInterval: 20 * time.Millisecond,
		PopTimeout:    time.Second,
	}, logger)
	return h, cache.NewJournal(rdb, ""), mr
}

func publish(t *testing.T, j *cache.Journal, game uuid.UUID, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, j.Publish(context.Background(), cache.ActionRecord{
			GameID:      game,
			ActionIndex: i,
			ActionType:  "guess_correct",
			Timestamp:   time.Now().UnixMilli(),
		}))
	}
}

func runFor(t *testing.T, h *Historian) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("historian did not stop")
		}
	}
}

func TestHistorianDrainsQueueInOrder(t *testing.T) {
	sink := &recordingSink{}
	h, j, mr := setup(t, sink, 2)
	publish(t, j, uuid.New(), 5)

	stop := runFor(t, h)
	assert.Eventually(t, func() bool { return len(sink.indexes()) == 5 }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, sink.indexes())
	assert.False(t, mr.Exists(cache.DefaultQueueName), "queue drained")
}

func TestHistorianSkipsInvalidRecords(t *testing.T) {
	sink := &recordingSink{}
	h, j, mr := setup(t, sink, 10)
	_, err := mr.Push(cache.DefaultQueueName, "{not json")
	require.NoError(t, err)
	publish(t, j, uuid.New(), 1)

	stop := runFor(t, h)
	assert.Eventually(t, func() bool { return len(sink.indexes()) == 1 }, 5*time.Second, 10*time.Millisecond)
	stop()
}

func TestHistorianRetriesFailedFlush(t *testing.T) {
	sink := &recordingSink{failures: 2}
	h, j, _ := setup(t, sink, 3)
	publish(t, j, uuid.New(), 3)

	stop := runFor(t, h)
	assert.Eventually(t, func() bool { return len(sink.indexes()) == 3 }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []int{1, 2, 3}, sink.indexes())
	assert.Zero(t, h.Pending())
}

func TestHistorianCapsPendingWhileSinkFails(t *testing.T) {
	sink := &recordingSink{failures: 1000}
	h, _, _ := setup(t, sink, 1)

	for i := 0; i < maxPendingBatches+5; i++ {
		h.add(cache.ActionRecord{ActionIndex: i})
		h.Flush(context.Background())
	}
	assert.Equal(t, maxPendingBatches, h.Pending())
}

func TestHistorianFlushesOnStop(t *testing.T) {
	sink := &recordingSink{}
	h, _, _ := setup(t, sink, 100)
	h.add(cache.ActionRecord{ActionIndex: 7})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)
	assert.Equal(t, []int{7}, sink.indexes())
}
