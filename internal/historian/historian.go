// internal/historian/historian.go drains the action journal from Redis and persists it in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBatchSize     = 20
	DefaultFlushInterval = 500 * time.Millisecond
	DefaultPopTimeout    = 3 * time.Second

	// pending records beyond this many batches are dropped while the sink keeps failing
	maxPendingBatches = 10
	finalFlushTimeout = 5 * time.Second
)

// Sink stores a batch of action records.
type Sink interface {
	WriteActions(ctx context.Context, records []cache.ActionRecord) error
}

// Config tunes the consumer. Zero values take the defaults.
type Config struct {
	Queue         string
	BatchSize     int
	FlushInterval time.Duration
	PopTimeout    time.Duration
}

// Historian pops action records off the journal queue and hands them to a Sink.
type Historian struct {
	rdb  *redis.Client
	sink Sink
	cfg  Config
	log  logrus.FieldLogger

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

func New(rdb *redis.Client, sink Sink, cfg Config, logger logrus.FieldLogger) *Historian {
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultQueueName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = DefaultPopTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Historian{
		rdb:   rdb,
		sink:  sink,
		cfg:   cfg,
		log:   logger.WithField("queue", cfg.Queue),
		batch: make([]cache.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run consumes until ctx is cancelled, then flushes what it holds.
func (h *Historian) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.FlushInterval)
	defer ticker.Stop()

	h.log.Info("historian started")
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		h.Flush(flushCtx)
		h.log.Info("historian stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Flush(ctx)
		default:
			h.pop(ctx)
		}
	}
}

// pop waits up to PopTimeout for one record.
func (h *Historian) pop(ctx context.Context) {
	res, err := h.rdb.BLPop(ctx, h.cfg.PopTimeout, h.cfg.Queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			h.log.Errorf("BLPop: %v", err)
			// avoid spinning on a dead connection
			select {
			case <-ctx.Done():
			case <-time.After(h.cfg.FlushInterval):
			}
		}
		return
	}
	if len(res) < 2 {
		return
	}

	var rec cache.ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		h.log.Warnf("invalid action record: %v", err)
		return
	}
	if h.add(rec) {
		h.Flush(ctx)
	}
}

// add queues rec and reports whether a full batch is waiting.
func (h *Historian) add(rec cache.ActionRecord) bool {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	h.batch = append(h.batch, rec)
	return len(h.batch) >= h.cfg.BatchSize
}

// Flush writes the pending records. Records of a failed write are kept for the next flush.
func (h *Historian) Flush(ctx context.Context) {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	pending := h.batch
	h.batch = make([]cache.ActionRecord, 0, h.cfg.BatchSize)
	h.batchMu.Unlock()

	if err := h.sink.WriteActions(ctx, pending); err != nil {
		h.log.Errorf("flush of %d actions failed: %v", len(pending), err)
		h.requeue(pending)
		return
	}
	h.log.Debugf("flushed %d actions", len(pending))
}

func (h *Historian) requeue(failed []cache.ActionRecord) {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	h.batch = append(failed, h.batch...)
	if limit := h.cfg.BatchSize * maxPendingBatches; len(h.batch) > limit {
		dropped := len(h.batch) - limit
		h.batch = h.batch[dropped:]
		h.log.Errorf("dropped %d actions after repeated flush failures", dropped)
	}
}

// Pending is the number of records waiting for a flush.
func (h *Historian) Pending() int {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	return len(h.batch)
}
