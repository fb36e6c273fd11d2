// Package historian drains the archive queue of ended matches into long-term storage.
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of ended matches.
type Sink interface {
	InsertMatches(ctx context.Context, matches []models.Match) error
}

type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop so cancellation and timed flushes are noticed.
	PopTimeout time.Duration
	// MaxPending caps the records held in memory while the sink fails. Beyond it the
	// batch goes back onto the queue.
	MaxPending int
}

// Service pops ended matches from the archive queue, accumulates them in a batch and
// flushes the batch to the sink when it is full or FlushDelay elapsed.
type Service struct {
	store  *store.Store
	sink   Sink
	opts   Options
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.Match
}

func NewService(s *store.Store, sink Sink, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if opts.MaxPending < opts.BatchSize {
		opts.MaxPending = 10 * opts.BatchSize
	}
	return &Service{
		store:  s,
		sink:   sink,
		opts:   opts,
		logger: logger,
		batch:  make([]models.Match, 0, opts.BatchSize),
	}
}

// Run consumes the queue until ctx is done. Whatever the last flush cannot store is pushed
// back onto the queue.
func (hs *Service) Run(ctx context.Context) {
	defer func() {
		final := context.WithoutCancel(ctx)
		if err := hs.Flush(final); err != nil {
			hs.requeue(final)
		}
	}()

	lastFlush := time.Now()
	for ctx.Err() == nil {
		if time.Since(lastFlush) >= hs.opts.FlushDelay {
			hs.flushOrShed(ctx)
			lastFlush = time.Now()
		}

		payload, ok, err := hs.store.BLPop(ctx, hs.opts.PopTimeout, hs.opts.Queue)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			hs.logger.Errorf("historian: BLPop: %v", err)
			time.Sleep(hs.opts.PopTimeout)
			continue
		}
		if !ok {
			continue
		}

		var m models.Match
		if err := json.Unmarshal([]byte(payload), &m); err != nil || m.ID == "" {
			hs.logger.Warnf("historian: invalid archive record: %v", err)
			continue
		}
		if hs.appendToBatch(m) {
			hs.flushOrShed(ctx)
			lastFlush = time.Now()
		}
	}
}

// flushOrShed flushes and, when the sink keeps failing, hands the batch back to Redis once
// it outgrew MaxPending.
func (hs *Service) flushOrShed(ctx context.Context) {
	if err := hs.Flush(ctx); err == nil {
		return
	}
	if hs.Pending() >= hs.opts.MaxPending {
		hs.requeue(ctx)
	}
}

// appendToBatch adds a record and reports whether the batch reached its size threshold.
func (hs *Service) appendToBatch(m models.Match) bool {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.batch = append(hs.batch, m)
	return len(hs.batch) >= hs.opts.BatchSize
}

// Flush writes the pending batch. On failure the records stay queued in memory and are
// retried on the next flush.
func (hs *Service) Flush(ctx context.Context) error {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return nil
	}
	if err := hs.sink.InsertMatches(ctx, hs.batch); err != nil {
		hs.logger.Errorf("historian: flush %d matches: %v", len(hs.batch), err)
		return fmt.Errorf("flush %d matches: %w", len(hs.batch), err)
	}
	hs.logger.Infof("historian: flushed %d matches", len(hs.batch))
	hs.batch = make([]models.Match, 0, hs.opts.BatchSize)
	return nil
}

// requeue pushes the pending batch back onto the archive queue. Records that cannot be
// pushed stay in memory.
func (hs *Service) requeue(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return
	}
	values := make([]any, 0, len(hs.batch))
	for _, m := range hs.batch {
		raw, err := json.Marshal(m)
		if err != nil {
			hs.logger.Errorf("historian: encode match %s: %v", m.ID, err)
			continue
		}
		values = append(values, string(raw))
	}
	if len(values) == 0 {
		hs.batch = hs.batch[:0]
		return
	}
	if err := hs.store.RPush(ctx, hs.opts.Queue, values...); err != nil {
		hs.logger.Errorf("historian: requeue %d matches: %v", len(values), err)
		return
	}
	hs.logger.Warnf("historian: requeued %d matches", len(values))
	hs.batch = make([]models.Match, 0, hs.opts.BatchSize)
}

// Pending reports how many records wait for the next flush.
func (hs *Service) Pending() int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	return len(hs.batch)
}
