package caddie

import (
	"context"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-caddie/core/golf"
)

// copyOptions deep-copies rounds. Timestamps are copied as values since
// their fields are unexported.
var copyOptions = copier.Option{
	DeepCopy: true,
	Converters: []copier.TypeConverter{{
		SrcType: time.Time{},
		DstType: time.Time{},
		Fn:      func(src interface{}) (interface{}, error) { return src, nil },
	}},
}

// copyRound returns a round sharing no memory with round.
func copyRound(round golf.Round) (golf.Round, error) {
	var snapshot golf.Round
	if err := copier.CopyWithOption(&snapshot, &round, copyOptions); err != nil {
		return golf.Round{}, err
	}
	return snapshot, nil
}

// roundWriter persists round snapshots in the background. Only the latest
// pending snapshot is written, so a slow store can never overwrite a newer
// round with an older one.
type roundWriter struct {
	saver    RoundSaver
	courseID string
	ctx      context.Context

	mu      sync.Mutex
	pending *golf.Round
	queued  uint64
	written uint64
	waiters []flushWaiter
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

type flushWaiter struct {
	seq uint64
	ch  chan struct{}
}

func newRoundWriter(ctx context.Context, saver RoundSaver, courseID string) *roundWriter {
	w := &roundWriter{
		saver:    saver,
		courseID: courseID,
		ctx:      context.WithoutCancel(ctx),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()
	return w
}

// Save queues a deep copy of round, replacing any snapshot not yet
// written. Saves after Close are dropped.
func (w *roundWriter) Save(round golf.Round) {
	if w == nil || w.saver == nil {
		return
	}

	snapshot, err := copyRound(round)
	if err != nil {
		logger.Error("failed to copy round for saving", "error", err)
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		logger.Warn("round saved after session closed", "round_id", round.ID)
		return
	}
	w.pending = &snapshot
	w.queued++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every snapshot queued before the call has been handed
// to the store.
func (w *roundWriter) Flush(ctx context.Context) error {
	if w == nil || w.saver == nil {
		return nil
	}

	w.mu.Lock()
	if w.written >= w.queued {
		w.mu.Unlock()
		return nil
	}
	waiter := flushWaiter{seq: w.queued, ch: make(chan struct{})}
	w.waiters = append(w.waiters, waiter)
	w.mu.Unlock()

	select {
	case <-waiter.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes whatever is still pending and stops the worker.
func (w *roundWriter) Close() {
	if w == nil {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
}

func (w *roundWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.done:
			w.drain()
			return
		}
	}
}

func (w *roundWriter) drain() {
	for {
		w.mu.Lock()
		round := w.pending
		seq := w.queued
		w.pending = nil
		w.mu.Unlock()
		if round == nil {
			return
		}

		if err := w.saver.SaveRound(w.ctx, w.courseID, *round); err != nil {
			logger.Error("failed to save round", "round_id", round.ID, "error", err)
		}

		w.mu.Lock()
		w.written = seq
		remaining := w.waiters[:0]
		for _, waiter := range w.waiters {
			if waiter.seq <= seq {
				close(waiter.ch)
			} else {
				remaining = append(remaining, waiter)
			}
		}
		w.waiters = remaining
		w.mu.Unlock()
	}
}
