package cues

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher fires cue playback without blocking the caller.
type Dispatcher struct {
	playback Playback

	mu      sync.Mutex
	waiting bool
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher that plays through playback. A nil
// playback turns every dispatch into a no-op.
func NewDispatcher(playback Playback) *Dispatcher {
	return &Dispatcher{playback: playback}
}

// Dispatch starts playback for cue and reports whether anything was started.
// Cues dispatched after [Dispatcher.Wait] has been called are dropped.
func (d *Dispatcher) Dispatch(cue Cue) bool {
	if d == nil || d.playback == nil {
		return false
	}

	play := action(cue)
	if play == nil {
		return false
	}

	d.mu.Lock()
	if d.waiting {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("cue playback panicked", "cue", cue.String(), "panic", fmt.Sprint(recovered))
			}
		}()
		play(d.playback)
	}()
	return true
}

// Wait stops accepting cues and blocks until every dispatched cue has
// returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	d.waiting = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
