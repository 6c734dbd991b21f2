package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	caddie "github.com/koscakluka/ema-caddie/core"
	"github.com/koscakluka/ema-caddie/core/golf"
)

type (
	messageMsg   struct{ msg golf.ChatMessage }
	turnStateMsg struct{ state caddie.TurnState }
	holeMsg      struct{ hole golf.Hole }
	inputMsg     struct{ text string }
	listeningMsg struct{ isListening bool }
	roundMsg     struct{ round golf.Round }

	sendResultMsg   struct{ err error }
	listenResultMsg struct{ err error }
	finishedMsg     struct {
		round golf.Round
		err   error
	}
)

// eventQueue decouples session callbacks from the UI. Callbacks may fire
// from inside the UI's own update loop, so pushing never blocks.
type eventQueue struct {
	mu      sync.Mutex
	pending []tea.Msg
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(msg tea.Msg) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pump delivers queued messages in order until ctx is done.
func (q *eventQueue) pump(ctx context.Context, send func(tea.Msg)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.ready:
		}

		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, msg := range batch {
			send(msg)
		}
	}
}
