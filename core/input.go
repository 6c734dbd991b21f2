package caddie

import (
	"context"
	"fmt"
)

// SetInput replaces the text input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	callbacks := s.callbacks
	s.mu.Unlock()

	callbacks.onInput(text)
}

func (s *Session) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// SendInput stops listening, then sends the input buffer as the user's
// message. The buffer is cleared once the message is accepted.
func (s *Session) SendInput(ctx context.Context) error {
	if err := s.StopListening(); err != nil {
		logger.Warn("failed to stop listening before sending", "error", err)
	}

	return s.runTurn(ctx, s.Input(), true)
}

// StartListening starts speech input. Each transcript snapshot replaces
// the input buffer. Without a speech input this is a no-op, and it is
// refused while a turn awaits its reply.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.RLock()
	state, turn, closed := s.state, s.turn, s.closed
	s.mu.RUnlock()

	switch {
	case state == sessionNotStarted:
		return ErrSessionNotStarted
	case state == sessionFinished || closed:
		return ErrSessionFinished
	case turn == TurnAwaitingResponse:
		return ErrTurnInProgress
	}

	if err := s.speechInput.Start(ctx, s.onTranscript, s.onListeningState); err != nil {
		logger.Warn("speech input unavailable", "error", err)
		return fmt.Errorf("speech input unavailable: %w", err)
	}
	return nil
}

func (s *Session) StopListening() error {
	return s.speechInput.Stop()
}

func (s *Session) IsListening() bool {
	return s.speechInput.IsListening()
}

func (s *Session) onTranscript(transcript string) {
	s.SetInput(transcript)
}

func (s *Session) onListeningState(isListening bool) {
	s.mu.RLock()
	callbacks := s.callbacks
	s.mu.RUnlock()

	callbacks.onListeningState(isListening)
}
