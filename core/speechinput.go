package caddie

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-caddie/core/speechtotext"
)

// speechInput tracks the single recognition session a round may hold.
type speechInput struct {
	client SpeechInput

	mu        sync.Mutex
	listening bool
}

func (s *speechInput) set(client SpeechInput) {
	if s != nil {
		s.client = client
	}
}

func (s *speechInput) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechInput) Start(ctx context.Context, onTranscript func(string), onListening func(bool)) error {
	if !s.isConfigured() {
		return nil
	}

	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	s.mu.Unlock()

	err := s.client.StartRecognition(ctx,
		speechtotext.WithTranscriptCallback(onTranscript),
		speechtotext.WithListeningStateCallback(func(isListening bool) {
			s.mu.Lock()
			s.listening = isListening
			s.mu.Unlock()
			onListening(isListening)
		}),
		speechtotext.WithErrorCallback(func(err error) {
			logger.Warn("speech recognition failed", "error", err)
		}),
	)
	if err != nil {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start recognition: %w", err)
	}
	return nil
}

// Stop ends recognition and returns once the recogniser has let go of the
// microphone.
func (s *speechInput) Stop() error {
	if !s.isConfigured() || !s.IsListening() {
		return nil
	}

	if err := s.client.StopRecognition(); err != nil {
		return fmt.Errorf("failed to stop recognition: %w", err)
	}

	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
	return nil
}

func (s *speechInput) IsListening() bool {
	if !s.isConfigured() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}
