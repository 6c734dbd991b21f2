package caddie

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-caddie/core/texttospeech"
)

// speechOutput speaks one utterance at a time. A new utterance, a cancel
// or disabling output stops whatever is playing; nothing is queued.
type speechOutput struct {
	client TextToSpeech
	output AudioOutput

	mu         sync.Mutex
	enabled    bool
	generation uint64
	current    texttospeech.SpeechGeneratorV0
	closed     bool

	wg sync.WaitGroup
}

func (s *speechOutput) set(client TextToSpeech, output AudioOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.output = output
	s.enabled = client != nil && output != nil
}

func (s *speechOutput) isConfigured() bool {
	return s != nil && s.client != nil && s.output != nil
}

func (s *speechOutput) SetEnabled(enabled bool) {
	if !s.isConfigured() {
		return
	}

	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	if !enabled {
		s.Cancel()
	}
}

func (s *speechOutput) IsEnabled() bool {
	if !s.isConfigured() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Speak preempts the current utterance and starts generating text in the
// background. It returns once the previous utterance has been silenced.
// After Close it does nothing.
func (s *speechOutput) Speak(ctx context.Context, text string) {
	if !s.isConfigured() || text == "" {
		return
	}

	s.mu.Lock()
	if !s.enabled || s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	generation := s.generation
	previous := s.current
	s.current = nil
	s.wg.Add(1)
	s.mu.Unlock()

	s.silence(previous)

	go func() {
		defer s.wg.Done()
		if err := s.generate(ctx, generation, text); err != nil {
			logger.Warn("failed to speak response", "error", err)
		}
	}()
}

func (s *speechOutput) generate(ctx context.Context, generation uint64, text string) error {
	generator, err := s.client.NewSpeechGeneratorV0(ctx,
		texttospeech.WithEncodingInfo(s.output.EncodingInfo()),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			if !s.isCurrent(generation) {
				return
			}
			if err := s.output.SendAudio(audio); err != nil {
				logger.Debug("failed to play speech audio", "error", err)
			}
		}),
		texttospeech.WithSpeechEndedCallbackV0(func(texttospeech.SpeechEndedReport) {
			s.release(generation)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to open speech generator: %w", err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		_ = generator.Cancel()
		return nil
	}
	s.current = generator
	s.mu.Unlock()

	if err := generator.SendText(text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := generator.EndOfText(); err != nil {
		return fmt.Errorf("failed to end text: %w", err)
	}
	return nil
}

// Cancel stops the current utterance, including one still connecting.
func (s *speechOutput) Cancel() {
	if !s.isConfigured() {
		return
	}

	s.mu.Lock()
	s.generation++
	previous := s.current
	s.current = nil
	s.mu.Unlock()

	s.silence(previous)
}

func (s *speechOutput) IsSpeaking() bool {
	if !s.isConfigured() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Close cancels speech, refuses further utterances and waits for
// background generation to settle.
func (s *speechOutput) Close() {
	if !s.isConfigured() {
		return
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Cancel()
	s.wg.Wait()
}

func (s *speechOutput) silence(generator texttospeech.SpeechGeneratorV0) {
	if generator != nil {
		if err := generator.Cancel(); err != nil {
			logger.Debug("failed to cancel speech", "error", err)
		}
	}
	s.output.ClearBuffer()
}

func (s *speechOutput) isCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == generation
}

func (s *speechOutput) release(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == generation {
		s.current = nil
	}
}
