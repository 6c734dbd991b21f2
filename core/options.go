package caddie

import (
	"context"
	"time"

	"github.com/koscakluka/ema-caddie/core/assistant"
	"github.com/koscakluka/ema-caddie/core/audio"
	"github.com/koscakluka/ema-caddie/core/cues"
	"github.com/koscakluka/ema-caddie/core/golf"
	"github.com/koscakluka/ema-caddie/core/speechtotext"
	"github.com/koscakluka/ema-caddie/core/texttospeech"
)

type SessionOption func(*Session)

// Assistant produces the caddie's reply for a turn. Any error is treated as
// a recoverable miss.
type Assistant interface {
	Respond(ctx context.Context, req assistant.Request) (*assistant.Reply, error)
}

func WithAssistant(client Assistant) SessionOption {
	return func(s *Session) { s.assistant = client }
}

// RoundSaver overwrites the stored snapshot of a round. Rounds are
// identified by their ID within the course.
type RoundSaver interface {
	SaveRound(ctx context.Context, courseID string, round golf.Round) error
}

func WithRoundSaver(saver RoundSaver) SessionOption {
	return func(s *Session) { s.saver = saver }
}

type CourseNotes interface {
	AddNote(ctx context.Context, courseID string, holeNumber int, text string) error
}

func WithCourseNotes(notes CourseNotes) SessionOption {
	return func(s *Session) { s.notes = notes }
}

type PlayerProfile interface {
	Profile(ctx context.Context) (golf.PlayerProfile, error)
	AddTendency(ctx context.Context, text string) error
}

func WithPlayerProfile(profile PlayerProfile) SessionOption {
	return func(s *Session) { s.profile = profile }
}

func WithCuePlayback(playback cues.Playback) SessionOption {
	return func(s *Session) { s.cues = cues.NewDispatcher(playback) }
}

// SpeechInput is a recogniser that reports transcript snapshots until it
// stops, either on request or on its own.
type SpeechInput interface {
	StartRecognition(ctx context.Context, opts ...speechtotext.RecognitionOption) error
	StopRecognition() error
}

func WithSpeechInput(client SpeechInput) SessionOption {
	return func(s *Session) { s.speechInput.set(client) }
}

type TextToSpeech interface {
	NewSpeechGeneratorV0(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error)
}

type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

// WithSpeechOutput enables spoken replies. Both the generator and the
// device are needed; either being nil leaves speech disabled.
func WithSpeechOutput(client TextToSpeech, output AudioOutput) SessionOption {
	return func(s *Session) { s.speechOutput.set(client, output) }
}

// WithResponseTimeout bounds how long a turn waits for the assistant.
// Zero or negative durations disable the bound.
func WithResponseTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) { s.responseTimeout = timeout }
}

func WithConditions(conditions string) SessionOption {
	return func(s *Session) {
		if conditions != "" {
			s.conditions = conditions
		}
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// StartOptions holds the observers of a running round. Callbacks run on
// the goroutine that caused the change and must not block.
type StartOptions struct {
	onMessage        func(msg golf.ChatMessage)
	onTurnState      func(state TurnState)
	onHoleChanged    func(hole golf.Hole)
	onInput          func(text string)
	onListeningState func(isListening bool)
	onRoundUpdated   func(round golf.Round)
}

type StartOption func(*StartOptions)

// WithMessageCallback is called for every message appended to the
// conversation, including the greeting.
func WithMessageCallback(callback func(msg golf.ChatMessage)) StartOption {
	return func(o *StartOptions) { o.onMessage = callback }
}

func WithTurnStateCallback(callback func(state TurnState)) StartOption {
	return func(o *StartOptions) { o.onTurnState = callback }
}

func WithHoleChangedCallback(callback func(hole golf.Hole)) StartOption {
	return func(o *StartOptions) { o.onHoleChanged = callback }
}

// WithInputCallback is called whenever the input buffer is replaced, by a
// transcript snapshot or by sending.
func WithInputCallback(callback func(text string)) StartOption {
	return func(o *StartOptions) { o.onInput = callback }
}

func WithListeningStateCallback(callback func(isListening bool)) StartOption {
	return func(o *StartOptions) { o.onListeningState = callback }
}

// WithRoundUpdatedCallback receives the round after every merge.
func WithRoundUpdatedCallback(callback func(round golf.Round)) StartOption {
	return func(o *StartOptions) { o.onRoundUpdated = callback }
}

func defaultStartOptions() StartOptions {
	return StartOptions{
		onMessage:        func(golf.ChatMessage) {},
		onTurnState:      func(TurnState) {},
		onHoleChanged:    func(golf.Hole) {},
		onInput:          func(string) {},
		onListeningState: func(bool) {},
		onRoundUpdated:   func(golf.Round) {},
	}
}

func (o *StartOptions) fillDefaults() {
	defaults := defaultStartOptions()
	if o.onMessage == nil {
		o.onMessage = defaults.onMessage
	}
	if o.onTurnState == nil {
		o.onTurnState = defaults.onTurnState
	}
	if o.onHoleChanged == nil {
		o.onHoleChanged = defaults.onHoleChanged
	}
	if o.onInput == nil {
		o.onInput = defaults.onInput
	}
	if o.onListeningState == nil {
		o.onListeningState = defaults.onListeningState
	}
	if o.onRoundUpdated == nil {
		o.onRoundUpdated = defaults.onRoundUpdated
	}
}
