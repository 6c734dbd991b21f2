package caddie

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/koscakluka/ema-caddie/core/assistant"
	"github.com/koscakluka/ema-caddie/core/audio"
	"github.com/koscakluka/ema-caddie/core/golf"
	"github.com/koscakluka/ema-caddie/core/speechtotext"
	"github.com/koscakluka/ema-caddie/core/texttospeech"
)

func ptr[T any](v T) *T { return &v }

// eventLog records the order in which stubs were called.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) contains(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type stubAssistant struct {
	mu       sync.Mutex
	requests []assistant.Request
	respond  func(ctx context.Context, req assistant.Request) (*assistant.Reply, error)
	log      *eventLog
}

func (a *stubAssistant) Respond(ctx context.Context, req assistant.Request) (*assistant.Reply, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	a.log.add("respond")

	if a.respond == nil {
		return &assistant.Reply{Text: "Got it."}, nil
	}
	return a.respond(ctx, req)
}

func (a *stubAssistant) lastRequest() assistant.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

func replyWith(reply assistant.Reply) func(context.Context, assistant.Request) (*assistant.Reply, error) {
	return func(context.Context, assistant.Request) (*assistant.Reply, error) {
		return &reply, nil
	}
}

var errAssistantDown = errors.New("network down")

type recordingSaver struct {
	mu     sync.Mutex
	rounds []golf.Round
	delay  time.Duration
	log    *eventLog
}

func (s *recordingSaver) SaveRound(_ context.Context, courseID string, round golf.Round) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, round)
	s.log.add("save")
	return nil
}

func (s *recordingSaver) saved() []golf.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]golf.Round(nil), s.rounds...)
}

type noteCall struct {
	courseID   string
	holeNumber int
	text       string
}

type stubNotes struct {
	mu    sync.Mutex
	calls []noteCall
	log   *eventLog
	// before, when set, runs ahead of recording each call
	before func()
}

func (n *stubNotes) AddNote(_ context.Context, courseID string, holeNumber int, text string) error {
	if n.before != nil {
		n.before()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, noteCall{courseID: courseID, holeNumber: holeNumber, text: text})
	n.log.add("note")
	return nil
}

type stubProfile struct {
	mu         sync.Mutex
	tendencies []string
	log        *eventLog
}

func (p *stubProfile) Profile(context.Context) (golf.PlayerProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return golf.PlayerProfile{Tendencies: append([]string(nil), p.tendencies...)}, nil
}

func (p *stubProfile) AddTendency(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tendencies = append(p.tendencies, text)
	p.log.add("tendency")
	return nil
}

type recordingPlayback struct {
	played chan string
}

func newRecordingPlayback() *recordingPlayback {
	return &recordingPlayback{played: make(chan string, 16)}
}

func (p *recordingPlayback) DiscoveryChime()   { p.played <- "discovery" }
func (p *recordingPlayback) UpdatePing()       { p.played <- "update" }
func (p *recordingPlayback) MemoryTone()       { p.played <- "memory" }
func (p *recordingPlayback) AchievementSound() { p.played <- "achievement" }
func (p *recordingPlayback) ShotLogged()       { p.played <- "log" }

type stubSpeechInput struct {
	mu      sync.Mutex
	options speechtotext.RecognitionOptions
	starts  int
	stops   int
	log     *eventLog
}

func (s *stubSpeechInput) StartRecognition(_ context.Context, opts ...speechtotext.RecognitionOption) error {
	options := speechtotext.DefaultRecognitionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s.mu.Lock()
	s.options = options
	s.starts++
	s.mu.Unlock()
	s.log.add("start listening")

	options.ListeningStateCallback(true)
	return nil
}

func (s *stubSpeechInput) StopRecognition() error {
	s.mu.Lock()
	options := s.options
	s.stops++
	s.mu.Unlock()
	s.log.add("stop listening")

	options.ListeningStateCallback(false)
	return nil
}

func (s *stubSpeechInput) transcript(text string) {
	s.mu.Lock()
	options := s.options
	s.mu.Unlock()
	options.TranscriptCallback(text)
}

func (s *stubSpeechInput) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

type stubGenerator struct {
	mu        sync.Mutex
	text      string
	ended     bool
	cancelled bool
	options   texttospeech.TextToSpeechOptions
	log       *eventLog
}

func (g *stubGenerator) SendText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelled {
		return errors.New("cancelled")
	}
	g.text += text
	g.log.add("speak " + text)
	return nil
}

func (g *stubGenerator) EndOfText() error {
	g.mu.Lock()
	g.ended = true
	g.mu.Unlock()
	g.options.SpeechAudioCallback([]byte(g.text))
	return nil
}

func (g *stubGenerator) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
	return nil
}

func (g *stubGenerator) Close() error { return nil }

func (g *stubGenerator) state() (text string, cancelled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.cancelled
}

type stubTextToSpeech struct {
	mu         sync.Mutex
	generators []*stubGenerator
	// gate, when set, holds generator creation until it is closed
	gate chan struct{}
	log  *eventLog
}

func (t *stubTextToSpeech) NewSpeechGeneratorV0(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error) {
	if t.gate != nil {
		<-t.gate
	}

	options := texttospeech.DefaultTextToSpeechOptions()
	for _, opt := range opts {
		opt(&options)
	}
	generator := &stubGenerator{options: options, log: t.log}

	t.mu.Lock()
	t.generators = append(t.generators, generator)
	t.mu.Unlock()
	return generator, nil
}

func (t *stubTextToSpeech) all() []*stubGenerator {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*stubGenerator(nil), t.generators...)
}

type stubAudioOutput struct {
	mu     sync.Mutex
	played []string
	clears int
}

func (o *stubAudioOutput) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (o *stubAudioOutput) SendAudio(audio []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.played = append(o.played, string(audio))
	return nil
}

func (o *stubAudioOutput) ClearBuffer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clears++
}

func (o *stubAudioOutput) state() (played []string, clears int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.played...), o.clears
}

func testCourse() golf.Course {
	holes := golf.DefaultHoles(3)
	holes[1].Par = 3
	holes[1].Yardage = 165
	return golf.Course{ID: "course-1", Name: "Pine Valley", Holes: holes}
}

func waitFor(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}
