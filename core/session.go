// Package caddie runs a single round of golf as a conversation: it drives
// one assistant round-trip per turn, folds the extracted facts into the
// round record and fans the side effects out to speech, cues and storage.
package caddie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-caddie/core/assistant"
	"github.com/koscakluka/ema-caddie/core/cues"
	"github.com/koscakluka/ema-caddie/core/golf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionFinished   = errors.New("session finished")
	ErrTurnInProgress    = errors.New("a turn is already awaiting a response")

	// ErrAssistantUnavailable marks a turn that got no usable reply. The
	// user's message is kept so the turn can be retried.
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	ErrAssistantTimeout     = fmt.Errorf("%w: response timed out", ErrAssistantUnavailable)
)

const (
	DefaultConditions      = "Clear skies, 5 mph wind"
	DefaultResponseTimeout = 30 * time.Second

	greetingFormat = "Hey! Back at %s again? How are you feeling about your game today? We're starting on Hole %d."
)

type TurnState int

const (
	TurnIdle TurnState = iota
	TurnAwaitingResponse
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingResponse:
		return "awaiting_response"
	}
	return fmt.Sprintf("TurnState(%d)", int(s))
}

type sessionState int

const (
	sessionNotStarted sessionState = iota
	sessionActive
	sessionFinished
)

// Session is one round in progress. It is safe for concurrent use, but
// only one turn is processed at a time.
type Session struct {
	assistant Assistant
	saver     RoundSaver
	notes     CourseNotes
	profile   PlayerProfile
	cues      *cues.Dispatcher

	speechInput  speechInput
	speechOutput speechOutput

	responseTimeout time.Duration
	conditions      string
	now             func() time.Time

	mu         sync.RWMutex
	state      sessionState
	turn       TurnState
	turnCancel context.CancelFunc
	course     golf.Course
	registry   golf.Registry
	round      golf.Round
	holeIndex  int
	input      string
	callbacks  StartOptions

	baseContext context.Context
	writer      *roundWriter
	closeOnce   sync.Once
	closed      bool
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		cues:            cues.NewDispatcher(nil),
		responseTimeout: DefaultResponseTimeout,
		conditions:      DefaultConditions,
		now:             time.Now,
		baseContext:     context.Background(),
		callbacks:       defaultStartOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a round on course with a greeting and the pointer on the
// first hole. A session runs a single round.
func (s *Session) Start(ctx context.Context, course golf.Course, opts ...StartOption) error {
	registry, err := golf.NewRegistry(course.Holes)
	if err != nil {
		return fmt.Errorf("invalid course: %w", err)
	}

	callbacks := StartOptions{}
	for _, opt := range opts {
		opt(&callbacks)
	}
	callbacks.fillDefaults()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionFinished
	} else if s.state != sessionNotStarted {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}

	greeting := golf.ChatMessage{
		Sender:    golf.SenderAssistant,
		Text:      fmt.Sprintf(greetingFormat, course.Name, registry.Hole(0).HoleNumber),
		Timestamp: s.now(),
	}
	s.course = course
	s.registry = registry
	s.holeIndex = 0
	s.round = golf.Round{
		ID:           uuid.NewString(),
		Date:         s.now(),
		Conditions:   s.conditions,
		HoleByHole:   []golf.HolePerformance{},
		Conversation: []golf.ChatMessage{greeting},
	}
	s.callbacks = callbacks
	s.baseContext = context.WithoutCancel(ctx)
	s.writer = newRoundWriter(ctx, s.saver, course.ID)
	s.state = sessionActive
	s.mu.Unlock()

	logger.Info("round started", "course", course.Name, "round_id", s.round.ID)
	callbacks.onMessage(greeting)
	callbacks.onHoleChanged(registry.Hole(0))
	s.speechOutput.Speak(s.baseContext, greeting.Text)
	return nil
}

// SendUserMessage runs one turn. Blank text is ignored. A turn that gets
// no reply returns an error wrapping [ErrAssistantUnavailable] and leaves
// only the user's message behind.
func (s *Session) SendUserMessage(ctx context.Context, text string) error {
	return s.runTurn(ctx, text, false)
}

func (s *Session) runTurn(ctx context.Context, text string, fromInput bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "turn")
	defer span.End()

	turn, err := s.beginTurn(ctx, text, fromInput)
	if err != nil {
		return err
	}
	defer turn.cancel()

	req := assistant.Request{
		Course:  turn.course,
		Hole:    turn.registry.Hole(turn.holeIndex),
		Round:   turn.round,
		Profile: s.fetchProfile(turn.ctx),
	}
	span.SetAttributes(attribute.Int("turn.hole", req.Hole.HoleNumber))

	reply, err := s.respond(turn.ctx, req)
	if err != nil {
		outcome := turnOutcomeMissed
		if errors.Is(err, ErrAssistantTimeout) {
			outcome = turnOutcomeTimeout
		}
		turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("turn got no reply", "error", err)

		s.endTurn()
		return err
	}

	return s.completeTurn(ctx, turn, reply)
}

type activeTurn struct {
	ctx    context.Context
	cancel context.CancelFunc

	course    golf.Course
	registry  golf.Registry
	round     golf.Round
	holeIndex int
}

func (s *Session) beginTurn(ctx context.Context, text string, fromInput bool) (*activeTurn, error) {
	s.mu.Lock()
	switch {
	case s.state == sessionNotStarted:
		s.mu.Unlock()
		return nil, ErrSessionNotStarted
	case s.state == sessionFinished || s.closed:
		s.mu.Unlock()
		return nil, ErrSessionFinished
	case s.turn == TurnAwaitingResponse:
		s.mu.Unlock()
		return nil, ErrTurnInProgress
	}

	msg := golf.ChatMessage{Sender: golf.SenderUser, Text: text, Timestamp: s.now()}
	s.round = s.round.WithMessage(msg)
	s.turn = TurnAwaitingResponse
	if fromInput {
		s.input = ""
	}

	turnCtx, cancel := context.WithCancel(ctx)
	s.turnCancel = cancel
	turn := &activeTurn{
		ctx:       turnCtx,
		cancel:    cancel,
		course:    s.course,
		registry:  s.registry,
		round:     s.round,
		holeIndex: s.holeIndex,
	}
	callbacks := s.callbacks
	s.mu.Unlock()

	if fromInput {
		callbacks.onInput("")
	}
	callbacks.onMessage(msg)
	callbacks.onTurnState(TurnAwaitingResponse)
	return turn, nil
}

func (s *Session) fetchProfile(ctx context.Context) golf.PlayerProfile {
	if s.profile == nil {
		return golf.PlayerProfile{}
	}

	profile, err := s.profile.Profile(ctx)
	if err != nil {
		logger.Warn("failed to load player profile", "error", err)
		return golf.PlayerProfile{}
	}
	return profile
}

// respond calls the assistant within the response timeout and converts
// every failure into ErrAssistantUnavailable.
func (s *Session) respond(ctx context.Context, req assistant.Request) (*assistant.Reply, error) {
	if s.assistant == nil {
		return nil, fmt.Errorf("%w: no assistant configured", ErrAssistantUnavailable)
	}

	callCtx := ctx
	if s.responseTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.responseTimeout)
		defer cancel()
	}

	type result struct {
		reply *assistant.Reply
		err   error
	}
	results := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- result{err: fmt.Errorf("assistant panicked: %v", r)}
			}
		}()
		reply, err := s.assistant.Respond(callCtx, req)
		results <- result{reply: reply, err: err}
	}()

	// the assistant may ignore cancellation, so the wait is bounded here
	var res result
	select {
	case res = <-results:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	switch {
	case res.err == nil && res.reply == nil:
		return nil, fmt.Errorf("%w: empty reply", ErrAssistantUnavailable)
	case res.err == nil:
		return res.reply, nil
	case ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, ErrAssistantTimeout
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %w", ErrAssistantUnavailable, ctx.Err())
	default:
		return nil, fmt.Errorf("%w: %w", ErrAssistantUnavailable, res.err)
	}
}

// completeTurn applies a reply in a fixed order: speak, cue, merge, learn,
// append the reply, persist.
func (s *Session) completeTurn(ctx context.Context, turn *activeTurn, reply *assistant.Reply) error {
	// Finish and Close take the write lock before silencing output, so
	// nothing started while the read lock is held outlives them.
	s.mu.RLock()
	active := s.state == sessionActive && !s.closed
	if active {
		s.speechOutput.Speak(s.baseContext, reply.Text)
		s.cues.Dispatch(reply.Cue)
	}
	s.mu.RUnlock()
	if !active {
		return ErrSessionFinished
	}

	payload, problems := reply.Extraction.Sanitize(turn.registry)
	for _, problem := range problems {
		logger.Debug("dropped extraction field", "error", problem)
	}

	result := golf.Merge(turn.round, turn.registry, turn.holeIndex, payload)
	s.learn(ctx, turn.course.ID, result)

	msg := golf.ChatMessage{
		Sender:    golf.SenderAssistant,
		Text:      reply.Text,
		Timestamp: s.now(),
		Learning:  result.Learning,
	}

	s.mu.Lock()
	if s.state != sessionActive || s.closed {
		s.mu.Unlock()
		return ErrSessionFinished
	}
	s.round = result.Round.WithMessage(msg)
	holeChanged := s.holeIndex != result.HoleIndex
	s.holeIndex = result.HoleIndex
	if result.CourseNote != "" {
		s.course = withHoleNote(s.course, result.NoteHoleNumber, result.CourseNote)
		s.registry, _ = golf.NewRegistry(s.course.Holes)
	}
	s.turn = TurnIdle
	s.turnCancel = nil
	round := s.round
	hole := s.registry.Hole(s.holeIndex)
	callbacks := s.callbacks
	writer := s.writer
	s.mu.Unlock()

	writer.Save(round)

	if result.ShotLogged {
		shotCounter.Add(ctx, 1)
	}
	turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", turnOutcomeCompleted)))

	callbacks.onMessage(msg)
	callbacks.onRoundUpdated(round)
	if holeChanged {
		callbacks.onHoleChanged(hole)
	}
	callbacks.onTurnState(TurnIdle)
	return nil
}

// learn forwards the note and tendency requests of a merge to their
// stores. Store failures are logged and do not affect the turn.
func (s *Session) learn(ctx context.Context, courseID string, result golf.MergeResult) {
	if result.CourseNote != "" && s.notes != nil {
		if err := s.notes.AddNote(ctx, courseID, result.NoteHoleNumber, result.CourseNote); err != nil {
			logger.Warn("failed to add course note", "hole", result.NoteHoleNumber, "error", err)
		}
	}
	if result.PlayerTendency != "" && s.profile != nil {
		if err := s.profile.AddTendency(ctx, result.PlayerTendency); err != nil {
			logger.Warn("failed to add player tendency", "error", err)
		}
	}
}

func withHoleNote(course golf.Course, holeNumber int, note string) golf.Course {
	holes := make([]golf.Hole, len(course.Holes))
	copy(holes, course.Holes)
	for i := range holes {
		if holes[i].HoleNumber == holeNumber {
			holes[i].Notes = append(holes[i].Notes[:len(holes[i].Notes):len(holes[i].Notes)], note)
		}
	}
	course.Holes = holes
	return course
}

func (s *Session) endTurn() {
	s.mu.Lock()
	if s.turn != TurnAwaitingResponse {
		s.mu.Unlock()
		return
	}
	s.turn = TurnIdle
	s.turnCancel = nil
	callbacks := s.callbacks
	s.mu.Unlock()

	callbacks.onTurnState(TurnIdle)
}

// Finish ends the round: speech stops, the total is computed and the final
// snapshot is written before Finish returns. A turn still awaiting its
// reply is abandoned.
func (s *Session) Finish(ctx context.Context) (golf.Round, error) {
	s.mu.Lock()
	switch {
	case s.state == sessionNotStarted:
		s.mu.Unlock()
		return golf.Round{}, ErrSessionNotStarted
	case s.state == sessionFinished || s.closed:
		s.mu.Unlock()
		return golf.Round{}, ErrSessionFinished
	}

	s.round = s.round.Finish()
	s.state = sessionFinished
	cancelTurn := s.turnCancel
	wasAwaiting := s.turn == TurnAwaitingResponse
	s.turn = TurnIdle
	s.turnCancel = nil
	round := s.round
	callbacks := s.callbacks
	writer := s.writer
	s.mu.Unlock()

	s.speechOutput.Cancel()
	if cancelTurn != nil {
		cancelTurn()
	}
	if err := s.speechInput.Stop(); err != nil {
		logger.Warn("failed to stop listening", "error", err)
	}

	writer.Save(round)
	s.cues.Dispatch(cues.CueAchievement)

	logger.Info("round finished", "round_id", round.ID, "total_score", round.TotalScore)
	callbacks.onRoundUpdated(round)
	if wasAwaiting {
		callbacks.onTurnState(TurnIdle)
	}

	if err := writer.Flush(ctx); err != nil {
		return round, fmt.Errorf("failed waiting for round to be saved: %w", err)
	}
	return round, nil
}

// Close releases voice resources, abandons any turn in flight and writes
// the last pending snapshot. It is safe to call more than once and on
// sessions that never started.
func (s *Session) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancelTurn := s.turnCancel
		s.turnCancel = nil
		writer := s.writer
		s.mu.Unlock()

		if cancelTurn != nil {
			cancelTurn()
		}
		if err := s.speechInput.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.speechOutput.Close()
		writer.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cues.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cue playback did not finish: %w", err))
		}
	})
	return errors.Join(errs...)
}

// Snapshot returns a deep copy of the round so far.
func (s *Session) Snapshot() golf.Round {
	s.mu.RLock()
	round := s.round
	s.mu.RUnlock()

	snapshot, err := copyRound(round)
	if err != nil {
		logger.Error("failed to copy round", "error", err)
		return round
	}
	return snapshot
}

func (s *Session) TurnState() TurnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// CurrentHole returns the hole under discussion.
func (s *Session) CurrentHole() golf.Hole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == sessionNotStarted {
		return golf.Hole{}
	}
	return s.registry.Hole(s.holeIndex)
}

func (s *Session) Course() golf.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.course
}

func (s *Session) IsFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == sessionFinished
}

func (s *Session) SetVoiceEnabled(enabled bool) {
	s.speechOutput.SetEnabled(enabled)
}

func (s *Session) IsVoiceEnabled() bool {
	return s.speechOutput.IsEnabled()
}
