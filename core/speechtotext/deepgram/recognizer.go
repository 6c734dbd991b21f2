package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-caddie/core/audio"
	"github.com/koscakluka/ema-caddie/core/speechtotext"
)

var ErrAlreadyListening = errors.New("recognition already in progress")

// AudioCapture is a microphone the recognizer streams from.
type AudioCapture interface {
	StartCapture(ctx context.Context, onAudio func([]byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// Recognizer listens for a single utterance at a time, like a
// non-continuous browser recognizer: it stops on its own once Deepgram
// reports the end of speech.
type Recognizer struct {
	apiKey  string
	capture AudioCapture
	model   string

	mu      sync.Mutex
	session *recognition
}

type RecognizerOption func(*Recognizer)

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) {
		if model != "" {
			r.model = model
		}
	}
}

func NewRecognizer(apiKey string, capture AudioCapture, opts ...RecognizerOption) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not set")
	} else if capture == nil {
		return nil, fmt.Errorf("audio capture not set")
	}

	r := &Recognizer{apiKey: apiKey, capture: capture, model: "nova-3"}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type recognition struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	options speechtotext.RecognitionOptions
	ctx     context.Context
	cancel  context.CancelFunc

	stopOnce sync.Once
	done     chan struct{}
}

func (r *Recognizer) StartRecognition(ctx context.Context, opts ...speechtotext.RecognitionOption) error {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return ErrAlreadyListening
	}
	session, err := r.open(ctx, opts...)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.session = session
	r.mu.Unlock()

	session.options.ListeningStateCallback(true)

	go r.readMessages(session)
	go func() {
		<-session.ctx.Done()
		r.finish(session, nil)
	}()

	return nil
}

func (r *Recognizer) open(ctx context.Context, opts ...speechtotext.RecognitionOption) (*recognition, error) {
	options := speechtotext.DefaultRecognitionOptions()
	options.EncodingInfo = r.capture.EncodingInfo()
	for _, opt := range opts {
		opt(&options)
	}
	if err := checkEncoding(options.EncodingInfo); err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := r.connect(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	session := &recognition{
		conn:    conn,
		options: options,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if err := r.capture.StartCapture(ctx, session.sendAudio); err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to start audio capture: %w", err)
	}

	return session, nil
}

// StopRecognition ends the current session. Stopping while idle is a no-op.
func (r *Recognizer) StopRecognition() error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return nil
	}

	r.finish(session, nil)
	<-session.done
	return nil
}

func (r *Recognizer) IsListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

func (r *Recognizer) connect(ctx context.Context, options speechtotext.RecognitionOptions) (*websocket.Conn, error) {
	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenUrl.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (r *Recognizer) readMessages(session *recognition) {
	var t transcript
	for {
		msgType, msg, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			r.finish(session, err)
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		update, err := t.apply(msg)
		if err != nil {
			logger.Debug("skipping deepgram message", "error", err)
			continue
		}
		if update.Changed {
			session.options.TranscriptCallback(update.Text)
		}
		if update.Ended {
			r.finish(session, nil)
			return
		}
	}
}

// finish tears a session down exactly once. Errors are reported to the
// error callback but the caller only ever observes listening turning off.
func (r *Recognizer) finish(session *recognition, cause error) {
	session.stopOnce.Do(func() {
		defer close(session.done)

		r.mu.Lock()
		if r.session == session {
			r.session = nil
		}
		r.mu.Unlock()

		var errs []error
		if cause != nil {
			errs = append(errs, cause)
		}
		if err := r.capture.StopCapture(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audio capture: %w", err))
		}
		if err := session.writeJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil && cause == nil {
			logger.Debug("failed to close deepgram stream", "error", err)
		}
		_ = session.conn.Close()
		session.cancel()

		if err := errors.Join(errs...); err != nil {
			logger.Warn("speech recognition ended with error", "error", err)
			session.options.ErrorCallback(err)
		}
		session.options.ListeningStateCallback(false)
	})
}

func (s *recognition) sendAudio(audio []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		logger.Debug("failed to write audio to deepgram", "error", err)
	}
}

func (s *recognition) writeJSON(msg any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}
