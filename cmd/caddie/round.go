package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	caddie "github.com/koscakluka/ema-caddie/core"
	"github.com/koscakluka/ema-caddie/core/assistant/groq"
	"github.com/koscakluka/ema-caddie/core/audio/miniaudio"
	"github.com/koscakluka/ema-caddie/core/audio/portaudio"
	"github.com/koscakluka/ema-caddie/core/cues"
	"github.com/koscakluka/ema-caddie/core/golf"
	sttdeepgram "github.com/koscakluka/ema-caddie/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-caddie/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-caddie/internal/config"
	"github.com/koscakluka/ema-caddie/internal/store/sqlite"
	"golang.org/x/sync/errgroup"
)

func playRound(ctx context.Context, cfg *config.Config, store *sqlite.Store, args []string) error {
	fs := flag.NewFlagSet("round", flag.ContinueOnError)
	courseID := fs.String("course", "", "course id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	course, err := store.Course(ctx, strings.TrimSpace(*courseID))
	if err != nil {
		return err
	}

	session, release, err := newSession(cfg, store)
	if err != nil {
		return err
	}
	defer release()
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("session close", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := newEventQueue()
	program := tea.NewProgram(newModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))

	err = session.Start(ctx, course,
		caddie.WithMessageCallback(func(msg golf.ChatMessage) { events.push(messageMsg{msg}) }),
		caddie.WithTurnStateCallback(func(state caddie.TurnState) { events.push(turnStateMsg{state}) }),
		caddie.WithHoleChangedCallback(func(hole golf.Hole) { events.push(holeMsg{hole}) }),
		caddie.WithInputCallback(func(text string) { events.push(inputMsg{text}) }),
		caddie.WithListeningStateCallback(func(isListening bool) { events.push(listeningMsg{isListening}) }),
		caddie.WithRoundUpdatedCallback(func(round golf.Round) { events.push(roundMsg{round}) }),
	)
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return events.pump(gctx, program.Send)
	})
	return g.Wait()
}

// newSession wires the configured capabilities into a session. Voice
// features degrade to text when keys or devices are missing. The returned
// func releases audio devices and must run after the session is closed.
func newSession(cfg *config.Config, store *sqlite.Store) (*caddie.Session, func(), error) {
	groqOpts := []groq.ClientOption{
		groq.WithModel(cfg.Assistant.Model),
		groq.WithCircuitBreaker(cfg.Assistant.MaxFailures, cfg.Assistant.ResetTimeout),
	}
	if cfg.Assistant.Persona != "" {
		groqOpts = append(groqOpts, groq.WithPersona(cfg.Assistant.Persona))
	}
	assistant, err := groq.NewClient(cfg.Secrets.GroqAPIKey, groqOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("assistant: %w", err)
	}

	opts := []caddie.SessionOption{
		caddie.WithAssistant(assistant),
		caddie.WithRoundSaver(store),
		caddie.WithCourseNotes(store),
		caddie.WithPlayerProfile(store),
		caddie.WithResponseTimeout(cfg.Assistant.Timeout),
		caddie.WithConditions(cfg.Round.Conditions),
	}

	output, capture, release := openAudio(cfg.Voice.AudioBackend)
	if output != nil {
		opts = append(opts, caddie.WithCuePlayback(cues.NewTonePlayer(output)))
	}

	if key := cfg.Secrets.DeepgramAPIKey; key == "" {
		slog.Info("voice disabled, " + config.EnvDeepgramAPIKey + " not set")
	} else {
		if output != nil {
			tts, err := ttsdeepgram.NewTextToSpeechClient(key,
				ttsdeepgram.WithVoice(cfg.Voice.TTSVoice),
				ttsdeepgram.WithEncodingInfo(output.EncodingInfo()),
			)
			if err != nil {
				release()
				return nil, nil, fmt.Errorf("text to speech: %w", err)
			}
			opts = append(opts, caddie.WithSpeechOutput(tts, output))
		}
		if capture != nil {
			recognizer, err := sttdeepgram.NewRecognizer(key, capture)
			if err != nil {
				release()
				return nil, nil, fmt.Errorf("speech to text: %w", err)
			}
			opts = append(opts, caddie.WithSpeechInput(recognizer))
		}
	}

	session := caddie.NewSession(opts...)
	session.SetVoiceEnabled(cfg.Voice.Enabled)
	return session, release, nil
}

// openAudio opens the configured backend. Only miniaudio can capture.
// Device failures are logged and leave the round text-only.
func openAudio(backend config.AudioBackend) (caddie.AudioOutput, sttdeepgram.AudioCapture, func()) {
	switch backend {
	case config.AudioPortaudio:
		client, err := portaudio.NewClient(0)
		if err != nil {
			slog.Warn("audio output unavailable", "backend", backend, "error", err)
			return nil, nil, func() {}
		}
		return client, nil, client.Close
	default:
		client, err := miniaudio.NewClient()
		if err != nil {
			slog.Warn("audio unavailable", "backend", backend, "error", err)
			return nil, nil, func() {}
		}
		return client, client, client.Close
	}
}
