package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-caddie/core/audio"
	"github.com/koscakluka/ema-caddie/core/texttospeech"
)

type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	options texttospeech.TextToSpeechOptions

	stateMu      sync.Mutex
	text         string
	textComplete bool
	cancelled    bool
	closed       bool
	endedOnce    sync.Once
}

func (c *TextToSpeechClient) NewSpeechGeneratorV0(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error) {
	req := &streamingRequest{options: texttospeech.DefaultTextToSpeechOptions()}
	req.options.EncodingInfo = c.encodingInfo
	for _, opt := range opts {
		opt(&req.options)
	}

	var err error
	if req.ws, err = connectWebsocket(ctx, c.apiKey, c.voice, req.options.EncodingInfo); err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	go req.processIncomingMessages()

	return req, nil
}

func connectWebsocket(ctx context.Context, apiKey string, voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *streamingRequest) processIncomingMessages() {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !r.isClosed() {
				logger.Warn("deepgram speak websocket read failed", "error", err)
				r.options.ErrorCallback(err)
			}
			_ = r.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 && !r.isCancelled() {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.stateMu.Lock()
				complete := r.textComplete
				text := r.text
				r.stateMu.Unlock()

				if complete {
					r.endSpeech(text)
					_ = r.Close()
					return
				}
			case "Warning":
				logger.Warn("deepgram speak warning", "message", string(msg))
			}
		}
	}
}

func (r *streamingRequest) endSpeech(text string) {
	r.endedOnce.Do(func() {
		r.options.SpeechEndedCallbackV0(texttospeech.SpeechEndedReport{Text: text})
	})
}

func (r *streamingRequest) SendText(text string) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if err := r.checkWritableLocked(); err != nil {
		return err
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}

	if err := r.sendWebsocketMessage(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send websocket send text message: %w", err)
	}
	r.text += text
	return nil
}

func (r *streamingRequest) EndOfText() error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if err := r.checkWritableLocked(); err != nil {
		return err
	} else if r.textComplete {
		return nil
	}

	r.textComplete = true
	if r.text == "" {
		go func() {
			r.endSpeech("")
			_ = r.Close()
		}()
		return nil
	}

	if err := r.sendWebsocketMessage(flushMsg); err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}
	return nil
}

func (r *streamingRequest) Cancel() error {
	r.stateMu.Lock()
	if r.closed {
		r.stateMu.Unlock()
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		r.stateMu.Unlock()
		return nil
	}
	r.cancelled = true
	r.stateMu.Unlock()

	if err := r.sendWebsocketMessage(clearMsg); err != nil {
		_ = r.Close()
		return fmt.Errorf("failed to send websocket clear message: %w", err)
	}

	return r.Close()
}

func (r *streamingRequest) Close() error {
	r.stateMu.Lock()
	if r.closed {
		r.stateMu.Unlock()
		return nil
	}
	r.closed = true
	r.stateMu.Unlock()

	err := r.sendWebsocketMessage(closeMsg)
	if closeErr := r.ws.Close(); closeErr != nil && err != nil {
		return fmt.Errorf("failed to close websocket: %w", errors.Join(err, closeErr))
	}
	return nil
}

func (r *streamingRequest) checkWritableLocked() error {
	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	}
	return nil
}

func (r *streamingRequest) isClosed() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.closed
}

func (r *streamingRequest) isCancelled() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.cancelled
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (r *streamingRequest) sendWebsocketMessage(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
