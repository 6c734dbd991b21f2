package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
)

// transcript folds Deepgram result messages into the running transcript of
// one recognition session.
type transcript struct {
	final   []string
	interim string

	speaking bool
}

type transcriptUpdate struct {
	// Changed reports whether Text differs from the previous snapshot.
	Changed bool
	Text    string
	// Ended is set once the speaker has finished an utterance.
	Ended bool
}

func (t *transcript) apply(msg []byte) (transcriptUpdate, error) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return transcriptUpdate{}, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			return transcriptUpdate{}, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
		}

		before := t.text()
		text := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			text = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}
		if msgResp.IsFinal {
			if text != "" {
				t.final = append(t.final, text)
			}
			t.interim = ""
		} else {
			t.interim = text
		}
		if text != "" {
			t.speaking = true
		}

		update := transcriptUpdate{Text: t.text()}
		update.Changed = update.Text != before
		update.Ended = msgResp.SpeechFinal && len(t.final) > 0
		if update.Ended {
			t.speaking = false
		}
		return update, nil

	case api.TypeUtteranceEndResponse:
		ended := t.speaking && len(t.final) > 0
		t.speaking = false
		return transcriptUpdate{Text: t.text(), Ended: ended}, nil

	case api.TypeSpeechStartedResponse:
		t.speaking = true
	}

	return transcriptUpdate{Text: t.text()}, nil
}

func (t *transcript) text() string {
	parts := t.final
	if t.interim != "" {
		parts = append(parts[:len(parts):len(parts)], t.interim)
	}
	return strings.Join(parts, " ")
}
