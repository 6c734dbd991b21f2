package deepgram

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-caddie/core/audio"
)

type TextToSpeechClient struct {
	apiKey       string
	voice        deepgramVoice
	encodingInfo audio.EncodingInfo
}

type ClientOption func(*TextToSpeechClient)

// WithVoice selects the Aura voice. Unknown voices are rejected by
// [NewTextToSpeechClient].
func WithVoice(voice string) ClientOption {
	return func(c *TextToSpeechClient) {
		if voice != "" {
			c.voice = deepgramVoice(voice)
		}
	}
}

// WithEncodingInfo sets the encoding requested from Deepgram when a
// generator is not given one explicitly.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

func NewTextToSpeechClient(apiKey string, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not set")
	}

	client := &TextToSpeechClient{
		apiKey:       apiKey,
		voice:        defaultVoice,
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if !slices.Contains(GetAvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}

	return client, nil
}
