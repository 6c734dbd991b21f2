package speechtotext

import "github.com/koscakluka/ema-caddie/core/audio"

// RecognitionOptions configures a single recognition session.
type RecognitionOptions struct {
	// TranscriptCallback receives the full transcript recognised so far in
	// this session. Each call replaces the previous snapshot.
	TranscriptCallback func(transcript string)
	// ListeningStateCallback is called whenever the recogniser starts or
	// stops listening, including when it stops on its own.
	ListeningStateCallback func(isListening bool)
	// ErrorCallback is called for errors that end the session. The
	// recogniser reports listening=false afterwards.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
	Language     string
}

type RecognitionOption func(*RecognitionOptions)

// DefaultRecognitionOptions returns options with no-op callbacks so
// recognisers can call them unconditionally.
func DefaultRecognitionOptions() RecognitionOptions {
	return RecognitionOptions{
		TranscriptCallback:     func(string) {},
		ListeningStateCallback: func(bool) {},
		ErrorCallback:          func(error) {},
		EncodingInfo:           audio.GetDefaultEncodingInfo(),
		Language:               "en-US",
	}
}

func WithTranscriptCallback(callback func(transcript string)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.TranscriptCallback = callback
		}
	}
}

func WithListeningStateCallback(callback func(isListening bool)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.ListeningStateCallback = callback
		}
	}
}

func WithErrorCallback(callback func(err error)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RecognitionOption {
	return func(o *RecognitionOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

func WithLanguage(language string) RecognitionOption {
	return func(o *RecognitionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}
