package texttospeech

import "github.com/koscakluka/ema-caddie/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called when the TTS client produces audio
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallbackV0 is called when the TTS client has finished producing speech
	// and provides a report of the speech generation
	SpeechEndedCallbackV0 func(SpeechEndedReport)
	// ErrorCallback is called when the TTS client encounters an error, this usually
	// means the TTS client has been cancelled
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func DefaultTextToSpeechOptions() TextToSpeechOptions {
	return TextToSpeechOptions{
		SpeechAudioCallback:   func([]byte) {},
		SpeechEndedCallbackV0: func(SpeechEndedReport) {},
		ErrorCallback:         func(error) {},
		EncodingInfo:          audio.GetDefaultEncodingInfo(),
	}
}

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.SpeechAudioCallback = callback
		}
	}
}

// WithSpeechEndedCallbackV0 sets the callback for when the TTS client has
// finished producing all required speech
func WithSpeechEndedCallbackV0(callback func(SpeechEndedReport)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.SpeechEndedCallbackV0 = callback
		}
	}
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

// SpeechGeneratorV0 speaks a single utterance.
type SpeechGeneratorV0 interface {
	// SendText sends text to [SpeechGeneratorV0]. It is guaranteed that the
	// speech will be generated in the order text is sent.
	//
	// SendText will error if EndOfText, Cancel or Close has been called.
	SendText(string) error
	// EndOfText sends a signal to the [SpeechGeneratorV0] that no more text
	// will be sent. After EndOfText is called, [SpeechGeneratorV0] will Close
	// after all the speech has been generated.
	//
	// EndOfText will error if Cancel or Close has been called.
	// Repeated calls to EndOfText are ignored.
	EndOfText() error
	// Cancel immediately cancels the further speech generation. It also closes
	// [SpeechGeneratorV0].
	//
	// This will error if Close has been called.
	// Repeated calls to Cancel are ignored.
	Cancel() error
	// Close immediately closes the [SpeechGeneratorV0]. It is guaranteed that
	// no more speech will be generated after this call.
	//
	// Repeated calls to Close are ignored.
	Close() error
}

type SpeechEndedReport struct {
	Text string
}
