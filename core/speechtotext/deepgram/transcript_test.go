package deepgram

import (
	"testing"

	"github.com/koscakluka/ema-caddie/core/audio"
)

func results(transcript string, isFinal, speechFinal bool) []byte {
	final := "false"
	if isFinal {
		final = "true"
	}
	speech := "false"
	if speechFinal {
		speech = "true"
	}
	return []byte(`{"type":"Results","is_final":` + final + `,"speech_final":` + speech +
		`,"channel":{"alternatives":[{"transcript":"` + transcript + `"}]}}`)
}

func TestTranscriptReplacesInterimAndAccumulatesFinals(t *testing.T) {
	var tr transcript

	steps := []struct {
		msg  []byte
		want string
	}{
		{results("hit my", false, false), "hit my"},
		{results("hit my driver", false, false), "hit my driver"},
		{results("hit my driver", true, false), "hit my driver"},
		{results("into the", false, false), "hit my driver into the"},
		{results("into the fairway", true, false), "hit my driver into the fairway"},
	}

	for i, step := range steps {
		update, err := tr.apply(step.msg)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if update.Text != step.want {
			t.Fatalf("step %d: expected %q, got %q", i, step.want, update.Text)
		}
		if update.Ended {
			t.Fatalf("step %d: expected utterance to continue", i)
		}
	}
}

func TestTranscriptReportsUnchangedSnapshots(t *testing.T) {
	var tr transcript

	if update, _ := tr.apply(results("par", false, false)); !update.Changed {
		t.Fatalf("expected first interim to change the transcript")
	}
	if update, _ := tr.apply(results("par", true, false)); update.Changed {
		t.Fatalf("expected promoting identical interim to final to leave transcript unchanged")
	}
}

func TestTranscriptEndsOnSpeechFinal(t *testing.T) {
	var tr transcript

	update, err := tr.apply(results("made a four", true, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !update.Ended {
		t.Fatalf("expected speech final to end the utterance")
	}
	if update.Text != "made a four" {
		t.Fatalf("expected final transcript, got %q", update.Text)
	}
}

func TestTranscriptIgnoresSpeechFinalWithoutWords(t *testing.T) {
	var tr transcript

	update, _ := tr.apply(results("", true, true))
	if update.Ended {
		t.Fatalf("expected empty speech final not to end recognition")
	}
}

func TestTranscriptEndsOnUtteranceEndAfterSpeech(t *testing.T) {
	var tr transcript

	if update, _ := tr.apply([]byte(`{"type":"UtteranceEnd"}`)); update.Ended {
		t.Fatalf("expected utterance end before speech to be ignored")
	}

	_, _ = tr.apply([]byte(`{"type":"SpeechStarted"}`))
	_, _ = tr.apply(results("seven iron", true, false))

	update, err := tr.apply([]byte(`{"type":"UtteranceEnd"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !update.Ended {
		t.Fatalf("expected utterance end to end recognition")
	}
	if update.Text != "seven iron" {
		t.Fatalf("expected transcript to survive utterance end, got %q", update.Text)
	}
}

func TestTranscriptRejectsMalformedMessages(t *testing.T) {
	var tr transcript
	if _, err := tr.apply([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed message to error")
	}
}

func TestCheckEncoding(t *testing.T) {
	tests := []struct {
		name     string
		encoding audio.EncodingInfo
		wantErr  bool
	}{
		{"default", audio.GetDefaultEncodingInfo(), false},
		{"mulaw 8k", audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}, false},
		{"mulaw 16k", audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}, true},
		{"odd sample rate", audio.EncodingInfo{SampleRate: 11025, Format: audio.EncodingLinear16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEncoding(tt.encoding)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewRecognizerRequiresKeyAndCapture(t *testing.T) {
	if _, err := NewRecognizer("", nil); err == nil {
		t.Fatalf("expected missing api key to error")
	}
	if _, err := NewRecognizer("key", nil); err == nil {
		t.Fatalf("expected missing capture to error")
	}
}
