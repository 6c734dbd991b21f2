package cues

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-caddie/core/audio"
)

type recordingPlayback struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPlayback) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
}

func (p *recordingPlayback) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *recordingPlayback) DiscoveryChime()   { p.record("discovery") }
func (p *recordingPlayback) UpdatePing()       { p.record("update") }
func (p *recordingPlayback) MemoryTone()       { p.record("memory") }
func (p *recordingPlayback) AchievementSound() { p.record("achievement") }
func (p *recordingPlayback) ShotLogged()       { p.record("log") }

func TestDispatchPlaysExactlyOneActionPerCue(t *testing.T) {
	for _, name := range Names() {
		playback := &recordingPlayback{}
		dispatcher := NewDispatcher(playback)

		if !dispatcher.Dispatch(ParseCue(name)) {
			t.Fatalf("expected cue %q to start playback", name)
		}
		waitForCues(t, dispatcher)

		if got := playback.played(); len(got) != 1 || got[0] != name {
			t.Fatalf("expected exactly [%s], got %v", name, got)
		}
	}
}

func TestDispatchUnknownOrAbsentCueIsNoop(t *testing.T) {
	playback := &recordingPlayback{}
	dispatcher := NewDispatcher(playback)

	for _, tag := range []string{"", "fanfare", "  "} {
		if dispatcher.Dispatch(ParseCue(tag)) {
			t.Fatalf("expected %q to be a no-op", tag)
		}
	}
	if dispatcher.Dispatch(Cue(42)) {
		t.Fatalf("expected out-of-range cue to be a no-op")
	}
	waitForCues(t, dispatcher)

	if got := playback.played(); len(got) != 0 {
		t.Fatalf("expected no playback, got %v", got)
	}
}

func TestDispatchWithoutPlaybackIsNoop(t *testing.T) {
	if NewDispatcher(nil).Dispatch(CueAchievement) {
		t.Fatalf("expected dispatch without playback to be a no-op")
	}
	var dispatcher *Dispatcher
	if dispatcher.Dispatch(CueLog) {
		t.Fatalf("expected nil dispatcher to be a no-op")
	}
}

type blockingPlayback struct {
	recordingPlayback
	release chan struct{}
}

func (p *blockingPlayback) ShotLogged() {
	<-p.release
	p.record("log")
}

func TestDispatchDoesNotBlockCaller(t *testing.T) {
	playback := &blockingPlayback{release: make(chan struct{})}
	dispatcher := NewDispatcher(playback)

	returned := make(chan struct{})
	go func() {
		dispatcher.Dispatch(CueLog)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("expected dispatch to return while playback is still running")
	}

	close(playback.release)
	waitForCues(t, dispatcher)
}

func TestDispatchAfterWaitIsDropped(t *testing.T) {
	playback := &recordingPlayback{}
	dispatcher := NewDispatcher(playback)

	if !dispatcher.Dispatch(CueUpdate) {
		t.Fatalf("expected dispatch before wait to start playback")
	}
	waitForCues(t, dispatcher)

	if dispatcher.Dispatch(CueAchievement) {
		t.Fatalf("expected dispatch after wait to be dropped")
	}
	waitForCues(t, dispatcher)
	if got := playback.played(); !slices.Equal(got, []string{"update"}) {
		t.Fatalf("expected only the cue dispatched before wait, got %v", got)
	}
}

func TestParseCueRoundTrip(t *testing.T) {
	for cue := CueNone + 1; cue < cueCount; cue++ {
		if got := ParseCue(cue.String()); got != cue {
			t.Fatalf("expected %v to round-trip, got %v", cue, got)
		}
	}
	if ParseCue(" Achievement ") != CueAchievement {
		t.Fatalf("expected tags to be case and space insensitive")
	}
}

type sinkStub struct {
	mu       sync.Mutex
	encoding audio.EncodingInfo
	chunks   [][]byte
}

func (s *sinkStub) EncodingInfo() audio.EncodingInfo { return s.encoding }

func (s *sinkStub) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, audio)
	return nil
}

func TestTonePlayerWritesLinear16Audio(t *testing.T) {
	sink := &sinkStub{encoding: audio.GetDefaultEncodingInfo()}
	player := NewTonePlayer(sink)

	player.UpdatePing()

	if len(sink.chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(sink.chunks))
	}
	expectedBytes := int((120*time.Millisecond).Seconds()*float64(audio.DefaultSampleRate)) * 2
	if got := len(sink.chunks[0]); got != expectedBytes {
		t.Fatalf("expected %d bytes of audio, got %d", expectedBytes, got)
	}
}

func TestTonePlayerSkipsNonLinearOutputs(t *testing.T) {
	sink := &sinkStub{encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}}

	NewTonePlayer(sink).AchievementSound()

	if len(sink.chunks) != 0 {
		t.Fatalf("expected no audio for mulaw output")
	}
}

func waitForCues(t *testing.T, dispatcher *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dispatcher.Wait(ctx); err != nil {
		t.Fatalf("timed out waiting for cue playback: %v", err)
	}
}
