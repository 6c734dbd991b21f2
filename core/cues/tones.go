package cues

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/koscakluka/ema-caddie/core/audio"
)

// AudioSink receives synthesized cue audio.
type AudioSink interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
}

type note struct {
	frequency float64
	duration  time.Duration
}

var (
	discoveryChime   = []note{{1046.5, 90 * time.Millisecond}, {1318.5, 90 * time.Millisecond}, {1568.0, 180 * time.Millisecond}}
	updatePing       = []note{{880.0, 120 * time.Millisecond}}
	memoryTone       = []note{{523.3, 160 * time.Millisecond}, {659.3, 240 * time.Millisecond}}
	achievementSound = []note{{523.3, 100 * time.Millisecond}, {659.3, 100 * time.Millisecond}, {784.0, 100 * time.Millisecond}, {1046.5, 300 * time.Millisecond}}
	shotLogged       = []note{{392.0, 60 * time.Millisecond}}
)

// TonePlayer renders each cue as a short sequence of sine notes in linear16
// and writes it to a sink.
type TonePlayer struct {
	sink   AudioSink
	volume float64
}

func NewTonePlayer(sink AudioSink) *TonePlayer {
	return &TonePlayer{sink: sink, volume: 0.25}
}

func (p *TonePlayer) DiscoveryChime()   { p.play("discovery", discoveryChime) }
func (p *TonePlayer) UpdatePing()       { p.play("update", updatePing) }
func (p *TonePlayer) MemoryTone()       { p.play("memory", memoryTone) }
func (p *TonePlayer) AchievementSound() { p.play("achievement", achievementSound) }
func (p *TonePlayer) ShotLogged()       { p.play("log", shotLogged) }

func (p *TonePlayer) play(name string, notes []note) {
	if p == nil || p.sink == nil {
		return
	}

	encoding := p.sink.EncodingInfo()
	if encoding.Format != audio.EncodingLinear16 || encoding.SampleRate <= 0 {
		logger.Warn("cue playback skipped, output is not linear16", "cue", name, "format", encoding.Format.Name())
		return
	}

	if err := p.sink.SendAudio(synthesize(notes, encoding.SampleRate, p.volume)); err != nil {
		logger.Warn("cue playback failed", "cue", name, "error", err)
	}
}

// synthesize renders notes as little-endian signed 16-bit mono samples with
// a short linear attack and release so notes do not click.
func synthesize(notes []note, sampleRate int, volume float64) []byte {
	const ramp = 0.1

	total := 0
	for _, n := range notes {
		total += int(n.duration.Seconds() * float64(sampleRate))
	}

	pcm := make([]byte, 0, total*2)
	for _, n := range notes {
		samples := int(n.duration.Seconds() * float64(sampleRate))
		rampSamples := max(1, int(float64(samples)*ramp))
		for i := range samples {
			envelope := 1.0
			if i < rampSamples {
				envelope = float64(i) / float64(rampSamples)
			} else if remaining := samples - i; remaining < rampSamples {
				envelope = float64(remaining) / float64(rampSamples)
			}

			value := math.Sin(2*math.Pi*n.frequency*float64(i)/float64(sampleRate)) * envelope * volume
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(value*math.MaxInt16)))
		}
	}
	return pcm
}
