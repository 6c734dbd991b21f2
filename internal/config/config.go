// Package config provides the configuration schema and loader for the
// caddie CLI.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// AudioBackend selects the device library used for playback and capture.
type AudioBackend string

const (
	// AudioMiniaudio plays and records through malgo.
	AudioMiniaudio AudioBackend = "miniaudio"

	// AudioPortaudio only plays; speech input is unavailable with it.
	AudioPortaudio AudioBackend = "portaudio"
)

// IsValid reports whether b is a recognised audio backend.
func (b AudioBackend) IsValid() bool {
	return b == AudioMiniaudio || b == AudioPortaudio
}

// Config is the root configuration structure.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Assistant AssistantConfig `yaml:"assistant"`
	Voice     VoiceConfig     `yaml:"voice"`
	Round     RoundConfig     `yaml:"round"`
	Log       LogConfig       `yaml:"log"`

	// Secrets never come from the YAML file.
	Secrets Secrets `yaml:"-"`
}

type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

type AssistantConfig struct {
	Model string `yaml:"model"`
	// Timeout bounds a single assistant round-trip.
	Timeout time.Duration `yaml:"timeout"`
	// Persona replaces the default caddie instructions when set.
	Persona string `yaml:"persona"`

	// MaxFailures consecutive failures open the circuit breaker, which
	// lets a probe through again after ResetTimeout.
	MaxFailures  uint32        `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

type VoiceConfig struct {
	Enabled      bool         `yaml:"enabled"`
	TTSVoice     string       `yaml:"tts_voice"`
	AudioBackend AudioBackend `yaml:"audio_backend"`
}

type RoundConfig struct {
	Conditions string `yaml:"conditions"`
}

type LogConfig struct {
	Level LogLevel `yaml:"level"`
	File  string   `yaml:"file"`
}

type Secrets struct {
	GroqAPIKey     string
	DeepgramAPIKey string
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "caddie.db"},
		Assistant: AssistantConfig{
			Model:        "llama-3.3-70b-versatile",
			Timeout:      30 * time.Second,
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		},
		Voice: VoiceConfig{
			Enabled:      true,
			TTSVoice:     "aura-2-thalia-en",
			AudioBackend: AudioMiniaudio,
		},
		Round: RoundConfig{Conditions: "Clear skies, 5 mph wind"},
		Log:   LogConfig{Level: LogInfo, File: "caddie.log"},
	}
}
