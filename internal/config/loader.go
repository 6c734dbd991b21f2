package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvDeepgramAPIKey = "DEEPGRAM_API_KEY"
)

// Load reads the YAML configuration file at path over [Default] and
// returns a validated [Config]. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.Secrets = SecretsFromEnv()
		return cfg, Validate(cfg)
	} else if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.Secrets = SecretsFromEnv()
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SecretsFromEnv reads API keys from the environment. Callers load .env
// files beforehand.
func SecretsFromEnv() Secrets {
	return Secrets{
		GroqAPIKey:     os.Getenv(EnvGroqAPIKey),
		DeepgramAPIKey: os.Getenv(EnvDeepgramAPIKey),
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if cfg.Assistant.Timeout < 0 {
		errs = append(errs, fmt.Errorf("assistant.timeout %s must not be negative", cfg.Assistant.Timeout))
	}
	if cfg.Assistant.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("assistant.reset_timeout %s must not be negative", cfg.Assistant.ResetTimeout))
	}
	if cfg.Assistant.MaxFailures == 0 {
		errs = append(errs, errors.New("assistant.max_failures must be at least 1"))
	}

	if cfg.Voice.AudioBackend != "" && !cfg.Voice.AudioBackend.IsValid() {
		errs = append(errs, fmt.Errorf("voice.audio_backend %q is invalid; valid values: miniaudio, portaudio", cfg.Voice.AudioBackend))
	}

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}
