package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fbruckner/takt/internal/profile"
)

// Default returns a Config with the built-in defaults: Sonic Pi on
// localhost, Ollama on its standard port, German transcription, and the
// peak profile.
func Default() *Config {
	return &Config{
		OSC: OSCConfig{
			Host: "127.0.0.1",
			Port: 4560,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			LLMModel:   "qwen2.5:7b-instruct",
			EmbedModel: "nomic-embed-text",
		},
		Whisper: WhisperConfig{
			Language: "de",
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			RecordSeconds: 4,
		},
		Profile:  "peak",
		DataDir:  "data",
		LogLevel: LogInfo,
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
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

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.OSC.Host == "" {
		errs = append(errs, errors.New("osc.host is required"))
	}
	if cfg.OSC.Port < 1 || cfg.OSC.Port > 65535 {
		errs = append(errs, fmt.Errorf("osc.port %d is out of range [1, 65535]", cfg.OSC.Port))
	}

	if cfg.Ollama.LLMModel == "" {
		errs = append(errs, errors.New("ollama.llm_model is required"))
	}
	if cfg.Ollama.EmbedModel == "" {
		errs = append(errs, errors.New("ollama.embed_model is required"))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.RecordSeconds <= 0 || cfg.Audio.RecordSeconds > 30 {
		errs = append(errs, fmt.Errorf("audio.record_seconds %.1f is out of range (0, 30]", cfg.Audio.RecordSeconds))
	}

	if err := validateThresholds(cfg.Thresholds); err != nil {
		errs = append(errs, err)
	}

	if cfg.Profile != "" && profile.Get(cfg.Profile) == nil {
		errs = append(errs, fmt.Errorf("profile %q is unknown; valid values: %v", cfg.Profile, profile.List()))
	}

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}

// validateThresholds checks ordering and range of the cascade thresholds.
// Zero values are allowed and mean "use the built-in default".
func validateThresholds(t ThresholdsConfig) error {
	var errs []error
	for name, v := range map[string]float64{
		"thresholds.knn_auto":            t.KNNAuto,
		"thresholds.knn_suggest":         t.KNNSuggest,
		"thresholds.llm_auto_confidence": t.LLMAutoConfidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", name, v))
		}
	}
	if t.KNNAuto != 0 && t.KNNSuggest != 0 && t.KNNSuggest > t.KNNAuto {
		errs = append(errs, fmt.Errorf("thresholds.knn_suggest %.2f must not exceed thresholds.knn_auto %.2f", t.KNNSuggest, t.KNNAuto))
	}
	return errors.Join(errs...)
}
