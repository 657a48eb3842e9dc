// Package config provides the configuration schema and loader for the takt
// live-set conductor.
package config

// LogLevel controls log verbosity for the takt process.
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

// Config is the root configuration structure for takt.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	OSC        OSCConfig        `yaml:"osc"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	Whisper    WhisperConfig    `yaml:"whisper"`
	Audio      AudioConfig      `yaml:"audio"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Profile selects the safety profile active at startup.
	Profile string `yaml:"profile"`

	// MetricsAddr is the listen address for the /healthz, /readyz, and
	// /metrics endpoints (e.g., ":9090"). Empty disables the server.
	MetricsAddr string `yaml:"metrics_addr"`

	// DataDir is the directory holding the SQLite database with intent
	// examples, event history, and ratings.
	DataDir string `yaml:"data_dir"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// OSCConfig addresses the Sonic Pi OSC listener.
type OSCConfig struct {
	// Host is the OSC receiver address (e.g., "127.0.0.1").
	Host string `yaml:"host"`

	// Port is the OSC receiver UDP port. Sonic Pi listens on 4560 by default.
	Port int `yaml:"port"`
}

// OllamaConfig addresses the local Ollama server used for both intent
// classification and example embeddings.
type OllamaConfig struct {
	// BaseURL overrides the default Ollama endpoint (http://localhost:11434).
	BaseURL string `yaml:"base_url"`

	// LLMModel is the chat model used for intent classification
	// (e.g., "qwen2.5:7b-instruct").
	LLMModel string `yaml:"llm_model"`

	// EmbedModel is the embedding model used for example matching
	// (e.g., "nomic-embed-text").
	EmbedModel string `yaml:"embed_model"`
}

// WhisperConfig configures local speech recognition.
type WhisperConfig struct {
	// ModelPath is the path to the ggml whisper model file.
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language code. Defaults to "de".
	Language string `yaml:"language"`
}

// AudioConfig configures microphone capture for push-to-talk input.
type AudioConfig struct {
	// SampleRate in Hz. Defaults to 16000, which is what whisper expects.
	SampleRate int `yaml:"sample_rate"`

	// RecordSeconds is the push-to-talk window length.
	RecordSeconds float64 `yaml:"record_seconds"`

	// Device selects the input device by index or name substring.
	// Empty means the host default.
	Device string `yaml:"device"`
}

// ThresholdsConfig tunes the intent resolution cascade. Zero values fall
// back to the built-in defaults.
type ThresholdsConfig struct {
	// KNNAuto is the example similarity above which a match is applied
	// without confirmation.
	KNNAuto float64 `yaml:"knn_auto"`

	// KNNSuggest is the example similarity above which a match is proposed
	// for confirmation.
	KNNSuggest float64 `yaml:"knn_suggest"`

	// LLMAutoConfidence is the classifier confidence above which an LLM
	// result is applied without confirmation.
	LLMAutoConfidence float64 `yaml:"llm_auto_confidence"`
}
