// Package config loads the extraction pipeline's runtime configuration:
// documented defaults, an optional YAML file, then environment variables
// (with .env support), each layer overriding the one before it.
package config

// AnthropicConfig configures the Anthropic Inference adapter.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// OpenAIConfig configures the OpenAI Inference adapter.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	// API selects "completions" (default) or "responses".
	API string `yaml:"api,omitempty"`
}

// GoogleConfig configures the Google (genai) Inference adapter.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout int    `yaml:"timeout_seconds,omitempty"`
}

// ExtractionConfig carries the pipeline's extraction knobs.
type ExtractionConfig struct {
	MaxCharBuffer         int     `yaml:"max_char_buffer"`
	ExtractionPasses      int     `yaml:"extraction_passes"`
	MaxWorkers            int     `yaml:"max_workers"`
	FuzzyThreshold        float64 `yaml:"fuzzy_threshold"`
	LesserThreshold       float64 `yaml:"lesser_threshold"`
	AcceptLesser          bool    `yaml:"accept_lesser"`
	FuzzySlack            float64 `yaml:"fuzzy_slack"`
	ContextWindowChars    int     `yaml:"context_window_chars"`
	ValidationLevel       string  `yaml:"validation_level"`
	MaxRetries            int     `yaml:"max_retries"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
}

// ObsConfig configures optional OTel metrics.
type ObsConfig struct {
	ServiceName    string `yaml:"service_name,omitempty"`
	ServiceVersion string `yaml:"service_version,omitempty"`
	Environment    string `yaml:"environment,omitempty"`
	OTLP           string `yaml:"otlp_endpoint,omitempty"`
}

// Config is the top-level configuration for the extraction pipeline and its
// CLI.
type Config struct {
	Provider string `yaml:"provider"` // "anthropic" | "openai" | "google"

	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Google    GoogleConfig    `yaml:"google"`

	Extraction ExtractionConfig `yaml:"extraction"`

	LogPath  string `yaml:"log_path,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`

	Obs ObsConfig `yaml:"observability"`
}

// Defaults returns the documented extraction knob defaults.
func Defaults() ExtractionConfig {
	return ExtractionConfig{
		MaxCharBuffer:         1000,
		ExtractionPasses:      1,
		MaxWorkers:            10,
		FuzzyThreshold:        0.75,
		LesserThreshold:       0.5,
		AcceptLesser:          true,
		FuzzySlack:            0.25,
		ContextWindowChars:    200,
		ValidationLevel:       "warning",
		MaxRetries:            2,
		RequestTimeoutSeconds: 60,
	}
}
