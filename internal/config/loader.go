package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load builds configuration in three layers: documented defaults, then —
// if EXTRACT_CONFIG_FILE is set — a YAML file unmarshalled over them, then
// environment variables (with .env support via godotenv.Overload).
// Environment values always win over the file.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{Extraction: Defaults()}

	if path := strings.TrimSpace(os.Getenv("EXTRACT_CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		// Unmarshalling over the defaulted struct leaves omitted fields
		// alone, so a sparse file only changes what it names.
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("EXTRACT_LLM_PROVIDER")); v != "" {
		cfg.Provider = v
	}

	setIfEnv(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setIfEnv(&cfg.Anthropic.Model, "ANTHROPIC_MODEL")
	setIfEnv(&cfg.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")

	setIfEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEnv(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setIfEnv(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setIfEnv(&cfg.OpenAI.API, "OPENAI_API")

	if v := firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Google.APIKey = v
	}
	setIfEnv(&cfg.Google.Model, "GOOGLE_MODEL")
	setIfEnv(&cfg.Google.BaseURL, "GOOGLE_BASE_URL")
	if v := envInt("GOOGLE_TIMEOUT_SECONDS"); v > 0 {
		cfg.Google.Timeout = v
	}

	if v := envInt("EXTRACT_MAX_CHAR_BUFFER"); v > 0 {
		cfg.Extraction.MaxCharBuffer = v
	}
	if v := envInt("EXTRACT_PASSES"); v > 0 {
		cfg.Extraction.ExtractionPasses = v
	}
	if v := envInt("EXTRACT_MAX_WORKERS"); v > 0 {
		cfg.Extraction.MaxWorkers = v
	}
	if v := envFloat("EXTRACT_FUZZY_THRESHOLD"); v > 0 {
		cfg.Extraction.FuzzyThreshold = v
	}
	if v := envFloat("EXTRACT_LESSER_THRESHOLD"); v > 0 {
		cfg.Extraction.LesserThreshold = v
	}
	if v := strings.TrimSpace(os.Getenv("EXTRACT_ACCEPT_LESSER")); v != "" {
		cfg.Extraction.AcceptLesser = parseBool(v)
	}
	if v := envFloat("EXTRACT_FUZZY_SLACK"); v > 0 {
		cfg.Extraction.FuzzySlack = v
	}
	if v := envInt("EXTRACT_CONTEXT_WINDOW_CHARS"); v > 0 {
		cfg.Extraction.ContextWindowChars = v
	}
	if v := strings.TrimSpace(os.Getenv("EXTRACT_VALIDATION_LEVEL")); v != "" {
		cfg.Extraction.ValidationLevel = strings.ToLower(v)
	}
	if v := envInt("EXTRACT_MAX_RETRIES"); v >= 0 && os.Getenv("EXTRACT_MAX_RETRIES") != "" {
		cfg.Extraction.MaxRetries = v
	}
	if v := envInt("EXTRACT_REQUEST_TIMEOUT_SECONDS"); v > 0 {
		cfg.Extraction.RequestTimeoutSeconds = v
	}

	setIfEnv(&cfg.LogPath, "LOG_PATH")
	setIfEnv(&cfg.LogLevel, "LOG_LEVEL")

	setIfEnv(&cfg.Obs.ServiceName, "OTEL_SERVICE_NAME")
	if cfg.Obs.ServiceName == "" {
		cfg.Obs.ServiceName = "extract"
	}
	setIfEnv(&cfg.Obs.ServiceVersion, "SERVICE_VERSION")
	setIfEnv(&cfg.Obs.Environment, "ENVIRONMENT")
	setIfEnv(&cfg.Obs.OTLP, "OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
