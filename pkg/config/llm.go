package config

import "os"

// Environment variables consulted when the file leaves LLM settings empty.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "WEBPILOT_MODEL"
)

// LLMConfig manages LLM provider settings.
type LLMConfig struct {
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	// APIKey is usually left empty in files and taken from OPENAI_API_KEY
	APIKey string `yaml:"api_key" json:"-"`
	// ExtractionModel is optional; if empty, extraction uses Model
	ExtractionModel string `yaml:"extraction_model" json:"extraction_model"`
}

// ApplyEnv fills empty fields from the environment. WEBPILOT_MODEL overrides
// the configured model.
func (c *LLMConfig) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv(EnvBaseURL)
	}
	if model := os.Getenv(EnvModel); model != "" {
		c.Model = model
	}
}

// ResolvedExtractionModel returns the model used by the extraction phase.
func (c *LLMConfig) ResolvedExtractionModel() string {
	if c.ExtractionModel != "" {
		return c.ExtractionModel
	}
	return c.Model
}
