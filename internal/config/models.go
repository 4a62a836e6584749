package config

import "time"

// LLMConfig represents the configuration for the classifier provider
type LLMConfig struct {
	Provider string
}

// TriageConfig represents the tunables of the triage pipeline
type TriageConfig struct {
	ConfidenceThreshold   float64
	MaxConcurrentSessions int
	ClassifyRetries       int
	ClassifyBackoff       time.Duration
	ClassifyTimeout       time.Duration
	ToolRetries           int
	ToolBackoff           time.Duration
	ToolTimeout           time.Duration
}

// SourceConfig represents the configuration for the email source
type SourceConfig struct {
	Type          string
	Dir           string
	ListenAddress string
}

// DirectoryConfig represents the configuration for the business directory
type DirectoryConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetLLM returns the classifier provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetTriage returns the triage pipeline configuration
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		ConfidenceThreshold:   c.GetFloat64("triage.confidence_threshold"),
		MaxConcurrentSessions: c.GetInt("triage.max_concurrent_sessions"),
		ClassifyRetries:       c.GetInt("triage.classify_retries"),
		ClassifyBackoff:       c.v.GetDuration("triage.classify_backoff"),
		ClassifyTimeout:       c.v.GetDuration("triage.classify_timeout"),
		ToolRetries:           c.GetInt("triage.tool_retries"),
		ToolBackoff:           c.v.GetDuration("triage.tool_backoff"),
		ToolTimeout:           c.v.GetDuration("triage.tool_timeout"),
	}
}

// GetSource returns the email source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type:          c.GetString("source.type"),
		Dir:           c.GetString("source.dir"),
		ListenAddress: c.GetString("source.listen_address"),
	}
}

// GetDirectory returns the business directory configuration
func (c *Config) GetDirectory() DirectoryConfig {
	return DirectoryConfig{
		Type:       c.GetString("directory.type"),
		SQLitePath: c.GetString("directory.sqlite_path"),
		MySQLDSN:   c.GetString("directory.mysql_dsn"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
