package config

import (
	"time"
)

// ServerConfig represents the HTTP server and mail intake settings
type ServerConfig struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
	FilterType      string
}

// PostfixConfig represents the SMTP content filter settings
type PostfixConfig struct {
	ListenAddress   string
	BlockSpam       bool
	SpamHeader      string
	ModelHeader     string
	ReasonHeader    string
	ReinjectAddress string
	ReinjectPort    int
	ReinjectEnabled bool
	SubjectPrefix   string
	ModifySubject   bool
	ClassifyTimeout time.Duration
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BreakerConfig represents the circuit breaker around the generation service
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// JudgeConfig represents the generative judge settings
type JudgeConfig struct {
	Timeout     time.Duration
	MaxBodySize int
	MaxRetries  int
	RetryBase   time.Duration
	Breaker     BreakerConfig
}

// ModelConfig represents the statistical model settings
type ModelConfig struct {
	ArtifactPath string
	Concurrency  int
}

// HistoryConfig represents the history store settings
type HistoryConfig struct {
	Format  string
	Path    string
	CSVPath string
}

// CacheConfig represents the verdict cache settings
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
}

// MailConfig represents the IMAP retrieval settings
type MailConfig struct {
	Enabled       bool
	Address       string
	Username      string
	Password      string
	Mailbox       string
	MaxMessages   int
	PreviewLength int
	Insecure      bool
}

// NotifyConfig represents the notification settings
type NotifyConfig struct {
	Provider       string
	TrustedDomains []string
	TelegramToken  string
	TelegramChatID int64
	SendGridAPIKey string
	SendGridFrom   string
	SendGridTo     string
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ShutdownTimeout: shutdown,
		FilterType:      c.GetString("server.filter_type"),
	}, nil
}

// GetPostfix returns the SMTP content filter configuration
func (c *Config) GetPostfix() (PostfixConfig, error) {
	timeout, err := c.GetDuration("postfix.classify_timeout")
	if err != nil {
		return PostfixConfig{}, err
	}
	return PostfixConfig{
		ListenAddress:   c.GetString("postfix.listen_address"),
		BlockSpam:       c.GetBool("postfix.block_spam"),
		SpamHeader:      c.GetString("postfix.headers.spam"),
		ModelHeader:     c.GetString("postfix.headers.model"),
		ReasonHeader:    c.GetString("postfix.headers.reason"),
		ReinjectAddress: c.GetString("postfix.reinject_address"),
		ReinjectPort:    c.GetInt("postfix.reinject_port"),
		ReinjectEnabled: c.GetBool("postfix.reinject_enabled"),
		SubjectPrefix:   c.GetString("postfix.subject_prefix"),
		ModifySubject:   c.GetBool("postfix.modify_subject"),
		ClassifyTimeout: timeout,
	}, nil
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
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
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetJudge returns the generative judge configuration
func (c *Config) GetJudge() (JudgeConfig, error) {
	var cfg JudgeConfig
	var err error

	if cfg.Timeout, err = c.GetDuration("judge.timeout"); err != nil {
		return JudgeConfig{}, err
	}
	if cfg.RetryBase, err = c.GetDuration("judge.retry_base"); err != nil {
		return JudgeConfig{}, err
	}
	if cfg.Breaker.Interval, err = c.GetDuration("judge.breaker.interval"); err != nil {
		return JudgeConfig{}, err
	}
	if cfg.Breaker.Timeout, err = c.GetDuration("judge.breaker.timeout"); err != nil {
		return JudgeConfig{}, err
	}

	cfg.MaxBodySize = c.GetInt("judge.max_body_size")
	cfg.MaxRetries = c.GetInt("judge.max_retries")
	cfg.Breaker.MaxRequests = uint32(c.GetInt("judge.breaker.max_requests"))
	cfg.Breaker.ConsecutiveFailures = uint32(c.GetInt("judge.breaker.consecutive_failures"))
	return cfg, nil
}

// GetModel returns the statistical model configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		ArtifactPath: c.GetString("model.artifact_path"),
		Concurrency:  c.GetInt("classify.concurrency"),
	}
}

// GetHistory returns the history store configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Format:  c.GetString("history.format"),
		Path:    c.GetString("history.path"),
		CSVPath: c.GetString("history.csv_path"),
	}
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddress:     c.GetString("cache.redis_address"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}, nil
}

// GetMail returns the IMAP retrieval configuration
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		Enabled:       c.GetBool("mail.enabled"),
		Address:       c.GetString("mail.address"),
		Username:      c.GetString("mail.username"),
		Password:      c.GetString("mail.password"),
		Mailbox:       c.GetString("mail.mailbox"),
		MaxMessages:   c.GetInt("mail.max_messages"),
		PreviewLength: c.GetInt("mail.preview_length"),
		Insecure:      c.GetBool("mail.insecure"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Provider:       c.GetString("notify.provider"),
		TrustedDomains: c.GetStringSlice("notify.trusted_domains"),
		TelegramToken:  c.GetString("notify.telegram.token"),
		TelegramChatID: c.GetInt64("notify.telegram.chat_id"),
		SendGridAPIKey: c.GetString("notify.sendgrid.api_key"),
		SendGridFrom:   c.GetString("notify.sendgrid.from"),
		SendGridTo:     c.GetString("notify.sendgrid.to"),
	}
}
