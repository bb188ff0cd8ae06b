package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MAIL_CLARITY_HISTORY_PATH
const EnvPrefix = "MAIL_CLARITY"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from the default search paths
func New() (*Config, error) {
	return Load("")
}

// Load creates a configuration instance. An empty configFile searches the default
// locations and tolerates a missing file; an explicit one must exist.
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mail-clarity/")
		v.AddConfigPath("$HOME/.mail-clarity")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults and environment overrides
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

// loadDotEnv exports the variables of the .env file that are not already set
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// conventional names used by the provider SDKs and deployment tooling
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("notify.telegram.token", EnvPrefix+"_NOTIFY_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_id", EnvPrefix+"_NOTIFY_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("notify.sendgrid.api_key", EnvPrefix+"_NOTIFY_SENDGRID_API_KEY", "SENDGRID_API_KEY")
	_ = v.BindEnv("mail.username", EnvPrefix+"_MAIL_USERNAME", "IMAP_USERNAME")
	_ = v.BindEnv("mail.password", EnvPrefix+"_MAIL_PASSWORD", "IMAP_PASSWORD")
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8000")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.filter_type", "none")

	// Postfix content filter defaults
	v.SetDefault("postfix.listen_address", "0.0.0.0:10025")
	v.SetDefault("postfix.block_spam", false)
	v.SetDefault("postfix.headers.spam", "X-Spam-Status")
	v.SetDefault("postfix.headers.model", "X-Spam-Model")
	v.SetDefault("postfix.headers.reason", "X-Spam-Reason")
	v.SetDefault("postfix.reinject_address", "127.0.0.1")
	v.SetDefault("postfix.reinject_port", 10026)
	v.SetDefault("postfix.reinject_enabled", true)
	v.SetDefault("postfix.subject_prefix", "[**SPAM**] ")
	v.SetDefault("postfix.modify_subject", false)
	v.SetDefault("postfix.classify_timeout", "60s")

	// LLM provider defaults
	v.SetDefault("llm.provider", "gemini")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Judge defaults
	v.SetDefault("judge.timeout", "30s")
	v.SetDefault("judge.max_body_size", 8192)
	v.SetDefault("judge.max_retries", 2)
	v.SetDefault("judge.retry_base", "500ms")
	v.SetDefault("judge.breaker.max_requests", 3)
	v.SetDefault("judge.breaker.interval", "60s")
	v.SetDefault("judge.breaker.timeout", "30s")
	v.SetDefault("judge.breaker.consecutive_failures", 5)

	// Statistical model defaults
	v.SetDefault("model.artifact_path", "./models/spam_model.json")
	v.SetDefault("classify.concurrency", 4)

	// History defaults
	v.SetDefault("history.format", "json")
	v.SetDefault("history.path", "./history/history.json")
	v.SetDefault("history.csv_path", "./history/history.csv")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "./data/verdict_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/mail_clarity?parseTime=true")
	v.SetDefault("cache.redis_address", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// Mail retrieval defaults
	v.SetDefault("mail.enabled", true)
	v.SetDefault("mail.address", "imap.gmail.com:993")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.max_messages", 10)
	v.SetDefault("mail.preview_length", 600)
	v.SetDefault("mail.insecure", false)

	// Notification defaults
	v.SetDefault("notify.provider", "none")
	v.SetDefault("notify.trusted_domains", []string{})
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
	v.SetDefault("notify.sendgrid.api_key", "")
	v.SetDefault("notify.sendgrid.from", "")
	v.SetDefault("notify.sendgrid.to", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
