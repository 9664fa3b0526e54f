package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minutesapp/minutes-pipeline/pipeline"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	WebhookEncryptKey        string `mapstructure:"WEBHOOK_ENCRYPT_KEY"`
	WebhookVerificationToken string `mapstructure:"WEBHOOK_VERIFICATION_TOKEN"`

	LarkAppID     string `mapstructure:"LARK_APP_ID"`
	LarkAppSecret string `mapstructure:"LARK_APP_SECRET"`
	LarkBaseURL   string `mapstructure:"LARK_BASE_URL"`

	LLMAPIKey  string `mapstructure:"LLM_API_KEY"`
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	EventsFile string `mapstructure:"EVENTS_FILE"`

	TranscriptWaitSeconds    int `mapstructure:"TRANSCRIPT_WAIT_SECONDS"`
	FetchMaxRetries          int `mapstructure:"FETCH_MAX_RETRIES"`
	FetchInitialDelaySeconds int `mapstructure:"FETCH_INITIAL_DELAY_SECONDS"`
	FetchMaxDelaySeconds     int `mapstructure:"FETCH_MAX_DELAY_SECONDS"`
	ProcessedEventTTLHours   int `mapstructure:"PROCESSED_EVENT_TTL_HOURS"`
}

// setDefaults registers every key so AutomaticEnv picks them up during
// Unmarshal even when no config file is present
func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("WEBHOOK_ENCRYPT_KEY", "")
	viper.SetDefault("WEBHOOK_VERIFICATION_TOKEN", "")
	viper.SetDefault("LARK_APP_ID", "")
	viper.SetDefault("LARK_APP_SECRET", "")
	viper.SetDefault("LARK_BASE_URL", "")
	viper.SetDefault("LLM_API_KEY", "")
	viper.SetDefault("LLM_BASE_URL", "")
	viper.SetDefault("LLM_MODEL", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("EVENTS_FILE", "")
	viper.SetDefault("TRANSCRIPT_WAIT_SECONDS", 30)
	viper.SetDefault("FETCH_MAX_RETRIES", 5)
	viper.SetDefault("FETCH_INITIAL_DELAY_SECONDS", 5)
	viper.SetDefault("FETCH_MAX_DELAY_SECONDS", 60)
	viper.SetDefault("PROCESSED_EVENT_TTL_HOURS", 24)
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment carries the values
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// Validate reports the required settings that are missing.
// Absence of secrets is a configuration error, never silently defaulted.
func (c *Config) Validate() error {
	var missing []string
	if c.WebhookEncryptKey == "" {
		missing = append(missing, "WEBHOOK_ENCRYPT_KEY")
	}
	if c.WebhookVerificationToken == "" {
		missing = append(missing, "WEBHOOK_VERIFICATION_TOKEN")
	}
	if c.LarkAppID == "" {
		missing = append(missing, "LARK_APP_ID")
	}
	if c.LarkAppSecret == "" {
		missing = append(missing, "LARK_APP_SECRET")
	}
	if c.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// WebhookConfigured reports whether the webhook secrets are present
func (c *Config) WebhookConfigured() bool {
	return c.WebhookEncryptKey != "" && c.WebhookVerificationToken != ""
}

// PipelineConfig builds the pipeline configuration from the settings
func (c *Config) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.TranscriptWaitSeconds > 0 {
		cfg.TranscriptWait = time.Duration(c.TranscriptWaitSeconds) * time.Second
	}
	if c.FetchMaxRetries > 0 {
		cfg.FetchRetry.MaxRetries = c.FetchMaxRetries
	}
	if c.FetchInitialDelaySeconds > 0 {
		cfg.FetchRetry.InitialDelay = time.Duration(c.FetchInitialDelaySeconds) * time.Second
	}
	if c.FetchMaxDelaySeconds > 0 {
		cfg.FetchRetry.MaxDelay = time.Duration(c.FetchMaxDelaySeconds) * time.Second
	}
	if c.ProcessedEventTTLHours > 0 {
		cfg.ProcessedTTL = time.Duration(c.ProcessedEventTTLHours) * time.Hour
	}
	return cfg
}
