package config

import (
	"fmt"
	"time"

	"github.com/icare-life/carebot/pkg/logger"
	"github.com/icare-life/carebot/pkg/redis"
)

// Config holds runtime configuration for the carebot service.
type Config struct {
	AppEnv string `mapstructure:"-"`

	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          logger.Config      `mapstructure:"log"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        redis.Config       `mapstructure:"redis"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Recorder     RecorderConfig     `mapstructure:"recorder"`
	Knowledge    UpstreamConfig     `mapstructure:"knowledge"`
	Translate    UpstreamConfig     `mapstructure:"translate"`
	Identity     UpstreamConfig     `mapstructure:"identity"`
	Who          UpstreamConfig     `mapstructure:"who"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	I18n         I18nConfig         `mapstructure:"i18n"`
}

// HTTPConfig configures the public HTTP listener.
type HTTPConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig describes the session and query log database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// ConversationConfig tunes the dialogue engine.
type ConversationConfig struct {
	FreeQuestionLimit  int           `mapstructure:"free_question_limit" validate:"min=0"`
	DefaultLanguage    string        `mapstructure:"default_language" validate:"required"`
	SupportedLanguages []string      `mapstructure:"supported_languages" validate:"min=1"`
	KnowledgeBaseName  string        `mapstructure:"knowledge_base_name"`
	LookupTimeout      time.Duration `mapstructure:"lookup_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
}

// RecorderConfig tunes session persistence.
type RecorderConfig struct {
	MinTranscriptMessages int `mapstructure:"min_transcript_messages" validate:"min=0"`
}

// UpstreamConfig describes an external HTTP dependency.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig configures the fallback answer generator.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// RateLimitConfig bounds per-client request rates on the public API.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=0"`
	Window   time.Duration `mapstructure:"window"`
}

// I18nConfig locates the translation catalogs.
type I18nConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}
