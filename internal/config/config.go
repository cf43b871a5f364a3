package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Session SessionConfig
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig holds the tunables of the quiz session runtime.
type SessionConfig struct {
	ExpiryHours               int    `mapstructure:"expiry_hours"`
	QuestionTimeSeconds       int    `mapstructure:"question_time_seconds"`
	ReconnectionTimeoutSec    int    `mapstructure:"reconnection_timeout_seconds"`
	MaxParticipantsPerSession int    `mapstructure:"max_participants_per_session"`
	QuizSeedFile              string `mapstructure:"quiz_seed_file"`
}

// SessionTTL returns the TTL to apply to a session's persisted state.
func (s SessionConfig) SessionTTL() time.Duration {
	return time.Duration(s.ExpiryHours) * time.Hour
}

// ReconnectionTimeout returns the configured reconnection grace period as a
// Duration. Nothing in the runtime reads it: a disconnected participant is
// only marked not connected and keeps their seat for the session's lifetime.
func (s SessionConfig) ReconnectionTimeout() time.Duration {
	return time.Duration(s.ReconnectionTimeoutSec) * time.Second
}

// LoadConfig loads configuration from various sources in the following order of precedence:
// 1. Environment variables (with or without APP_ prefix, highest priority)
// 2. Config file specified by APP_CONFIG_FILE environment variable
func LoadConfig() (*Config, error) {
	config := &Config{}
	v := viper.New()

	setDefaults(v)

	// Set up environment variables
	v.SetEnvPrefix("APP") // This will prefix all env vars with APP_
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // Read environment variables that match

	// Also support standard environment variables without the prefix.
	// The APP_-prefixed variable is checked first; these are used when it is unset
	bindEnvVariables(v)

	// Look for config file
	configFile := getConfigFile()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Warning: Unable to read config file: %v", err)
			// Non-fatal error, continue with defaults and env vars
		} else {
			log.Printf("Using config file: %s", v.ConfigFileUsed())
		}
	}

	// Unmarshal the config into our struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.public_base_url", "http://localhost:8080")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.expiry_hours", 24)
	v.SetDefault("session.question_time_seconds", 30)
	v.SetDefault("session.reconnection_timeout_seconds", 60)
	v.SetDefault("session.max_participants_per_session", 50)
}

// bindEnvVariables explicitly binds commonly used environment variables
// to their respective config keys for better compatibility
func bindEnvVariables(v *viper.Viper) {
	// Bind standard environment variables (without APP_ prefix)
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")
	v.BindEnv("server.public_base_url", "SERVER_PUBLIC_BASE_URL")

	// Redis environment variables
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Session runtime environment variables
	v.BindEnv("session.expiry_hours", "SESSION_EXPIRY_HOURS")
	v.BindEnv("session.question_time_seconds", "QUESTION_TIME_SECONDS")
	v.BindEnv("session.reconnection_timeout_seconds", "RECONNECTION_TIMEOUT")
	v.BindEnv("session.max_participants_per_session", "MAX_PARTICIPANTS_PER_SESSION")
	v.BindEnv("session.quiz_seed_file", "QUIZ_SEED_FILE")
}

// getConfigFile returns the config file path from APP_CONFIG_FILE environment variable
func getConfigFile() string {
	// Only check environment variable for config file path
	if configPath := os.Getenv("APP_CONFIG_FILE"); configPath != "" {
		return configPath
	}

	return "" // No config file specified
}

// GetAddr returns Redis address in the format "host:port"
func (r RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
