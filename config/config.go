package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	Issuer              string `mapstructure:"ISSUER"`
	JWTSecretKey        string `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTLMin   int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour int    `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	AuthCodeTTLMin      int    `mapstructure:"AUTH_CODE_TTL_MIN"`
	TwoFactorTTLMin     int    `mapstructure:"TWO_FACTOR_TTL_MIN"`
	MaxSessionsPerUser  int    `mapstructure:"MAX_SESSIONS_PER_USER"`
}

// AccessTokenTTL returns the access-token lifetime as a duration.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the refresh-token lifetime as a duration.
func (c *ServerConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

// AuthCodeTTL returns the authorization-code lifetime as a duration.
func (c *ServerConfig) AuthCodeTTL() time.Duration {
	return time.Duration(c.AuthCodeTTLMin) * time.Minute
}

// TwoFactorTTL returns the one-time code lifetime as a duration.
func (c *ServerConfig) TwoFactorTTL() time.Duration {
	return time.Duration(c.TwoFactorTTLMin) * time.Minute
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/agora-auth/")
	v.AddConfigPath("$HOME/.agora-auth")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/agora_auth_dev")
	v.SetDefault("MONGO_DB_NAME", "agora_auth_dev")
	v.SetDefault("REDIS_ADDR", "") // empty means in-memory revocation registry
	v.SetDefault("REDIS_PREFIX", "agora-auth")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("ISSUER", "agora-auth")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 336) // 14 days
	v.SetDefault("AUTH_CODE_TTL_MIN", 10)
	v.SetDefault("TWO_FACTOR_TTL_MIN", 5)
	v.SetDefault("MAX_SESSIONS_PER_USER", 5)

	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
