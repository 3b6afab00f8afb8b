package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the admin gateway
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// UpstreamConfig holds the connection settings for the consent backend.
// APIBaseOverride, when set, wins over the candidate base URLs; otherwise
// the candidates are probed in order and the first responsive one is kept.
type UpstreamConfig struct {
	BaseURLs            []string      `mapstructure:"base_urls"`
	APIBaseOverride     string        `mapstructure:"api_base_override"`
	AuthToken           string        `mapstructure:"auth_token"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	BackfillConcurrency int           `mapstructure:"backfill_concurrency"`
}

// AuthConfig holds the operator login gate configuration
type AuthConfig struct {
	SigningKey string            `mapstructure:"signing_key"`
	Issuer     string            `mapstructure:"issuer"`
	TokenTTL   time.Duration     `mapstructure:"token_ttl"`
	Operators  []OperatorAccount `mapstructure:"operators"`
}

// OperatorAccount represents one operator login
type OperatorAccount struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Role     string `mapstructure:"role"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default lookup order:
		// 1. ./repository/conf/deployment.yaml (production - relative to binary)
		// 2. ./cmd/server/repository/conf/deployment.yaml (development)
		v.SetConfigName("deployment")
		v.SetConfigType("yaml")
		v.AddConfigPath("./repository/conf")
		v.AddConfigPath("./cmd/server/repository/conf")
		v.AddConfigPath("../repository/conf")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CONSENT_ADMIN")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.retry_attempts", 2)
	v.SetDefault("upstream.backfill_concurrency", 8)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "consent-admin-api")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Upstream.APIBaseOverride == "" && len(config.Upstream.BaseURLs) == 0 {
		return fmt.Errorf("at least one upstream base URL is required")
	}

	if config.Upstream.RetryAttempts < 0 {
		return fmt.Errorf("upstream retry attempts must be non-negative")
	}

	if config.Upstream.BackfillConcurrency < 1 {
		return fmt.Errorf("backfill concurrency must be at least 1")
	}

	if config.Auth.SigningKey == "" {
		return fmt.Errorf("auth signing key is required")
	}

	if len(config.Auth.Operators) == 0 {
		return fmt.Errorf("at least one operator account is required")
	}

	return nil
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// Candidates returns the upstream base URLs in probe order. An explicit
// override short-circuits the fallback list entirely.
func (u *UpstreamConfig) Candidates() []string {
	if u.APIBaseOverride != "" {
		return []string{u.APIBaseOverride}
	}
	return u.BaseURLs
}

// FindOperator returns the account for a username, if configured.
func (a *AuthConfig) FindOperator(username string) (OperatorAccount, bool) {
	for _, op := range a.Operators {
		if op.Username == username {
			return op, true
		}
	}
	return OperatorAccount{}, false
}
