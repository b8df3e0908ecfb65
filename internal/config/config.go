package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Keycloak  KeycloakConfig  `mapstructure:"keycloak"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type KeycloakConfig struct {
	// BaseURL is the IdP root, e.g. "http://keycloak:8080".
	BaseURL string `mapstructure:"base_url"`
	// Realm is the tenant realm the gateway serves.
	Realm string `mapstructure:"realm"`
	// ClientID and ClientSecret are the service-account credentials used
	// for the client-credentials grant.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type RateLimitConfig struct {
	// RegisterInterval is the refill interval of the per-IP limiter on the
	// unauthenticated registration route.
	RegisterInterval time.Duration `mapstructure:"register_interval"`
	RegisterBurst    int           `mapstructure:"register_burst"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: DIRECTORY_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.env", "development")
	v.SetDefault("keycloak.base_url", "http://localhost:8080")
	v.SetDefault("keycloak.realm", "oauth-demo")
	v.SetDefault("keycloak.client_id", "directory-gateway")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("rate_limit.register_interval", "1m")
	v.SetDefault("rate_limit.register_burst", 5)

	// Environment variables (e.g. KEYCLOAK_BASE_URL -> keycloak.base_url)
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support plain env vars for Docker Compose convenience
	v.BindEnv("server.port", "PORT")
	v.BindEnv("keycloak.base_url", "KEYCLOAK_URL")
	v.BindEnv("keycloak.realm", "KEYCLOAK_REALM")
	v.BindEnv("keycloak.client_id", "KEYCLOAK_CLIENT_ID")
	v.BindEnv("keycloak.client_secret", "KEYCLOAK_CLIENT_SECRET")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Keycloak.BaseURL == "" {
		return fmt.Errorf("keycloak base URL is required")
	}
	if c.Keycloak.Realm == "" {
		return fmt.Errorf("keycloak realm is required")
	}
	if c.Keycloak.ClientID == "" || c.Keycloak.ClientSecret == "" {
		return fmt.Errorf("keycloak service-account credentials are required")
	}
	if c.RateLimit.RegisterBurst < 1 {
		return fmt.Errorf("register rate-limit burst must be at least 1")
	}
	return nil
}
