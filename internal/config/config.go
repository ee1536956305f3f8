// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// defaultCredStorePath places the credential file under the user config dir,
// falling back to the working directory when none is available.
func defaultCredStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".vibio-credentials"
	}
	return filepath.Join(dir, "vibio", "credentials")
}

// Config holds configuration for the client and the local stub server,
// loaded from file or environment variables.
type Config struct {
	// Client settings
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	HTTPTimeout     time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CredStorePath   string        `mapstructure:"CRED_STORE_PATH"`
	CredStoreSecret string        `mapstructure:"CRED_STORE_SECRET"`

	// Stub server settings
	Port      string `mapstructure:"PORT"`
	DBPath    string `mapstructure:"DB_PATH"`
	MediaDir  string `mapstructure:"MEDIA_DIR"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
	SeedDemo  bool   `mapstructure:"SEED_DEMO"`

	// Tracing
	TracingEnabled bool    `mapstructure:"TRACING_ENABLED"`
	TraceExporter  string  `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	SamplerRatio   float64 `mapstructure:"TRACE_SAMPLER_RATIO"`

	Env string `mapstructure:"APP_ENV"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	// We intentionally ignore this error as the config file may not exist yet
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	// Set default values for development
	viper.SetDefault("API_BASE_URL", "http://localhost:8375")
	viper.SetDefault("HTTP_TIMEOUT", "15s")
	viper.SetDefault("CRED_STORE_PATH", defaultCredStorePath())
	viper.SetDefault("CRED_STORE_SECRET", "dev-secret-change-in-production")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_PATH", "vibio.db")
	viper.SetDefault("MEDIA_DIR", "media")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("SEED_DEMO", true)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACE_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACE_SAMPLER_RATIO", 1.0)
	viper.SetDefault("APP_ENV", "development")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	// Strict checks for production
	if isProduction {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if c.CredStoreSecret == "dev-secret-change-in-production" {
			return errors.New("CRED_STORE_SECRET must be changed from the default value in production")
		}
		if len(c.CredStoreSecret) < 32 {
			return errors.New("CRED_STORE_SECRET must be at least 32 characters in production")
		}
	} else {
		// Development/Test warnings
		if len(c.CredStoreSecret) < 32 {
			log.Println("WARNING: CRED_STORE_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}
