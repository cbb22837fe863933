package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabasePath       string   `mapstructure:"DATABASE_PATH"`
	DBMaxConns         int      `mapstructure:"DB_MAX_CONNS"`
	DBBusyTimeoutMS    int      `mapstructure:"DB_BUSY_TIMEOUT_MS"`
	WriteRetryAttempts int      `mapstructure:"WRITE_RETRY_ATTEMPTS"`
	WriteRetryDelayMS  int      `mapstructure:"WRITE_RETRY_DELAY_MS"`
	UploadDir          string   `mapstructure:"UPLOAD_DIR"`
	JWTSecret          string   `mapstructure:"JWT_SECRET"`
	JWTIssuer          string   `mapstructure:"JWT_ISSUER"`
	TokenTTLMin        int      `mapstructure:"TOKEN_TTL_MIN"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATABASE_PATH", "umrs.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_BUSY_TIMEOUT_MS", 5000)
	v.SetDefault("WRITE_RETRY_ATTEMPTS", 5)
	v.SetDefault("WRITE_RETRY_DELAY_MS", 100)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("JWT_ISSUER", "umrs")
	v.SetDefault("TOKEN_TTL_MIN", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_PATH")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_BUSY_TIMEOUT_MS")
	v.BindEnv("WRITE_RETRY_ATTEMPTS")
	v.BindEnv("WRITE_RETRY_DELAY_MS")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("TOKEN_TTL_MIN")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// BusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.DBBusyTimeoutMS) * time.Millisecond
}

// WriteRetryDelay returns the delay between write retry attempts.
func (c *Config) WriteRetryDelay() time.Duration {
	return time.Duration(c.WriteRetryDelayMS) * time.Millisecond
}

// TokenTTL returns the session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// JWT_SECRET must be set so that real token authentication is enforced.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if c.WriteRetryAttempts < 1 {
		return fmt.Errorf("WRITE_RETRY_ATTEMPTS must be at least 1, got %d", c.WriteRetryAttempts)
	}
	if c.WriteRetryDelayMS < 0 {
		return fmt.Errorf("WRITE_RETRY_DELAY_MS must not be negative, got %d", c.WriteRetryDelayMS)
	}
	return nil
}
