package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	Environment string `yaml:"environment"`
	LogFormat   string `yaml:"log_format"`

	SupabaseURL       string `yaml:"supabase_url"`
	SupabaseAnonKey   string `yaml:"supabase_anon_key"`
	SupabaseJWTSecret string `yaml:"supabase_jwt_secret"`

	StoreBackend string `yaml:"store_backend"`
	DBDSN        string `yaml:"db_dsn"`

	AuthBackend       string `yaml:"auth_backend"`
	AdminEmail        string `yaml:"admin_email"`
	AdminPasswordHash string `yaml:"admin_password_hash"`

	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTAudience string        `yaml:"jwt_audience"`
	JWTExpiry   time.Duration `yaml:"jwt_expiry"`

	SessionKey   string `yaml:"session_key"`
	CookieSecure bool   `yaml:"cookie_secure"`

	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	EnableMetrics bool          `yaml:"enable_metrics"`

	// DashboardIdle is how long a browser's dashboard stays mounted unused
	DashboardIdle time.Duration `yaml:"dashboard_idle_timeout"`

	// ExportLayout is an optional YAML column layout for /export.xlsx
	ExportLayout string `yaml:"export_layout"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:    ":8080",
		Environment:   "development",
		LogFormat:     "json",
		StoreBackend:  "rest",
		AuthBackend:   "gotrue",
		JWTSecret:     defaultJWTSecret,
		JWTIssuer:     "asset-dashboard",
		JWTAudience:   "authenticated",
		JWTExpiry:     24 * time.Hour, // Default to 24 hours
		HTTPTimeout:   10 * time.Second,
		EnableMetrics: true,
		DashboardIdle: 30 * time.Minute,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	config.ListenAddr = getEnv("LISTEN_ADDR", config.ListenAddr)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.SupabaseURL = getEnv("SUPABASE_URL", config.SupabaseURL)
	config.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", config.SupabaseAnonKey)
	config.SupabaseJWTSecret = getEnv("SUPABASE_JWT_SECRET", config.SupabaseJWTSecret)
	config.StoreBackend = getEnv("STORE_BACKEND", config.StoreBackend)
	config.DBDSN = getEnv("DB_DSN", config.DBDSN)
	config.AuthBackend = getEnv("AUTH_BACKEND", config.AuthBackend)
	config.AdminEmail = getEnv("ADMIN_EMAIL", config.AdminEmail)
	config.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", config.AdminPasswordHash)
	config.JWTSecret = getEnv("JWT_SECRET", config.JWTSecret)
	config.JWTIssuer = getEnv("JWT_ISS", config.JWTIssuer)
	config.JWTAudience = getEnv("JWT_AUD", config.JWTAudience)
	config.SessionKey = getEnv("SESSION_KEY", config.SessionKey)
	config.ExportLayout = getEnv("EXPORT_LAYOUT", config.ExportLayout)

	var err error
	if config.JWTExpiry, err = getDuration("JWT_EXPIRY", config.JWTExpiry); err != nil {
		return nil, err
	}
	if config.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", config.HTTPTimeout); err != nil {
		return nil, err
	}
	if config.DashboardIdle, err = getDuration("DASHBOARD_IDLE_TIMEOUT", config.DashboardIdle); err != nil {
		return nil, err
	}
	if config.CookieSecure, err = getBool("COOKIE_SECURE", config.CookieSecure); err != nil {
		return nil, err
	}
	if config.EnableMetrics, err = getBool("ENABLE_METRICS", config.EnableMetrics); err != nil {
		return nil, err
	}

	config.SupabaseURL = strings.TrimRight(config.SupabaseURL, "/")
	return config, nil
}

// LoadAndValidate loads the configuration and rejects unusable settings
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case "rest":
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the rest store"))
		}
	case "postgres":
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be rest or postgres, got %q", c.StoreBackend))
	}

	switch c.AuthBackend {
	case "gotrue":
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for gotrue auth"))
		}
	case "local":
		if c.AdminEmail == "" || c.AdminPasswordHash == "" {
			errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required for local auth"))
		}
		if err := c.validateJWT(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_BACKEND must be gotrue or local, got %q", c.AuthBackend))
	}

	if c.StoreBackend == "rest" && c.AuthBackend == "local" {
		errs = append(errs, errors.New("the rest store needs gotrue auth for row-level access tokens"))
	}

	if c.SessionKey != "" && len(c.SessionKey) < 32 {
		errs = append(errs, errors.New("SESSION_KEY must be at least 32 characters"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.DashboardIdle < time.Minute {
		errs = append(errs, errors.New("DASHBOARD_IDLE_TIMEOUT must be at least one minute"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func (c *Config) validateJWT() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT_ISS is required")
	}
	if c.JWTAudience == "" {
		return errors.New("JWT_AUD is required")
	}
	if c.JWTExpiry < time.Minute {
		return errors.New("JWT_EXPIRY must be at least one minute")
	}
	if c.JWTExpiry > 30*24*time.Hour {
		return errors.New("JWT_EXPIRY must not exceed 30 days")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
