package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the receiving portal.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	BcryptCost int

	TokenTTL        time.Duration
	LockoutDuration time.Duration
	FailedThreshold int

	MaxDBConns int

	ServiceLayerURL      string
	CompanyDB            string
	ServiceLayerUser     string
	ServiceLayerPassword string
	VerifyTLS            bool
	CABundlePath         string
	SessionMaxAge        time.Duration
	ERPReadTimeout       time.Duration
	ERPWriteTimeout      time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay
// internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	ServiceLayer struct {
		URL       string `yaml:"url"`
		CompanyDB string `yaml:"company_db"`
		VerifyTLS *bool  `yaml:"verify_tls"`
		CABundle  string `yaml:"ca_bundle"`
	} `yaml:"service_layer"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:       "entradas-app",
		HTTPPort:        8080,
		BcryptCost:      12,
		TokenTTL:        8 * time.Hour,
		LockoutDuration: 30 * time.Minute,
		FailedThreshold: 5,
		MaxDBConns:      20,
		VerifyTLS:       true,
		SessionMaxAge:   25 * time.Minute,
		ERPReadTimeout:  30 * time.Second,
		ERPWriteTimeout: 60 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.ServiceLayer.URL != "" {
			cfg.ServiceLayerURL = f.ServiceLayer.URL
		}
		if f.ServiceLayer.CompanyDB != "" {
			cfg.CompanyDB = f.ServiceLayer.CompanyDB
		}
		if f.ServiceLayer.VerifyTLS != nil {
			cfg.VerifyTLS = *f.ServiceLayer.VerifyTLS
		}
		if f.ServiceLayer.CABundle != "" {
			cfg.CABundlePath = f.ServiceLayer.CABundle
		}
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)

	cfg.ServiceLayerURL = envOrDefault("SERVICE_LAYER_URL", cfg.ServiceLayerURL)
	cfg.CompanyDB = envOrDefault("COMPANY_DB", cfg.CompanyDB)
	cfg.ServiceLayerUser = envOrDefault("SL_USER", cfg.ServiceLayerUser)
	cfg.ServiceLayerPassword = envOrDefault("SL_PASSWORD", cfg.ServiceLayerPassword)
	cfg.VerifyTLS = envBool("SAP_SL_VERIFY_SSL", cfg.VerifyTLS)
	cfg.CABundlePath = envOrDefault("SAP_SL_CA_BUNDLE", cfg.CABundlePath)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)

	cfg.TokenTTL = time.Duration(envInt("TOKEN_EXPIRY_HOURS", int(cfg.TokenTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.SessionMaxAge = time.Duration(envInt("SL_SESSION_MAX_AGE_MINUTES", int(cfg.SessionMaxAge.Minutes()))) * time.Minute
	cfg.ERPReadTimeout = time.Duration(envInt("SL_READ_TIMEOUT_SECONDS", int(cfg.ERPReadTimeout.Seconds()))) * time.Second
	cfg.ERPWriteTimeout = time.Duration(envInt("SL_WRITE_TIMEOUT_SECONDS", int(cfg.ERPWriteTimeout.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.ServiceLayerURL == "" {
		return Config{}, fmt.Errorf("missing SERVICE_LAYER_URL")
	}
	if cfg.CompanyDB == "" || cfg.ServiceLayerUser == "" || cfg.ServiceLayerPassword == "" {
		return Config{}, fmt.Errorf("missing COMPANY_DB, SL_USER or SL_PASSWORD")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
