package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers understood by pkg/database.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Submission ordering policies.
const (
	PolicyConsumeFirst  = "consume_first"
	PolicyValidateFirst = "validate_first"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Admin      AdminConfig
	CORS       CORSConfig
	Log        LogConfig
	Survey     SurveyConfig
	Submission SubmissionConfig
	Tokens     TokenConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles the Redis-backed summary cache.
type CacheConfig struct {
	Enabled    bool
	SummaryTTL time.Duration
}

// AdminConfig holds the single admin credential and session settings.
type AdminConfig struct {
	Password          string
	PasswordHash      string
	SessionSecret     string
	SessionExpiration time.Duration
	SessionCookie     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SurveyConfig points at the YAML survey catalog.
type SurveyConfig struct {
	CatalogPath string
}

// SubmissionConfig tunes the feedback submission workflow.
type SubmissionConfig struct {
	Policy           string
	MaxCommentLength int
}

// TokenConfig governs token generation defaults.
type TokenConfig struct {
	Length   int
	MaxBatch int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("CACHE_ENABLED"),
		SummaryTTL: parseDuration(v.GetString("SUMMARY_CACHE_TTL"), time.Minute),
	}

	cfg.Admin = AdminConfig{
		Password:          v.GetString("ADMIN_PASSWORD"),
		PasswordHash:      v.GetString("ADMIN_PASSWORD_HASH"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionExpiration: parseDuration(v.GetString("SESSION_EXPIRATION"), 8*time.Hour),
		SessionCookie:     v.GetString("SESSION_COOKIE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Survey = SurveyConfig{CatalogPath: v.GetString("SURVEY_CATALOG_PATH")}

	policy := strings.ToLower(v.GetString("SUBMISSION_POLICY"))
	if policy != PolicyValidateFirst {
		policy = PolicyConsumeFirst
	}
	cfg.Submission = SubmissionConfig{
		Policy:           policy,
		MaxCommentLength: v.GetInt("MAX_COMMENT_LENGTH"),
	}

	cfg.Tokens = TokenConfig{
		Length:   v.GetInt("TOKEN_LENGTH"),
		MaxBatch: v.GetInt("TOKEN_MAX_BATCH"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "feedback")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_PATH", "./feedback.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("SUMMARY_CACHE_TTL", "1m")

	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_EXPIRATION", "8h")
	v.SetDefault("SESSION_COOKIE", "admin_session")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SURVEY_CATALOG_PATH", "")
	v.SetDefault("SUBMISSION_POLICY", PolicyConsumeFirst)
	v.SetDefault("MAX_COMMENT_LENGTH", 2000)

	v.SetDefault("TOKEN_LENGTH", 6)
	v.SetDefault("TOKEN_MAX_BATCH", 1000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
