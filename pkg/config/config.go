package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Agenda     AgendaConfig
	Mail       MailConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig holds calendar rules shared by the expander, allocator and credit manager.
type SchedulingConfig struct {
	Timezone            string
	SummerSeasonEnd     string
	DefaultTimeBlocks   []string
	WindowBackMonths    int
	WindowForwardMonths int
}

// AgendaConfig tunes the agenda aggregator and its optional cache.
type AgendaConfig struct {
	DefaultDays  int
	MaxDays      int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MailConfig selects the email provider and the retry queue for failed sends.
type MailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	RetryWorkers   int
	RetryAttempts  int
	RetryDelay     time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		Timezone:            v.GetString("TIMEZONE"),
		SummerSeasonEnd:     v.GetString("SUMMER_SEASON_END"),
		DefaultTimeBlocks:   splitAndTrim(v.GetString("DEFAULT_TIME_BLOCKS")),
		WindowBackMonths:    v.GetInt("WINDOW_BACK_MONTHS"),
		WindowForwardMonths: v.GetInt("WINDOW_FORWARD_MONTHS"),
	}

	cfg.Agenda = AgendaConfig{
		DefaultDays:  v.GetInt("AGENDA_DEFAULT_DAYS"),
		MaxDays:      v.GetInt("AGENDA_MAX_DAYS"),
		CacheEnabled: v.GetBool("ENABLE_AGENDA_CACHE"),
		CacheTTL:     parseDuration(v.GetString("AGENDA_CACHE_TTL"), time.Minute),
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromEmail:      v.GetString("MAIL_FROM"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		RetryWorkers:   v.GetInt("MAIL_RETRY_WORKERS"),
		RetryAttempts:  v.GetInt("MAIL_RETRY_ATTEMPTS"),
		RetryDelay:     parseDuration(v.GetString("MAIL_RETRY_DELAY"), 30*time.Second),
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c SchedulingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "taller_agenda")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMEZONE", "America/Lima")
	v.SetDefault("SUMMER_SEASON_END", "2026-02-28")
	v.SetDefault("DEFAULT_TIME_BLOCKS", "16:00-17:20,17:30-18:50,19:00-20:20")
	v.SetDefault("WINDOW_BACK_MONTHS", 1)
	v.SetDefault("WINDOW_FORWARD_MONTHS", 2)

	v.SetDefault("AGENDA_DEFAULT_DAYS", 8)
	v.SetDefault("AGENDA_MAX_DAYS", 62)
	v.SetDefault("ENABLE_AGENDA_CACHE", false)
	v.SetDefault("AGENDA_CACHE_TTL", "1m")

	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM", "no-reply@taller.local")
	v.SetDefault("MAIL_FROM_NAME", "Taller de Arte")
	v.SetDefault("MAIL_RETRY_WORKERS", 1)
	v.SetDefault("MAIL_RETRY_ATTEMPTS", 3)
	v.SetDefault("MAIL_RETRY_DELAY", "30s")
}

func isMissingFile(err error) bool {
	return errors.Is(err, os.ErrNotExist)
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
