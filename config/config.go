// Package config loads process configuration from the environment.
// Business settings (working hours, payroll, tax brackets) are not here:
// they are data, stored through the factory package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/mailer"
)

type Config struct {
	Port              string
	DBPath            string
	LogLevel          string
	LogFormat         string // text, json
	BatchConcurrency  int
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	EmailEnabled      bool
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	EmailFrom         string
	CORSOrigins       []string
}

// Load reads a .env file when present, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "./data/payroll.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 4),
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),
		EmailEnabled:      getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "payroll@example.com"),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a number, got %q", c.Port)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if c.SchedulerInterval < time.Minute {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1m")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}

// Mailer returns the SMTP settings.
func (c Config) Mailer() mailer.Config {
	return mailer.Config{
		Enabled:  c.EmailEnabled,
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.EmailFrom,
	}
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
