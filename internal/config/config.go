// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/pkg/email"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Tracking TrackingConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Sweeper  SweeperConfig
	Notify   NotifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	GRPCPort         string
	HTTPPort         string
	Environment      string
	AutoMigrate      bool
	EnableReflection bool
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// TrackingConfig tunes the lifecycle state machine.
type TrackingConfig struct {
	MaxTransitionRetries int
	MaxReasonLength      int
	MaxCommentLength     int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StatsTTL time.Duration
}

type SweeperConfig struct {
	Schedule string
}

// NotifyConfig configures attention emails. Notifications are off while
// Recipients is empty.
type NotifyConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	Recipients   []string
}

type LogConfig struct {
	Level string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			GRPCPort:         getEnv("GRPC_PORT", "50051"),
			HTTPPort:         getEnv("HTTP_PORT", "8080"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			AutoMigrate:      getEnvAsBool("AUTO_MIGRATE", true),
			EnableReflection: getEnvAsBool("ENABLE_REFLECTION", false),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", DriverPostgres),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tasktimer"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Path:     getEnv("DB_PATH", "tasktimer.db"),
		},
		Tracking: TrackingConfig{
			MaxTransitionRetries: getEnvAsInt("TRANSITION_MAX_RETRIES", 3),
			MaxReasonLength:      getEnvAsInt("MAX_REASON_LENGTH", 255),
			MaxCommentLength:     getEnvAsInt("MAX_COMMENT_LENGTH", 2000),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "task-lifecycle"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			StatsTTL: getEnvAsDuration("STATS_CACHE_TTL", 10*time.Minute),
		},
		Sweeper: SweeperConfig{
			Schedule: getEnv("OVERDUE_SWEEP_SCHEDULE", "@every 5m"),
		},
		Notify: NotifyConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("SMTP_FROM_EMAIL", ""),
			FromName:     getEnv("SMTP_FROM_NAME", "Task Tracker"),
			Recipients:   splitCSV(getEnv("ALERT_RECIPIENTS", "")),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// ValidateConfig rejects settings the server cannot start with.
func (c *Config) ValidateConfig() error {
	var problems []string

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "postgres requires DB_HOST and DB_NAME")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "sqlite requires DB_PATH")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	if c.Server.GRPCPort == "" {
		problems = append(problems, "GRPC_PORT must be set")
	}
	if c.Tracking.MaxTransitionRetries < 0 {
		problems = append(problems, "TRANSITION_MAX_RETRIES must not be negative")
	}
	if c.Tracking.MaxReasonLength <= 0 || c.Tracking.MaxCommentLength <= 0 {
		problems = append(problems, "reason and comment length limits must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		problems = append(problems, "KAFKA_TOPIC must be set when KAFKA_BROKERS is")
	}
	if len(c.Notify.Recipients) > 0 && (c.Notify.SMTPHost == "" || c.Notify.FromEmail == "") {
		problems = append(problems, "SMTP_HOST and SMTP_FROM_EMAIL must be set when ALERT_RECIPIENTS is")
	}
	if c.Sweeper.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid OVERDUE_SWEEP_SCHEDULE: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ToDatabaseConfig converts the database section for database.Open.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
	}
}

// ToEmailConfig converts the notify section for email.NewSMTPSender.
func (c *Config) ToEmailConfig() *email.Config {
	return &email.Config{
		SMTPHost:     c.Notify.SMTPHost,
		SMTPPort:     c.Notify.SMTPPort,
		SMTPUsername: c.Notify.SMTPUsername,
		SMTPPassword: c.Notify.SMTPPassword,
		FromEmail:    c.Notify.FromEmail,
		FromName:     c.Notify.FromName,
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}

func splitCSV(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
