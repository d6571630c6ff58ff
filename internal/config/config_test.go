package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("TRANSITION_MAX_RETRIES", "")
	t.Setenv("STATS_CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "50051", cfg.Server.GRPCPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Tracking.MaxTransitionRetries)
	assert.Equal(t, 10*time.Minute, cfg.Redis.StatsTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
	require.NoError(t, cfg.ValidateConfig())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("STATS_CACHE_TTL", "30s")
	t.Setenv("TRANSITION_MAX_RETRIES", "7")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Redis.StatsTTL)
	assert.Equal(t, 7, cfg.Tracking.MaxTransitionRetries)
	assert.False(t, cfg.Server.AutoMigrate)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "unknown DB_DRIVER",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Tracking.MaxTransitionRetries = -1 },
			wantErr: "TRANSITION_MAX_RETRIES",
		},
		{
			name:    "recipients without smtp host",
			mutate:  func(c *Config) { c.Notify.Recipients = []string{"ops@example.com"} },
			wantErr: "SMTP_HOST",
		},
		{
			name: "recipients with smtp",
			mutate: func(c *Config) {
				c.Notify.Recipients = []string{"ops@example.com"}
				c.Notify.SMTPHost = "mail.example.com"
				c.Notify.FromEmail = "tracker@example.com"
			},
		},
		{
			name:    "bad cron schedule",
			mutate:  func(c *Config) { c.Sweeper.Schedule = "every now and then" },
			wantErr: "OVERDUE_SWEEP_SCHEDULE",
		},
		{
			name:   "sweeper disabled",
			mutate: func(c *Config) { c.Sweeper.Schedule = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.ValidateConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ToDatabaseConfig(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/tracker.db")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()
	require.NoError(t, err)

	dbCfg := cfg.ToDatabaseConfig()
	assert.Equal(t, "sqlite", dbCfg.Driver)
	assert.Equal(t, "/tmp/tracker.db", dbCfg.Path)
	assert.Equal(t, 6543, dbCfg.Port)
	assert.Equal(t, cfg.Database.SSLMode, dbCfg.SSLMode)
}

func TestConfig_ToEmailConfig(t *testing.T) {
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_FROM_EMAIL", "tracker@example.com")
	t.Setenv("ALERT_RECIPIENTS", "lead@example.com, ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"lead@example.com", "ops@example.com"}, cfg.Notify.Recipients)

	ec := cfg.ToEmailConfig()
	assert.Equal(t, "mail.example.com", ec.SMTPHost)
	assert.Equal(t, 587, ec.SMTPPort)
	assert.Equal(t, "tracker@example.com", ec.FromEmail)
	assert.Equal(t, "Task Tracker", ec.FromName)
}
