// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dukerupert/ministryx/internal/backup"
)

// Config holds startup settings. Settings editable at runtime, such as
// the fiscal-year start month, live in the settings table instead.
type Config struct {
	Port           string        `env:"MINISTRYX_PORT"            envDefault:"8080"`
	DBPath         string        `env:"MINISTRYX_DB_PATH"         envDefault:"ministryx.db"`
	LogLevel       string        `env:"MINISTRYX_LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"MINISTRYX_LOG_FORMAT"      envDefault:"text"`
	SessionTTL     time.Duration `env:"MINISTRYX_SESSION_TTL"     envDefault:"720h"`
	TOTPIssuer     string        `env:"MINISTRYX_TOTP_ISSUER"     envDefault:"MinistryX"`
	PaperSize      string        `env:"MINISTRYX_PAPER_SIZE"      envDefault:"Letter"`
	AllowedOrigins []string      `env:"MINISTRYX_ALLOWED_ORIGINS" envSeparator:","`

	Push   Push   `envPrefix:"MINISTRYX_PUSH_"`
	Backup Backup `envPrefix:"MINISTRYX_BACKUP_"`
}

// Push configures calendar reminders. Reminders are off until both VAPID
// keys are set; `ministryx vapid-keys` prints a fresh pair.
type Push struct {
	VAPIDPublicKey  string        `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"VAPID_PRIVATE_KEY"`
	Subscriber      string        `env:"SUBSCRIBER"   envDefault:"mailto:admin@localhost"`
	ReminderLead    time.Duration `env:"REMINDER_LEAD" envDefault:"1h"`
}

func (p Push) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// Backup configures encrypted uploads to S3-compatible storage.
type Backup struct {
	Endpoint   string        `env:"S3_ENDPOINT"`
	Bucket     string        `env:"S3_BUCKET"`
	Region     string        `env:"S3_REGION"     envDefault:"us-east-1"`
	AccessKey  string        `env:"S3_ACCESS_KEY"`
	SecretKey  string        `env:"S3_SECRET_KEY"`
	Prefix     string        `env:"S3_PREFIX"     envDefault:"ministryx"`
	Passphrase string        `env:"PASSPHRASE"`
	Interval   time.Duration `env:"INTERVAL"      envDefault:"24h"`
	Retention  time.Duration `env:"RETENTION"     envDefault:"720h"`
}

// Manager converts the settings for backup.NewManager.
func (b Backup) Manager() backup.Config {
	return backup.Config(b)
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("MINISTRYX_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.Push.ReminderLead <= 0 {
		return Config{}, fmt.Errorf("MINISTRYX_PUSH_REMINDER_LEAD must be positive, got %s", cfg.Push.ReminderLead)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
