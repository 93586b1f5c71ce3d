// Package config loads the application settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config holds every setting of the booking tool.
type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"prod" validate:"oneof=local dev prod"`
	DataDir      string `yaml:"data_dir" env:"DATA_DIR" env-default:"." validate:"required"`
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
	Log          Log    `yaml:"log"`
	Rooms        Rooms  `yaml:"rooms"`
	OTP          OTP    `yaml:"otp"`
	SMTP         SMTP   `yaml:"smtp"`
	Mail         Mail   `yaml:"mail"`
}

// Log selects where logs are written; empty means <data_dir>/meeting-rooms.log.
type Log struct {
	File string `yaml:"file" env:"LOG_FILE"`
}

// Rooms sizes the pool. A rejected booking takes its room off offer unless
// KeepOnConflict is set.
type Rooms struct {
	Count          int  `yaml:"count" env:"ROOMS_COUNT" env-default:"10" validate:"min=1,max=1000"`
	KeepOnConflict bool `yaml:"keep_on_conflict" env:"ROOMS_KEEP_ON_CONFLICT"`
}

type OTP struct {
	Length int           `yaml:"length" env:"OTP_LENGTH" env-default:"6" validate:"min=4,max=12"`
	TTL    time.Duration `yaml:"ttl" env:"OTP_TTL" env-default:"10m" validate:"gt=0"`
}

// SMTP describes the outgoing mail server. An empty Host disables delivery and
// messages are written to the log instead.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" validate:"omitempty,email"`
}

type Mail struct {
	Timeout       time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT" env-default:"15s" validate:"gt=0"`
	RatePerMinute int           `yaml:"rate_per_minute" env:"MAIL_RATE_PER_MINUTE" env-default:"30" validate:"min=1"`
}

// Load reads path when it is set (falling back to CONFIG_PATH), otherwise only
// the environment, then fills derived defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "meeting_rooms.db")
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, "meeting-rooms.log")
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MailEnabled reports whether an SMTP server is configured.
func (c *Config) MailEnabled() bool { return c.SMTP.Host != "" }
