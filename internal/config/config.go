// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr      string `env:"PENNYJAR_ADDR" envDefault:":8080"`
	DBPath    string `env:"PENNYJAR_DB_PATH" envDefault:"pennyjar.db"`
	LogLevel  string `env:"PENNYJAR_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PENNYJAR_LOG_FORMAT" envDefault:"text"`

	// Web push. Notifications are disabled when the VAPID keys are empty.
	VAPIDPublicKey  string `env:"PENNYJAR_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"PENNYJAR_VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"PENNYJAR_VAPID_SUBJECT" envDefault:"mailto:admin@localhost"`

	// Off-site backups. Disabled unless a bucket is configured.
	Backup BackupConfig `envPrefix:"PENNYJAR_BACKUP_"`
}

type BackupConfig struct {
	Bucket     string `env:"BUCKET"`
	Endpoint   string `env:"ENDPOINT"`
	Region     string `env:"REGION" envDefault:"auto"`
	AccessKey  string `env:"ACCESS_KEY"`
	SecretKey  string `env:"SECRET_KEY"`
	Passphrase string `env:"PASSPHRASE"`
	Interval   string `env:"INTERVAL" envDefault:"24h"`
}

// Enabled reports whether enough of the backup settings are present to run.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != "" && b.Passphrase != ""
}

// Load parses configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
