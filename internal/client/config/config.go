// Package config - конфигурация клиента: YAML-файл, переменные окружения,
// отслеживание изменений файла.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/merge"
)

// Переменные окружения
const (
	EnvPassword  = "DOCSYNC_PASSWORD"
	EnvRemoteURL = "DOCSYNC_REMOTE_URL"
)

// ErrInvalidConfig помечает ошибки Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config - настройки клиента
type Config struct {
	RemoteURL          string           `yaml:"remote_url" json:"remote_url"`
	DBPath             string           `yaml:"db_path" json:"db_path"`
	LogLevel           string           `yaml:"log_level" json:"log_level"`
	Credentials        auth.Credentials `yaml:"credentials" json:"credentials"`
	Merge              merge.Options    `yaml:"merge" json:"merge"`
	HeartbeatMs        int              `yaml:"heartbeat_ms" json:"heartbeat_ms"`
	RetryTimeoutMs     int              `yaml:"retry_timeout_ms" json:"retry_timeout_ms"`
	BackoffBaseMs      int              `yaml:"backoff_base_ms" json:"backoff_base_ms"`
	BackoffMaxMs       int              `yaml:"backoff_max_ms" json:"backoff_max_ms"`
	BatchSize          int              `yaml:"batch_size" json:"batch_size"`
	ProbeIntervalMs    int              `yaml:"probe_interval_ms" json:"probe_interval_ms"`
	MaxResolveAttempts int              `yaml:"max_resolve_attempts" json:"max_resolve_attempts"`
	SyncEnabled        bool             `yaml:"sync_enabled" json:"sync_enabled"`
	AutoMergeComposite bool             `yaml:"auto_merge_composite" json:"auto_merge_composite"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		DBPath:             "docsync.db",
		LogLevel:           "info",
		Merge:              merge.DefaultOptions(),
		HeartbeatMs:        int(replication.DefaultHeartbeat / time.Millisecond),
		RetryTimeoutMs:     int(replication.DefaultRetryTimeout / time.Millisecond),
		BackoffBaseMs:      int(replication.DefaultBackoffBase / time.Millisecond),
		BackoffMaxMs:       int(replication.DefaultBackoffMax / time.Millisecond),
		BatchSize:          replication.DefaultBatchSize,
		ProbeIntervalMs:    5000,
		MaxResolveAttempts: 5,
	}
}

// Load читает path поверх значений по умолчанию, затем применяет окружение.
// Отсутствующий файл - не ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Файла нет - значения по умолчанию
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			// Относительный путь к базе - от каталога конфига
			if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
				cfg.DBPath = filepath.Join(filepath.Dir(path), cfg.DBPath)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPassword); v != "" {
		c.Credentials.Password = v
	}
	if v := os.Getenv(EnvRemoteURL); v != "" {
		c.RemoteURL = v
	}
}

// Validate checks ranges and the remote URL
func (c *Config) Validate() error {
	var errs []error

	if c.RemoteURL != "" {
		u, err := url.Parse(c.RemoteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("remote_url must be an http(s) URL, got %q", c.RemoteURL))
		}
	}
	if c.SyncEnabled && c.RemoteURL == "" {
		errs = append(errs, errors.New("sync_enabled requires remote_url"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	for name, v := range map[string]int{
		"heartbeat_ms":         c.HeartbeatMs,
		"retry_timeout_ms":     c.RetryTimeoutMs,
		"backoff_base_ms":      c.BackoffBaseMs,
		"backoff_max_ms":       c.BackoffMaxMs,
		"batch_size":           c.BatchSize,
		"probe_interval_ms":    c.ProbeIntervalMs,
		"max_resolve_attempts": c.MaxResolveAttempts,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.BatchSize > replication.MaxBatchSize {
		errs = append(errs, fmt.Errorf("batch_size must not exceed %d, got %d", replication.MaxBatchSize, c.BatchSize))
	}
	if c.BackoffMaxMs < c.BackoffBaseMs {
		errs = append(errs, errors.New("backoff_max_ms must not be less than backoff_base_ms"))
	}

	m := c.Merge
	if m.HeavyMaxShortLines < 0 || m.HeavyLengthRatio < 0 {
		errs = append(errs, errors.New("merge thresholds cannot be negative"))
	}
	if m.HeavyCoverage < 0 || m.HeavyCoverage > 1 || m.PrefixCoverage < 0 || m.PrefixCoverage > 1 {
		errs = append(errs, errors.New("merge coverage thresholds must be within [0, 1]"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ReplicationOptions converts the millisecond settings
func (c *Config) ReplicationOptions() replication.Options {
	return replication.Options{
		Heartbeat:    time.Duration(c.HeartbeatMs) * time.Millisecond,
		RetryTimeout: time.Duration(c.RetryTimeoutMs) * time.Millisecond,
		BackoffBase:  time.Duration(c.BackoffBaseMs) * time.Millisecond,
		BackoffMax:   time.Duration(c.BackoffMaxMs) * time.Millisecond,
		BatchSize:    c.BatchSize,
	}
}

// ProbeInterval период проверки доступности сервера
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMs) * time.Millisecond
}

// Level returns the slog level for LogLevel
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}

// Save записывает конфиг в YAML. Пароль не сохраняется.
func (c *Config) Save(path string) error {
	out := *c
	out.Credentials.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
