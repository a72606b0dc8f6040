package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageLocal    = "local"
	StorageSQLite   = "sqlite"
	StorageBackend  = "backend"
	StoragePostgres = "postgres"
)

// LocalConfig holds configuration for local daemon mode
type LocalConfig struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Storage   StorageConfig   `yaml:"storage"`
	Backend   BackendConfig   `yaml:"backend"`
	Queue     QueueConfig     `yaml:"queue"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
	// RateLimit is requests per second per learner; 0 disables limiting
	RateLimit int `yaml:"rate_limit"`
}

// StorageConfig selects where courses and progress live
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the data directory for local, or the database file for sqlite
	Path string `yaml:"path,omitempty"`
	// SeedFile is a course catalog JSON loaded into empty local stores
	SeedFile    string `yaml:"seed_file,omitempty"`
	DatabaseURL string `yaml:"-"` // Loaded from secrets.yaml
}

// BackendConfig holds hosted record backend settings
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	ProjectID      string `yaml:"project_id"`
	CourseTable    string `yaml:"course_table"`
	ProgressTable  string `yaml:"progress_table"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PublicKey      string `yaml:"-"` // Loaded from secrets.yaml
}

// QueueConfig holds RabbitMQ settings
type QueueConfig struct {
	Enabled bool   `yaml:"enabled"`
	Workers int    `yaml:"workers"`
	URL     string `yaml:"-"` // Loaded from secrets.yaml
}

// AnalyticsConfig tunes the progress analyzer
type AnalyticsConfig struct {
	DefaultUser   string  `yaml:"default_user"`
	WeakThreshold float64 `yaml:"weak_threshold"`
	RecentLimit   int     `yaml:"recent_limit"`
}

// SecretsConfig holds credentials loaded from secrets.yaml
type SecretsConfig struct {
	BackendPublicKey string `yaml:"backend_public_key,omitempty"`
	DatabaseURL      string `yaml:"database_url,omitempty"`
	RabbitMQURL      string `yaml:"rabbitmq_url,omitempty"`
}

// LearnlensDir returns the path to ~/.learnlens
func LearnlensDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".learnlens"), nil
}

// EnsureLearnlensDir creates ~/.learnlens and subdirectories if they don't exist
func EnsureLearnlensDir() (string, error) {
	dir, err := LearnlensDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:      7433,
			Bind:      "127.0.0.1",
			LogLevel:  "info",
			RateLimit: 20,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
		},
		Backend: BackendConfig{
			CourseTable:    "course",
			ProgressTable:  "progress",
			TimeoutSeconds: 15,
		},
		Queue: QueueConfig{
			Workers: 3,
		},
		Analytics: AnalyticsConfig{
			DefaultUser:   "default",
			WeakThreshold: 70,
			RecentLimit:   3,
		},
	}
}

// Validate reports settings that cannot work together
func (c *LocalConfig) Validate() error {
	var errs []error
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}
	if c.Daemon.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("daemon.rate_limit %d must not be negative", c.Daemon.RateLimit))
	}
	switch c.Storage.Driver {
	case StorageLocal, StorageSQLite:
	case StorageBackend:
		if c.Backend.BaseURL == "" || c.Backend.ProjectID == "" {
			errs = append(errs, errors.New("backend storage requires backend.base_url and backend.project_id"))
		}
		if c.Backend.PublicKey == "" {
			errs = append(errs, errors.New("backend storage requires backend_public_key in secrets.yaml"))
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres storage requires database_url in secrets.yaml"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Queue.Enabled && c.Queue.URL == "" {
		errs = append(errs, errors.New("queue requires rabbitmq_url in secrets.yaml"))
	}
	if c.Analytics.WeakThreshold < 0 || c.Analytics.WeakThreshold > 100 {
		errs = append(errs, fmt.Errorf("analytics.weak_threshold %v out of range", c.Analytics.WeakThreshold))
	}
	return errors.Join(errs...)
}

// DataPath resolves the storage path, defaulting under dir
func (c *LocalConfig) DataPath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == StorageSQLite {
		return filepath.Join(dir, "data", "learnlens.db")
	}
	return filepath.Join(dir, "data")
}

// LoadLocalConfig loads configuration from ~/.learnlens/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := LearnlensDir()
	if err != nil {
		return nil, err
	}
	return loadLocalConfigFrom(dir)
}

func loadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// loadSecrets loads credentials from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	cfg.Backend.PublicKey = secrets.BackendPublicKey
	cfg.Storage.DatabaseURL = secrets.DatabaseURL
	cfg.Queue.URL = secrets.RabbitMQURL
	return nil
}

// SaveLocalConfig saves configuration to ~/.learnlens/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureLearnlensDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves credentials to ~/.learnlens/secrets.yaml
func SaveSecrets(secrets SecretsConfig) error {
	dir, err := EnsureLearnlensDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
