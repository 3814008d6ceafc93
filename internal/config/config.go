package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Timers  map[string]TimerConfig `yaml:"timers"`
	Daemon  DaemonConfig           `yaml:"daemon"`
	Storage StorageConfig          `yaml:"storage"`
	NATS    NATSConfig             `yaml:"nats"`
	Logging LoggingConfig          `yaml:"logging"`
}

// TimerConfig declares a single named timer.
type TimerConfig struct {
	Duration           Duration `yaml:"duration,omitempty"`
	Restore            *bool    `yaml:"restore,omitempty"`              // default true
	RestoreGracePeriod Duration `yaml:"restore_grace_period,omitempty"` // default 0
}

// RestoreEnabled reports whether snapshot restore is enabled for this timer.
func (tc TimerConfig) RestoreEnabled() bool {
	return tc.Restore == nil || *tc.Restore
}

// DaemonConfig holds daemon runtime settings.
type DaemonConfig struct {
	Listen string `yaml:"listen"` // HTTP listen address
}

// StorageConfig holds snapshot persistence settings.
type StorageConfig struct {
	Path          string   `yaml:"path"`           // SQLite database path, ":memory:" allowed
	FlushInterval Duration `yaml:"flush_interval"` // periodic snapshot write interval
}

// NATSConfig holds event bus settings. When disabled, events stay in-process.
type NATSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	URL            string   `yaml:"url"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	PublishTimeout Duration `yaml:"publish_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

const (
	defaultListen         = ":8793"
	defaultStoragePath    = "timerd.db"
	defaultFlushInterval  = 30 * time.Second
	defaultSubjectPrefix  = "timers"
	defaultPublishTimeout = 5 * time.Second
)

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; missing files are fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timers == nil {
		c.Timers = map[string]TimerConfig{}
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = defaultListen
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
	if c.Storage.FlushInterval == 0 {
		c.Storage.FlushInterval = Duration(defaultFlushInterval)
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultSubjectPrefix
	}
	if c.NATS.PublishTimeout == 0 {
		c.NATS.PublishTimeout = Duration(defaultPublishTimeout)
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Validate checks configuration consistency. Duration fields are already
// guaranteed non-negative by the Duration parser.
func (c *Config) Validate() error {
	for id := range c.Timers {
		if id == "" {
			return fmt.Errorf("timer id must not be empty")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is true")
	}
	return nil
}

// TimerIDs returns the configured timer ids in stable order.
func (c *Config) TimerIDs() []string {
	ids := make([]string, 0, len(c.Timers))
	for id := range c.Timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
