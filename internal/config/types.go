package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the daemon configuration. Files may be JSON or YAML; YAML is
// coerced to JSON before strict decoding (see yaml.go).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Store     StoreConfig     `json:"store"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	HTTP      HTTPConfig      `json:"http"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type StoreConfig struct {
	// Path of the JSON task store file.
	Path string `json:"path,omitempty"`
}

type SchedulerConfig struct {
	// TickInterval is how often the loop wakes up. Evaluation still happens
	// at most once per calendar minute.
	TickInterval string `json:"tick_interval,omitempty"`

	// Timezone is an IANA name, e.g. "Asia/Jakarta". Empty means local.
	Timezone string `json:"timezone,omitempty"`
}

// StorageConfig controls the optional execution audit trail.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // none | file | sqlite
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type HTTPConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Listen  string `json:"listen,omitempty"`
}

// Defaults fills zero values in place.
func (c *Config) Defaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Console == nil {
		t := true
		c.Logging.Console = &t
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = "./data/cronpilot.json"
	}
	if strings.TrimSpace(c.Scheduler.TickInterval) == "" {
		c.Scheduler.TickInterval = "10s"
	}
	if c.HTTP.Enabled == nil {
		t := true
		c.HTTP.Enabled = &t
	}
	if strings.TrimSpace(c.HTTP.Listen) == "" {
		c.HTTP.Listen = "127.0.0.1:8320"
	}
}

// Validate rejects configs that cannot be applied.
func (c *Config) Validate() error {
	if _, err := ParseDurationOrDefault("scheduler.tick_interval", c.Scheduler.TickInterval, 10*time.Second); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: unknown timezone %q", tz)
		}
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
