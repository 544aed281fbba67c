package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// HTTPConfig controls the browser-facing listener.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// DCSConfig controls the UDP link to the simulation export script.
type DCSConfig struct {
	RecvPort       int    `yaml:"recv_port"`
	SendHost       string `yaml:"send_host"`
	SendPort       int    `yaml:"send_port"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

// JournalConfig controls the compressed traffic journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LogConfig controls structured log sinks.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Severity   string `yaml:"severity"`
}

// GreptimeConfig controls the optional telemetry exporter.
type GreptimeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Config is the root configuration for the bridge process.
type Config struct {
	BridgeID    string         `yaml:"bridge_id"`
	HTTP        HTTPConfig     `yaml:"http"`
	DCS         DCSConfig      `yaml:"dcs"`
	BroadcastMS int            `yaml:"broadcast_ms"`
	Journal     JournalConfig  `yaml:"journal"`
	Log         LogConfig      `yaml:"log"`
	Greptime    GreptimeConfig `yaml:"greptime"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		BridgeID: "samsim-1",
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		DCS: DCSConfig{
			RecvPort:       7777,
			SendHost:       "127.0.0.1",
			SendPort:       7778,
			PollIntervalMS: 10,
		},
		BroadcastMS: 100,
		Journal: JournalConfig{
			Dir: "journal",
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 5,
			Severity:   "info",
		},
		Greptime: GreptimeConfig{
			Endpoint: "127.0.0.1:4001",
			Database: "public",
			Table:    "site_telemetry",
		},
	}
}

// Load reads a YAML config file, validates it against the embedded CUE
// schema, and merges it over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := ValidateWithCUE(path, data); err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return applyEnv(cfg), nil
}

// applyEnv lets a handful of deployment knobs override the file without
// editing it.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("SAMSIM_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SAMSIM_RECV_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DCS.RecvPort = port
		}
	}
	if v := os.Getenv("SAMSIM_SEND_ADDR"); v != "" {
		cfg.DCS.SendHost = v
	}
	if v := os.Getenv("SAMSIM_GREPTIME_ENDPOINT"); v != "" {
		cfg.Greptime.Endpoint = v
		cfg.Greptime.Enabled = true
	}
	return cfg
}

// PollInterval converts the configured poll cadence into a duration.
func (c DCSConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// SendAddr formats the simulation command endpoint.
func (c DCSConfig) SendAddr() string {
	return fmt.Sprintf("%s:%d", c.SendHost, c.SendPort)
}

// BroadcastInterval converts the configured fan-out cadence into a duration.
func (c Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastMS) * time.Millisecond
}
