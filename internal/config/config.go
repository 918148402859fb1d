package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DB          DBConfig          `yaml:"db"`
	Log         LogConfig         `yaml:"log"`
	Agent       AgentConfig       `yaml:"agent"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Editor      EditorConfig      `yaml:"editor"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AgentConfig controls the agent runner subprocess and run defaults.
type AgentConfig struct {
	Command        []string `yaml:"command"`
	Model          string   `yaml:"model"`
	Sandbox        string   `yaml:"sandbox"`
	Approval       string   `yaml:"approval"`
	NetworkAccess  bool     `yaml:"network_access"`
	WebSearch      bool     `yaml:"web_search"`
	MaxConcurrency int64    `yaml:"max_concurrency"`
}

// MaintenanceConfig controls the auto-archive scan. The durations arrive as
// strings in YAML and env and are parsed into the typed fields.
type MaintenanceConfig struct {
	ScanIntervalRaw string `yaml:"scan_interval"`
	ArchiveAfterRaw string `yaml:"archive_after"`

	ScanInterval time.Duration `yaml:"-"`
	ArchiveAfter time.Duration `yaml:"-"`
}

type EditorConfig struct {
	Command string `yaml:"command"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "loom.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Agent: AgentConfig{
			Command:        []string{"codex", "exec", "--json"},
			Sandbox:        "workspace-write",
			Approval:       "never",
			MaxConcurrency: 8,
		},
		Maintenance: MaintenanceConfig{
			ScanIntervalRaw: "10m",
			ArchiveAfterRaw: "168h",
		},
		Editor: EditorConfig{
			Command: "code",
		},
	}

	if path := os.Getenv("LOOM_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("LOOM_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LOOM_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOOM_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("LOOM_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("LOOM_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if cmd := os.Getenv("LOOM_AGENT_COMMAND"); cmd != "" {
		cfg.Agent.Command = strings.Fields(cmd)
	}
	if model := os.Getenv("LOOM_AGENT_MODEL"); model != "" {
		cfg.Agent.Model = model
	}
	if editor := os.Getenv("LOOM_EDITOR_COMMAND"); editor != "" {
		cfg.Editor.Command = editor
	}
	if raw := os.Getenv("LOOM_SCAN_INTERVAL"); raw != "" {
		cfg.Maintenance.ScanIntervalRaw = raw
	}
	if raw := os.Getenv("LOOM_ARCHIVE_AFTER"); raw != "" {
		cfg.Maintenance.ArchiveAfterRaw = raw
	}

	var err error
	cfg.Maintenance.ScanInterval, err = time.ParseDuration(cfg.Maintenance.ScanIntervalRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid scan_interval: %w", err)
	}
	cfg.Maintenance.ArchiveAfter, err = time.ParseDuration(cfg.Maintenance.ArchiveAfterRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid archive_after: %w", err)
	}
	if cfg.Maintenance.ScanInterval <= 0 {
		return Config{}, fmt.Errorf("scan_interval must be positive")
	}
	if cfg.Maintenance.ArchiveAfter <= 0 {
		return Config{}, fmt.Errorf("archive_after must be positive")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
