package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bounds for the shutdown notice delay. A value outside this range is a
// fatal configuration error, not something to clamp silently.
const (
	MinShutdownNoticeDelayMS = 0
	MaxShutdownNoticeDelayMS = 30000
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server" json:"server"`
	HTTP          HTTPConfig         `yaml:"http" json:"http"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
	Audit         AuditConfig        `yaml:"audit" json:"audit"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Schedule      ScheduleConfig     `yaml:"schedule" json:"schedule"`
}

// ServerConfig describes the supervised game server process
type ServerConfig struct {
	// BinPath is the directory that holds the server runtime (binary,
	// loader shim and bundled libraries).
	BinPath string `yaml:"bin_path" json:"bin_path"`

	// DataPath is the server data directory the process runs against.
	DataPath string `yaml:"data_path" json:"data_path"`

	// CfgPath is the server's textual config file, validated before spawn.
	CfgPath string `yaml:"cfg_path" json:"cfg_path"`

	StartupArgs []string `yaml:"startup_args" json:"startup_args"`

	// ShutdownNoticeDelayMS is how long connected clients are warned before
	// the process is terminated. Must be within 0-30000.
	ShutdownNoticeDelayMS int `yaml:"shutdown_notice_delay_ms" json:"shutdown_notice_delay_ms"`

	// RestartSpawnDelayMS is the pause between kill and respawn on restart.
	RestartSpawnDelayMS int `yaml:"restart_spawn_delay_ms" json:"restart_spawn_delay_ms"`

	AutoStart    bool `yaml:"auto_start" json:"auto_start"`
	WatchCfgFile bool `yaml:"watch_cfg_file" json:"watch_cfg_file"`

	// MutableConvars are convars declared safe to push to a running server
	// without a full restart.
	MutableConvars map[string]string `yaml:"mutable_convars" json:"mutable_convars"`

	// ConsoleLogDir receives timestamped console log files.
	ConsoleLogDir string `yaml:"console_log_dir" json:"console_log_dir"`

	// ConsoleBufferLines is the size of the in-memory console ring buffer.
	ConsoleBufferLines int `yaml:"console_buffer_lines" json:"console_buffer_lines"`
}

// HTTPConfig contains the read-only status surface settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// AuditConfig contains the command audit trail settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NotificationConfig contains outbound announcement settings
type NotificationConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// ScheduleConfig contains scheduled restart settings
type ScheduleConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Restarts []string `yaml:"restarts" json:"restarts"` // cron expressions
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := Defaults()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = resolveConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	if binPath := os.Getenv("SERVER_BIN_PATH"); binPath != "" {
		cfg.Server.BinPath = binPath
	}

	if dataPath := os.Getenv("SERVER_DATA_PATH"); dataPath != "" {
		cfg.Server.DataPath = dataPath
	}

	if cfgPath := os.Getenv("SERVER_CFG_PATH"); cfgPath != "" {
		cfg.Server.CfgPath = cfgPath
	}

	if auditPath := os.Getenv("AUDIT_DB_PATH"); auditPath != "" {
		cfg.Audit.Path = auditPath
	}

	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		cfg.Notifications.WebhookURL = webhookURL
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	cfg.normalizePaths(configPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Defaults returns the built-in default configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			StartupArgs:           []string{},
			ShutdownNoticeDelayMS: 5000,
			RestartSpawnDelayMS:   500,
			AutoStart:             false,
			WatchCfgFile:          false,
			MutableConvars:        map[string]string{},
			ConsoleLogDir:         "./data/logs",
			ConsoleBufferLines:    1000,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    40120,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			File:       "",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    "./data/audit.db",
		},
		Notifications: NotificationConfig{},
		Schedule:      ScheduleConfig{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.ShutdownNoticeDelayMS < MinShutdownNoticeDelayMS ||
		c.Server.ShutdownNoticeDelayMS > MaxShutdownNoticeDelayMS {
		return fmt.Errorf("shutdown_notice_delay_ms must be between %d and %d, got %d",
			MinShutdownNoticeDelayMS, MaxShutdownNoticeDelayMS, c.Server.ShutdownNoticeDelayMS)
	}

	if c.Server.RestartSpawnDelayMS < 0 {
		return fmt.Errorf("restart_spawn_delay_ms must not be negative")
	}

	if c.Server.ConsoleBufferLines <= 0 {
		return fmt.Errorf("console_buffer_lines must be positive")
	}

	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http port %d is out of range", c.HTTP.Port)
	}

	return nil
}

func resolveConfigPath() string {
	candidates := []string{"../configs/config.yaml", "./configs/config.yaml"}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "./configs/config.yaml"
}

// GetConfigPath returns the resolved config path
func GetConfigPath() string {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = resolveConfigPath()
	}
	return configPath
}

// Save writes the configuration back to disk
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths(configPath string) {
	baseDir := filepath.Dir(configPath)
	if !filepath.IsAbs(baseDir) {
		if absBase, err := filepath.Abs(baseDir); err == nil {
			baseDir = absBase
		}
	}

	rootDir := baseDir
	if filepath.Base(baseDir) == "configs" {
		rootDir = filepath.Dir(baseDir)
	}

	resolvePath := func(value string) string {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return ""
		}
		if filepath.IsAbs(trimmed) {
			return filepath.Clean(trimmed)
		}
		return filepath.Clean(filepath.Join(rootDir, trimmed))
	}

	c.Server.BinPath = resolvePath(c.Server.BinPath)
	c.Server.DataPath = resolvePath(c.Server.DataPath)
	c.Server.CfgPath = resolvePath(c.Server.CfgPath)
	c.Server.ConsoleLogDir = resolvePath(c.Server.ConsoleLogDir)
	c.Audit.Path = resolvePath(c.Audit.Path)
	c.Logging.File = resolvePath(c.Logging.File)
}
