package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by LoadFromDir.
const FileName = "pagecraft.yaml"

// Config represents the pagecraft configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Editor  EditorConfig  `yaml:"editor"`
	Presets PresetsConfig `yaml:"presets"`
	API     *APIConfig    `yaml:"api,omitempty"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// EditorConfig tunes the editing session.
type EditorConfig struct {
	HistoryLimit    int    `yaml:"history_limit,omitempty"`     // Undo depth (default: 100)
	AutoExpandDelay string `yaml:"auto_expand_delay,omitempty"` // Hover time before a collapsed block opens during drag (default: 500ms)
}

// PresetsConfig points at an optional directory of preset YAML files.
type PresetsConfig struct {
	Dir   string `yaml:"dir,omitempty"`
	Watch bool   `yaml:"watch"`
}

// APIConfig holds HTTP and websocket API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 10)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 20)
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format,omitempty"` // console or json (default: console)
	File   string `yaml:"file,omitempty"`
}

// GetHistoryLimit returns the undo depth (default: 100)
func (c EditorConfig) GetHistoryLimit() int {
	if c.HistoryLimit <= 0 {
		return 100
	}
	return c.HistoryLimit
}

// GetAutoExpandDelay returns the parsed auto-expand delay (default: 500ms)
func (c EditorConfig) GetAutoExpandDelay() time.Duration {
	if c.AutoExpandDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.AutoExpandDelay)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// Addr returns host:port for the HTTP listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Editor: EditorConfig{
			HistoryLimit:    100,
			AutoExpandDelay: "500ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks values the getters cannot default.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Editor.AutoExpandDelay != "" {
		if _, err := time.ParseDuration(c.Editor.AutoExpandDelay); err != nil {
			return fmt.Errorf("editor.auto_expand_delay: %w", err)
		}
	}
	if c.Presets.Watch && c.Presets.Dir == "" {
		return fmt.Errorf("presets.watch requires presets.dir")
	}
	return nil
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative preset dirs are resolved against the config file
	if config.Presets.Dir != "" && !filepath.IsAbs(config.Presets.Dir) {
		config.Presets.Dir = filepath.Join(filepath.Dir(configPath), config.Presets.Dir)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// LoadFromDir looks for pagecraft.yaml in the given directory
// If none is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
