package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Etsy     EtsyConfig     `yaml:"etsy"`
	Session  SessionConfig  `yaml:"session"`
	Bambu    BambuConfig    `yaml:"bambu"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EtsyConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURI  string        `yaml:"redirect_uri"`
	AuthURL      string        `yaml:"auth_url"`
	TokenURL     string        `yaml:"token_url"`
	APIBaseURL   string        `yaml:"api_base_url"`
	SyncMonths   int           `yaml:"sync_months"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
}

type SessionConfig struct {
	Secret        string        `yaml:"secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

type BambuConfig struct {
	CloudBaseURL string        `yaml:"cloud_base_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	SMTPHost  string        `yaml:"smtp_host"`
	SMTPPort  int           `yaml:"smtp_port"`
	EmailFrom string        `yaml:"email_from"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/j3d.db",
		},
		Etsy: EtsyConfig{
			AuthURL:     "https://www.etsy.com/oauth/connect",
			TokenURL:    "https://api.etsy.com/v3/public/oauth/token",
			APIBaseURL:  "https://api.etsy.com/v3",
			SyncMonths:  6,
			HTTPTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			TokenDuration: 24 * time.Hour,
		},
		Bambu: BambuConfig{
			CloudBaseURL: "https://api.bambulab.com",
			Timeout:      10 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout:  10 * time.Second,
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays J3D_* environment variables on top of the loaded config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("J3D_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("J3D_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("ETSY_CLIENT_ID"); v != "" {
		c.Etsy.ClientID = v
	}
	if v := os.Getenv("ETSY_CLIENT_SECRET"); v != "" {
		c.Etsy.ClientSecret = v
	}
	if v := os.Getenv("ETSY_REDIRECT_URI"); v != "" {
		c.Etsy.RedirectURI = v
	}
	if v := os.Getenv("J3D_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("J3D_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if c.Session.TokenDuration <= 0 {
		return fmt.Errorf("session token duration must be positive")
	}

	if c.Etsy.SyncMonths < 1 {
		return fmt.Errorf("etsy sync months must be at least 1")
	}

	if c.Etsy.HTTPTimeout < 0 {
		return fmt.Errorf("etsy http timeout must be non-negative")
	}

	if c.Bambu.Timeout < 0 {
		return fmt.Errorf("bambu timeout must be non-negative")
	}

	if c.Notify.Timeout < 0 {
		return fmt.Errorf("notify timeout must be non-negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
