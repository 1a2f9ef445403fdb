package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"StockDesk/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	FireAnt struct {
		AuthURL string  `yaml:"auth_url"`
		APIURL  string  `yaml:"api_url"`
		BaseURL string  `yaml:"base_url"`
		RPS     float64 `yaml:"rps"` // client-side rate limit, requests/second
	} `yaml:"fireant"`
	Gemini struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"gemini"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		AlertCron string `yaml:"alert_cron"`
	} `yaml:"schedule"`
	Log   logger.Options `yaml:"log"`
	Proxy string         `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FIREANT_AUTH_URL"); v != "" {
		cfg.FireAnt.AuthURL = v
	}
	if v := os.Getenv("FIREANT_API_URL"); v != "" {
		cfg.FireAnt.APIURL = v
	}
	if v := os.Getenv("FIREANT_BASE_URL"); v != "" {
		cfg.FireAnt.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ALERT_CRON"); v != "" {
		cfg.Schedule.AlertCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.FireAnt.RPS == 0 {
		cfg.FireAnt.RPS = 5
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stockdesk.db"
	}
	if cfg.Schedule.AlertCron == "" {
		// every 15 minutes during HOSE trading hours, Mon-Fri
		cfg.Schedule.AlertCron = "0 */15 9-15 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.FireAnt.AuthURL == "" {
		return fmt.Errorf("fireant.auth_url is required")
	}
	if c.FireAnt.APIURL == "" {
		return fmt.Errorf("fireant.api_url is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	return nil
}
