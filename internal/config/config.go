package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	// Platform is the job-matching backend. When base_url is empty the bot
	// runs standalone: the local database keeps the weekly schedule and no
	// busy overlay is shown.
	Platform struct {
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"platform"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Schedule struct {
		DefaultStart string `yaml:"default_start"`
		DefaultEnd   string `yaml:"default_end"`
	} `yaml:"schedule"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/smena.db"
	}
	if cfg.Schedule.DefaultStart == "" {
		cfg.Schedule.DefaultStart = "09:00"
	}
	if cfg.Schedule.DefaultEnd == "" {
		cfg.Schedule.DefaultEnd = "18:00"
	}
	if cfg.Platform.RequestsPerSecond <= 0 {
		cfg.Platform.RequestsPerSecond = 10
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}
