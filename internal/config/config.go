package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"` // dev | prod
	} `yaml:"log"`
	Store struct {
		// Users selects the user store: memory, redis or postgres.
		Users string `yaml:"users"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Lessons struct {
		TTL string `yaml:"ttl"`
	} `yaml:"lessons"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
}

// Leaderboard holds page size limits for leaderboard queries.
type Leaderboard struct {
	DefaultPageSize int `yaml:"defaultPageSize"`
	WorldPageSize   int `yaml:"worldPageSize"`
	MaxPageSize     int `yaml:"maxPageSize"`
	LiveSize        int `yaml:"liveSize"`
}

// Defaults fills unset leaderboard limits.
func (l Leaderboard) Defaults() Leaderboard {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = 50
	}
	if l.WorldPageSize <= 0 {
		l.WorldPageSize = 20
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = 100
	}
	if l.LiveSize <= 0 {
		l.LiveSize = 10
	}
	return l
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Leaderboard = cfg.Leaderboard.Defaults()
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
