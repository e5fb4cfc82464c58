package config

import (
	"os"
	"time"

	"academy-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For is honoured.
		TrustedProxies []string `yaml:"trustedProxies"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bank struct {
		// Dir holds quiz_data_{id}.json files; empty uses Postgres or the built-in sample.
		Dir string `yaml:"dir"`
		// TTL of cached banks; "0s" caches until restart on both backends.
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Quiz struct {
		QuestionBudget string `yaml:"questionBudget"`
		IdleAfter      string `yaml:"idleAfter"`
	} `yaml:"quiz"`
	Session struct {
		PINTTL       string `yaml:"pinTTL"`
		PollInterval string `yaml:"pollInterval"`
		StaleAfter   string `yaml:"staleAfter"`
	} `yaml:"session"`
	Auth struct {
		Username       string `yaml:"username"`
		Password       string `yaml:"password"`
		MaxAttempts    int    `yaml:"maxAttempts"`
		Lockout        string `yaml:"lockout"`
		SessionTimeout string `yaml:"sessionTimeout"`
		SessionMode    string `yaml:"sessionMode"`
		TOTPSkew       uint   `yaml:"totpSkew"`
		Issuer         string `yaml:"issuer"`
		AccessLogLimit int    `yaml:"accessLogLimit"`
	} `yaml:"auth"`
	Leaderboard struct {
		// Store is memory, redis or postgres; empty picks redis when configured.
		Store string `yaml:"store"`
	} `yaml:"leaderboard"`
	Disciplines []domain.Discipline `yaml:"disciplines"`
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
	return cfg, nil
}

// LeaderboardStore resolves the configured leaderboard backend.
func (c Config) LeaderboardStore() string {
	switch c.Leaderboard.Store {
	case "memory", "redis", "postgres":
		return c.Leaderboard.Store
	}
	if c.Redis.Addr != "" {
		return "redis"
	}
	return "memory"
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
