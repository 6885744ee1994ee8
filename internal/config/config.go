package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type LogConfig struct {
	Level   string
	Format  string
	Console bool
	ToFile  bool
	File    string
	Caller  bool
}

type AppConfig struct {
	HTTPAddr  string
	ClientURL string

	RedisURL    string
	DatabaseURL string
	AuthURL     string

	TimeControl string
	MaxMatches  int
	AllowGuests bool

	MatchRetentionSec int
	SweepIntervalSec  int
	SessionTTLSec     int

	MessagesDir string

	Log LogConfig
}

func (c *AppConfig) MatchRetention() time.Duration {
	return time.Duration(c.MatchRetentionSec) * time.Second
}

func (c *AppConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":3000",
		ClientURL:         "http://localhost:5173",
		TimeControl:       "5+0",
		MaxMatches:        500,
		AllowGuests:       true,
		MatchRetentionSec: 30,
		SweepIntervalSec:  10,
		SessionTTLSec:     86400,
		Log: LogConfig{
			Level:   "info",
			Format:  "legacy",
			Console: true,
			ToFile:  false,
			File:    filepath.Join("logs", "bonk.log"),
		},
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.HTTPAddr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("CLIENT_URL")); v != "" {
		cfg.ClientURL = strings.TrimRight(v, "/")
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AuthURL = strings.TrimRight(strings.TrimSpace(os.Getenv("AUTH_URL")), "/")
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("TIME_CONTROL")); v != "" {
		cfg.TimeControl = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOW_GUESTS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.AllowGuests = b
		}
	}
	positiveInt("MAX_MATCHES", &cfg.MaxMatches)
	positiveInt("SWEEP_INTERVAL_SEC", &cfg.SweepIntervalSec)
	positiveInt("SESSION_TTL_SEC", &cfg.SessionTTLSec)
	if v := strings.TrimSpace(os.Getenv("MATCH_RETENTION_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MatchRetentionSec = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	boolVar("LOG_TO_CONSOLE", &cfg.Log.Console)
	boolVar("LOG_TO_FILE", &cfg.Log.ToFile)
	boolVar("LOG_CALLER", &cfg.Log.Caller)

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	switch cfg.Log.Format {
	case "legacy", "json", "console":
	default:
		return nil, fmt.Errorf("LOG_FORMAT %q: want legacy, json or console", cfg.Log.Format)
	}
	if cfg.AuthURL != "" && !strings.HasPrefix(cfg.AuthURL, "http://") && !strings.HasPrefix(cfg.AuthURL, "https://") {
		return nil, fmt.Errorf("AUTH_URL %q must be an http(s) URL", cfg.AuthURL)
	}

	return cfg, nil
}

func positiveInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func boolVar(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
