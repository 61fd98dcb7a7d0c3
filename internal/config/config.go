package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is loaded once in main and
// passed into each component at construction; nothing reads ambient state.
type Config struct {
	History struct {
		Root   string `yaml:"root"`
		Series string `yaml:"series"`
	} `yaml:"history"`
	Labels struct {
		CSVPath    string `yaml:"csv_path"`
		SQLitePath string `yaml:"sqlite_path"` // if set, the SQLite ledger is used instead of CSV
	} `yaml:"labels"`
	Baseline struct {
		OutDir string `yaml:"out_dir"`
	} `yaml:"baseline"`
	Horizons   []int     `yaml:"horizons"`   // hours, ascending
	Thresholds []float64 `yaml:"thresholds"` // percent, ascending
	Schedule   struct {
		RunCron string `yaml:"run_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"` // empty disables notifications
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
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
	if v := os.Getenv("HISTORY_ROOT"); v != "" {
		cfg.History.Root = v
	}
	if v := os.Getenv("HISTORY_SERIES"); v != "" {
		cfg.History.Series = v
	}
	if v := os.Getenv("LABELS_CSV_PATH"); v != "" {
		cfg.Labels.CSVPath = v
	}
	if v := os.Getenv("LABELS_SQLITE_PATH"); v != "" {
		cfg.Labels.SQLitePath = v
	}
	if v := os.Getenv("BASELINE_OUT_DIR"); v != "" {
		cfg.Baseline.OutDir = v
	}
	if v := os.Getenv("RUN_CRON"); v != "" {
		cfg.Schedule.RunCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("HORIZONS"); v != "" {
		hs, err := parseInts(v)
		if err != nil {
			return nil, fmt.Errorf("parse HORIZONS: %w", err)
		}
		cfg.Horizons = hs
	}
	if v := os.Getenv("THRESHOLDS"); v != "" {
		ts, err := parseFloats(v)
		if err != nil {
			return nil, fmt.Errorf("parse THRESHOLDS: %w", err)
		}
		cfg.Thresholds = ts
	}

	// Defaults
	if cfg.History.Root == "" {
		cfg.History.Root = "data/history"
	}
	if cfg.History.Series == "" {
		cfg.History.Series = "eth_usdt_1h"
	}
	if cfg.Labels.CSVPath == "" && cfg.Labels.SQLitePath == "" {
		cfg.Labels.CSVPath = "data/labels/labels_v1.csv"
	}
	if cfg.Baseline.OutDir == "" {
		cfg.Baseline.OutDir = "data/forecast"
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = []int{12, 24, 36, 48, 60, 72, 84, 96}
	}
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = []float64{0.5, 1, 2, 3, 5}
	}
	if cfg.Schedule.RunCron == "" {
		cfg.Schedule.RunCron = "0 10 * * * *" // 10 minutes past every hour
	}

	return cfg, nil
}

// Validate checks that the configured horizon and threshold sets are usable.
func (c *Config) Validate() error {
	if len(c.Horizons) == 0 {
		return fmt.Errorf("horizons must not be empty")
	}
	for i, h := range c.Horizons {
		if h <= 0 {
			return fmt.Errorf("horizons[%d] must be positive, got %d", i, h)
		}
		if i > 0 && h <= c.Horizons[i-1] {
			return fmt.Errorf("horizons must be strictly ascending, got %d after %d", h, c.Horizons[i-1])
		}
	}
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("thresholds must not be empty")
	}
	for i, t := range c.Thresholds {
		if t <= 0 {
			return fmt.Errorf("thresholds[%d] must be positive, got %g", i, t)
		}
		if i > 0 && t <= c.Thresholds[i-1] {
			return fmt.Errorf("thresholds must be strictly ascending, got %g after %g", t, c.Thresholds[i-1])
		}
	}
	return nil
}

// MaxHorizon returns the widest configured horizon. Forward windows are
// stitched to this length; every other horizon is a prefix of it.
func (c *Config) MaxHorizon() int {
	return c.Horizons[len(c.Horizons)-1]
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
