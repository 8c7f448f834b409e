package store

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode       string `yaml:"mode"`
	Exchange   string `yaml:"exchange"`
	BaseSymbol string `yaml:"base_symbol"`

	Quantity     int     `yaml:"quantity"`
	SLPercent    float64 `yaml:"sl_percent"`
	TSLPercent   float64 `yaml:"tsl_percent"`
	RolloverDays int     `yaml:"rollover_days"`

	PollSeconds     int `yaml:"poll_seconds"`
	IdlePollSeconds int `yaml:"idle_poll_seconds"`

	History struct {
		Bars     int    `yaml:"bars"`
		Interval string `yaml:"interval"`
	} `yaml:"history"`

	Market struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"market"`

	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`

	Backup struct {
		Enabled        bool   `yaml:"enabled"`
		Endpoint       string `yaml:"endpoint"`
		Region         string `yaml:"region"`
		Bucket         string `yaml:"bucket"`
		Prefix         string `yaml:"prefix"`
		ForcePathStyle bool   `yaml:"force_path_style"`
	} `yaml:"backup"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.BaseSymbol == "" {
		return fmt.Errorf("base_symbol cannot be empty")
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", c.Quantity)
	}
	if c.SLPercent <= 0 || c.SLPercent >= 1 {
		return fmt.Errorf("sl_percent must be a fraction in (0,1), got %.4f", c.SLPercent)
	}
	if c.TSLPercent <= 0 || c.TSLPercent >= 1 {
		return fmt.Errorf("tsl_percent must be a fraction in (0,1), got %.4f", c.TSLPercent)
	}
	if c.RolloverDays < 0 || c.RolloverDays > 15 {
		return fmt.Errorf("rollover_days must be between 0-15, got %d", c.RolloverDays)
	}
	// The boundary gates only fire in the first ten seconds of a block,
	// so a slower poll could skip whole blocks.
	if c.PollSeconds <= 0 || c.PollSeconds > 10 {
		return fmt.Errorf("poll_seconds must be between 1-10, got %d", c.PollSeconds)
	}
	if _, err := time.Parse("15:04", c.Market.Open); err != nil {
		return fmt.Errorf("market.open must be HH:MM, got '%s'", c.Market.Open)
	}
	if _, err := time.Parse("15:04", c.Market.Close); err != nil {
		return fmt.Errorf("market.close must be HH:MM, got '%s'", c.Market.Close)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup.bucket cannot be empty when backup is enabled")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "NFO"
	}
	if c.SLPercent == 0 {
		c.SLPercent = 0.0075
	}
	if c.TSLPercent == 0 {
		c.TSLPercent = 0.0075
	}
	if c.RolloverDays == 0 {
		c.RolloverDays = 3
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 5
	}
	if c.IdlePollSeconds == 0 {
		c.IdlePollSeconds = 10
	}
	if c.History.Bars == 0 {
		c.History.Bars = 60
	}
	if c.History.Interval == "" {
		c.History.Interval = "30minute"
	}
	if c.Market.Open == "" {
		c.Market.Open = "09:15"
	}
	if c.Market.Close == "" {
		c.Market.Close = "15:30"
	}
	if c.State.File == "" {
		c.State.File = "state/position.json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":10000"
	}
}

// Trading parameters can be overridden from the environment so a deploy can
// retune stops and sizing without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SL_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SLPercent = f
		}
	}
	if v := os.Getenv("TSL_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TSLPercent = f
		}
	}
	if v := os.Getenv("TRADE_QUANTITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Quantity = n
		}
	}
	if v := os.Getenv("POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PollSeconds = n
		}
	}
	if v := os.Getenv("ROLLOVER_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RolloverDays = n
		}
	}
	if v := os.Getenv("MARKET_OPEN"); v != "" {
		c.Market.Open = v
	}
	if v := os.Getenv("MARKET_CLOSE"); v != "" {
		c.Market.Close = v
	}
}
