// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Site       SiteConfig       `mapstructure:"site"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Run        RunConfig        `mapstructure:"run"`
	Detect     DetectConfig     `mapstructure:"detect"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	DB         DBConfig         `mapstructure:"db"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SiteConfig names the watched storefront.
type SiteConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Selector string `mapstructure:"selector"`
}

// ScrapeConfig governs page fetching.
type ScrapeConfig struct {
	// Mode is "headless" (browser) or "static" (plain HTTP).
	Mode              string `mapstructure:"mode"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	SettleMs          int    `mapstructure:"settle_ms"`
}

// RunConfig schedules watch cycles.
type RunConfig struct {
	IntervalMinutes      int `mapstructure:"interval_minutes"`
	ScrapeTimeoutSeconds int `mapstructure:"scrape_timeout_seconds"`
}

// DetectConfig tunes change classification.
type DetectConfig struct {
	LinkChangeIsReal bool `mapstructure:"link_change_is_real"`
}

// TelegramConfig holds bot credentials and the destination chat.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	ChatID         string `mapstructure:"chat_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CloudinaryConfig configures the image composition CDN.
type CloudinaryConfig struct {
	CloudName  string `mapstructure:"cloud_name"`
	Background string `mapstructure:"background"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROMOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("site.base_url", "https://www.buscalibre.cl")
	v.SetDefault("site.selector", "section#portadaHome img[alt]")
	v.SetDefault("scrape.mode", "headless")
	v.SetDefault("scrape.user_agent", "")
	v.SetDefault("scrape.nav_timeout_seconds", 25)
	v.SetDefault("scrape.settle_ms", 3000)
	v.SetDefault("run.interval_minutes", 60)
	v.SetDefault("run.scrape_timeout_seconds", 45)
	v.SetDefault("detect.link_change_is_real", true)
	// Credentials default to empty so env-only values are visible to
	// Unmarshal.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.timeout_seconds", 15)
	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.background", "fe8d10")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if c.Scrape.Mode != "headless" && c.Scrape.Mode != "static" {
		return fmt.Errorf("scrape.mode must be headless or static, got %q", c.Scrape.Mode)
	}
	if c.Run.IntervalMinutes <= 0 {
		return fmt.Errorf("run.interval_minutes must be > 0")
	}
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token must be set")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id must be set")
	}
	return nil
}

// RunInterval converts the schedule knob into a duration.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.Run.IntervalMinutes) * time.Minute
}

// ScrapeTimeout bounds one page fetch.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Run.ScrapeTimeoutSeconds) * time.Second
}

// NavTimeout is the in-browser navigation deadline.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scrape.NavTimeoutSeconds) * time.Second
}

// SettleDelay is how long to let homepage scripts finish before reading
// the banner.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Scrape.SettleMs) * time.Millisecond
}

// TelegramTimeout bounds one Bot API call.
func (c Config) TelegramTimeout() time.Duration {
	return time.Duration(c.Telegram.TimeoutSeconds) * time.Second
}
