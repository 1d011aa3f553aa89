package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"CameraUpdates/internal/scanner"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CAMERA_UPDATES_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetcher       FetcherConfig      `yaml:"fetcher"`
	Thresholds    ThresholdConfig    `yaml:"thresholds"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
	Brands        []BrandConfig      `yaml:"brands"`
}

// DatabaseConfig selects the SQL driver (sqlite or pgx) and its DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when syncs run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetcherConfig tunes outbound HTTP.
type FetcherConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	Attempts     int           `yaml:"attempts"`
	RetryDelay   time.Duration `yaml:"retryDelay"`
	RequestDelay time.Duration `yaml:"requestDelay"`
	RunTimeout   time.Duration `yaml:"runTimeout"`
}

// ThresholdConfig exposes the quality and dedup knobs.
type ThresholdConfig struct {
	WordRatio    float64 `yaml:"wordRatio"`
	SpecialRatio float64 `yaml:"specialRatio"`
	MinScore     int     `yaml:"minScore"`
	Similarity   float64 `yaml:"similarity"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoggingConfig picks the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BrandConfig is one manufacturer with its ordered listing pages.
type BrandConfig struct {
	Name     string          `yaml:"name"`
	Listings []ListingConfig `yaml:"listings"`
}

// ListingConfig is a single news or support page and its scanner strategy.
type ListingConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Scanner string `yaml:"scanner"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Brands) == 0 {
		cfg.Brands = defaultConfig().Brands
	}

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ScannerBrands converts the brand section into pipeline input, dropping
// brands without a name or listings.
func (c Config) ScannerBrands() []scanner.Brand {
	brands := make([]scanner.Brand, 0, len(c.Brands))
	for _, b := range c.Brands {
		if b.Name == "" {
			continue
		}
		brand := scanner.Brand{Name: b.Name}
		for _, l := range b.Listings {
			if l.URL == "" {
				continue
			}
			brand.Listings = append(brand.Listings, scanner.Listing{Name: l.Name, URL: l.URL, Scanner: l.Scanner})
		}
		if len(brand.Listings) > 0 {
			brands = append(brands, brand)
		}
	}
	return brands
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	base.Scheduler.RunOnStart = base.Scheduler.RunOnStart || override.Scheduler.RunOnStart

	if override.Fetcher.Timeout > 0 {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.Attempts > 0 {
		base.Fetcher.Attempts = override.Fetcher.Attempts
	}
	if override.Fetcher.RetryDelay != 0 {
		base.Fetcher.RetryDelay = override.Fetcher.RetryDelay
	}
	if override.Fetcher.RequestDelay != 0 {
		base.Fetcher.RequestDelay = override.Fetcher.RequestDelay
	}
	if override.Fetcher.RunTimeout > 0 {
		base.Fetcher.RunTimeout = override.Fetcher.RunTimeout
	}

	if override.Thresholds.WordRatio > 0 {
		base.Thresholds.WordRatio = override.Thresholds.WordRatio
	}
	if override.Thresholds.SpecialRatio > 0 {
		base.Thresholds.SpecialRatio = override.Thresholds.SpecialRatio
	}
	if override.Thresholds.MinScore > 0 {
		base.Thresholds.MinScore = override.Thresholds.MinScore
	}
	if override.Thresholds.Similarity > 0 {
		base.Thresholds.Similarity = override.Thresholds.Similarity
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Brands) > 0 {
		base.Brands = override.Brands
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "file:cameraupdates.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, location: tz},
		Fetcher: FetcherConfig{
			Timeout:      20 * time.Second,
			Attempts:     3,
			RetryDelay:   time.Second,
			RequestDelay: 900 * time.Millisecond,
			RunTimeout:   10 * time.Minute,
		},
		Thresholds: ThresholdConfig{WordRatio: 0.10, SpecialRatio: 0.10, MinScore: 4, Similarity: 0.9},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Brands: []BrandConfig{
			{
				Name: "Canon",
				Listings: []ListingConfig{
					{Name: "news", URL: "https://global.canon/en/news/", Scanner: "html"},
					{Name: "firmware", URL: "https://www.usa.canon.com/support/firmware-updates", Scanner: "html"},
				},
			},
			{
				Name: "Nikon",
				Listings: []ListingConfig{
					{Name: "news", URL: "https://www.nikon.com/company/news/", Scanner: "html"},
					{Name: "firmware", URL: "https://downloadcenter.nikonimglib.com/en/products/index.html", Scanner: "html"},
				},
			},
			{
				Name: "Sony",
				Listings: []ListingConfig{
					{Name: "news", URL: "https://www.sony.com/en/SonyInfo/News/", Scanner: "html"},
				},
			},
			{
				Name: "Fujifilm",
				Listings: []ListingConfig{
					{Name: "news", URL: "https://www.fujifilm-x.com/global/news/", Scanner: "html"},
					{Name: "firmware", URL: "https://www.fujifilm-x.com/global/support/download/firmware/cameras/", Scanner: "html"},
				},
			},
		},
	}
}
