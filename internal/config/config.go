// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Log       LogConfig       `mapstructure:"log"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Cooldowns CooldownConfig  `mapstructure:"cooldowns"`
	Duel      DuelConfig      `mapstructure:"duel"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Games     GamesConfig     `mapstructure:"games"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// EconomyConfig holds ledger rules. Amounts are in copper.
type EconomyConfig struct {
	StartBalance  int64   `mapstructure:"start_balance"`
	PurseCap      int64   `mapstructure:"purse_cap"`
	InterestRate  string  `mapstructure:"interest_rate"`
	PrisonDays    int     `mapstructure:"prison_days"`
	DailyReward   int64   `mapstructure:"daily_reward"`
	Tax           int64   `mapstructure:"tax"`
	TaxCollectors []int64 `mapstructure:"tax_collectors"`
	Timezone      string  `mapstructure:"timezone"`
	AnnounceChat  int64   `mapstructure:"announce_chat"`

	// LockTimeout bounds how long a command waits for a busy account.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// CooldownConfig holds the window of each tracked action kind.
type CooldownConfig struct {
	Labour time.Duration `mapstructure:"labour"`
	Daily  time.Duration `mapstructure:"daily"`
	Duel   time.Duration `mapstructure:"duel"`
}

// DuelConfig holds duel timing and permissions.
type DuelConfig struct {
	AcceptTimeout time.Duration `mapstructure:"accept_timeout"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	// Authorized lists who may challenge or accept. Empty allows everyone.
	Authorized []int64 `mapstructure:"authorized"`
}

// SchedulerConfig controls the daily jobs.
type SchedulerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// GamesConfig holds gambling configuration. Amounts are in copper.
type GamesConfig struct {
	DefaultWager int64 `mapstructure:"default_wager"`
	MaxWager     int64 `mapstructure:"max_wager"`
	SlotsCost    int64 `mapstructure:"slots_cost"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, ECONOMY_PRISON_DAYS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "royal")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "royal_market")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)

	v.SetDefault("economy.start_balance", 10*currency.Gold)
	v.SetDefault("economy.purse_cap", 5_000_000*currency.Gold)
	v.SetDefault("economy.interest_rate", "0.02")
	v.SetDefault("economy.prison_days", 3)
	v.SetDefault("economy.daily_reward", 10*currency.Gold)
	v.SetDefault("economy.tax", 4*currency.Gold)
	v.SetDefault("economy.timezone", "UTC")
	v.SetDefault("economy.lock_timeout", "5s")

	v.SetDefault("cooldowns.labour", "1h")
	v.SetDefault("cooldowns.daily", "24h")
	v.SetDefault("cooldowns.duel", "1h")

	v.SetDefault("duel.accept_timeout", "60s")
	v.SetDefault("duel.turn_timeout", "60s")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.run_on_start", false)

	v.SetDefault("games.default_wager", 10*currency.Gold)
	v.SetDefault("games.max_wager", 0)
	v.SetDefault("games.slots_cost", 1*currency.Gold)
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if _, err := c.Economy.Rate(); err != nil {
		return err
	}
	if _, err := c.Economy.Location(); err != nil {
		return err
	}
	if c.Economy.PrisonDays < 1 {
		return fmt.Errorf("economy.prison_days must be at least 1, got %d", c.Economy.PrisonDays)
	}
	if c.Economy.LockTimeout < 0 {
		return fmt.Errorf("economy.lock_timeout must not be negative")
	}
	if c.Economy.StartBalance < 0 || c.Economy.PurseCap < 0 {
		return fmt.Errorf("economy amounts must not be negative")
	}
	if c.Duel.AcceptTimeout <= 0 || c.Duel.TurnTimeout <= 0 {
		return fmt.Errorf("duel timeouts must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return nil
}

// Rate returns the daily interest rate as an exact decimal.
func (e *EconomyConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(e.InterestRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid economy.interest_rate %q: %w", e.InterestRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("economy.interest_rate must not be negative")
	}
	return rate, nil
}

// Location returns the timezone used for calendar-day prison checks.
func (e *EconomyConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid economy.timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// Window returns the cooldown window for a kind; zero means no cooldown.
func (c *CooldownConfig) Window(kind model.CooldownKind) time.Duration {
	switch kind {
	case model.CooldownLabour:
		return c.Labour
	case model.CooldownDaily:
		return c.Daily
	case model.CooldownDuel:
		return c.Duel
	default:
		return 0
	}
}

// IsAuthorized checks whether a user may take part in duels.
func (d *DuelConfig) IsAuthorized(userID int64) bool {
	return len(d.Authorized) == 0 || slices.Contains(d.Authorized, userID)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// Empty whitelist means all chats are allowed.
func (c *Config) IsChatAllowed(chatID int64) bool {
	return len(c.Whitelist.Chats) == 0 || slices.Contains(c.Whitelist.Chats, chatID)
}
