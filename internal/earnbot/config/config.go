package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ChannelConfig describes one Telegram channel the bot works with
type ChannelConfig struct {
	ID         int64  `mapstructure:"id"`
	Title      string `mapstructure:"title"`
	InviteLink string `mapstructure:"invite_link"`
}

// BotConfig contains Telegram transport settings
type BotConfig struct {
	Token           string          `mapstructure:"token"`
	OwnerIDs        []int64         `mapstructure:"owner_ids"`
	AdminChannelID  int64           `mapstructure:"admin_channel_id"`
	RequiredChannel ChannelConfig   `mapstructure:"required_channel"`
	SponsorChannels []ChannelConfig `mapstructure:"sponsor_channels"`
}

// ShortlinkConfig contains the shortlink service settings
type ShortlinkConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIToken  string `mapstructure:"api_token"`
	TargetURL string `mapstructure:"target_url"`
}

// RewardsConfig contains the point rewards, as decimal strings so fractional
// values like "0.5" survive exactly
type RewardsConfig struct {
	Shortlink   string `mapstructure:"shortlink"`
	Referral    string `mapstructure:"referral"`
	ChannelJoin string `mapstructure:"channel_join"`
}

// WithdrawConfig contains the payout settings
type WithdrawConfig struct {
	MinPoints      string `mapstructure:"min_points"`
	PointsPerRupee string `mapstructure:"points_per_rupee"`
}

// ServerConfig contains the ops/admin HTTP server settings
type ServerConfig struct {
	RunAddress        string `mapstructure:"run_address"`
	JWTSecret         string `mapstructure:"jwt_secret"`
	AdminLogin        string `mapstructure:"admin_login"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config contains application configuration
type Config struct {
	Bot             BotConfig       `mapstructure:"bot"`
	DatabaseURI     string          `mapstructure:"database_uri"`
	Shortlink       ShortlinkConfig `mapstructure:"shortlink"`
	Rewards         RewardsConfig   `mapstructure:"rewards"`
	Withdraw        WithdrawConfig  `mapstructure:"withdraw"`
	Server          ServerConfig    `mapstructure:"server"`
	DefaultLanguage string          `mapstructure:"default_language"`
	Logging         LoggingConfig   `mapstructure:"logging"`
}

// LoadConfig reads config.yaml and environment variables into Config. A .env
// file in the working directory is loaded first so local runs can keep
// secrets out of the yaml.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine, the environment itself may carry the values
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("default_language", "en")
	v.SetDefault("rewards.shortlink", "0.5")
	v.SetDefault("rewards.referral", "1")
	v.SetDefault("rewards.channel_join", "0.5")
	v.SetDefault("withdraw.min_points", "40")
	v.SetDefault("withdraw.points_per_rupee", "2")
	v.SetDefault("server.run_address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Env-only overrides for the two secrets that never belong in yaml
	if token := v.GetString("BOT_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if uri := v.GetString("DATABASE_URI"); uri != "" {
		cfg.DatabaseURI = uri
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the fields the process cannot start without
func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot token is not configured")
	}
	if c.DatabaseURI == "" {
		return errors.New("database URI is not configured")
	}
	for _, field := range []struct{ name, value string }{
		{"rewards.shortlink", c.Rewards.Shortlink},
		{"rewards.referral", c.Rewards.Referral},
		{"rewards.channel_join", c.Rewards.ChannelJoin},
		{"withdraw.min_points", c.Withdraw.MinPoints},
		{"withdraw.points_per_rupee", c.Withdraw.PointsPerRupee},
	} {
		if _, err := decimal.NewFromString(field.value); err != nil {
			return fmt.Errorf("%s: invalid decimal %q", field.name, field.value)
		}
	}
	return nil
}

// Decimal returns a decimal config value validated at load time.
func Decimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
