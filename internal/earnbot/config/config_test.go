package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600)
	require.NoError(t, err)
	return dir
}

const minimalConfig = `
bot:
  token: "123:abc"
database_uri: "postgres://localhost/earnbot"
`

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, minimalConfig)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "postgres://localhost/earnbot", cfg.DatabaseURI)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "0.5", cfg.Rewards.Shortlink)
	assert.Equal(t, "1", cfg.Rewards.Referral)
	assert.Equal(t, "40", cfg.Withdraw.MinPoints)
	assert.Equal(t, "2", cfg.Withdraw.PointsPerRupee)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_FullFile(t *testing.T) {
	dir := writeConfig(t, `
bot:
  token: "123:abc"
  owner_ids: [11, 22]
  admin_channel_id: -100999
  required_channel:
    id: -100111
    title: "Main Channel"
    invite_link: "https://t.me/main"
  sponsor_channels:
    - id: -100222
      title: "Sponsor One"
      invite_link: "https://t.me/one"
database_uri: "postgres://localhost/earnbot"
shortlink:
  base_url: "https://sh.example"
  api_token: "tok"
  target_url: "https://target.example"
rewards:
  shortlink: "0.75"
withdraw:
  min_points: "100"
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 22}, cfg.Bot.OwnerIDs)
	assert.Equal(t, int64(-100999), cfg.Bot.AdminChannelID)
	assert.Equal(t, int64(-100111), cfg.Bot.RequiredChannel.ID)
	require.Len(t, cfg.Bot.SponsorChannels, 1)
	assert.Equal(t, "Sponsor One", cfg.Bot.SponsorChannels[0].Title)
	assert.Equal(t, "https://sh.example", cfg.Shortlink.BaseURL)
	assert.Equal(t, "0.75", cfg.Rewards.Shortlink)
	// Unset keys keep their defaults
	assert.Equal(t, "1", cfg.Rewards.Referral)
	assert.Equal(t, "100", cfg.Withdraw.MinPoints)
}

func TestLoadConfig_MissingToken(t *testing.T) {
	dir := writeConfig(t, `
database_uri: "postgres://localhost/earnbot"
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	dir := writeConfig(t, `
bot:
  token: "123:abc"
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URI")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, minimalConfig)
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("DATABASE_URI", "postgres://env/earnbot")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "999:env", cfg.Bot.Token)
	assert.Equal(t, "postgres://env/earnbot", cfg.DatabaseURI)
}

func TestLoadConfig_BadDecimal(t *testing.T) {
	dir := writeConfig(t, minimalConfig+`
rewards:
  shortlink: "half a point"
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewards.shortlink")
}
