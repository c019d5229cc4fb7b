package texts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/texts"
)

func newCatalog(t *testing.T) *texts.Catalog {
	c, err := texts.NewCatalog(texts.LangEN, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewCatalog_UnknownDefault(t *testing.T) {
	_, err := texts.NewCatalog("xx", zap.NewNop())
	assert.Error(t, err)
}

func TestResolve_ExactLanguage(t *testing.T) {
	c := newCatalog(t)

	en := c.Resolve("try_again", texts.LangEN)
	hi := c.Resolve("try_again", texts.LangHI)

	assert.NotEmpty(t, en)
	assert.NotEmpty(t, hi)
	assert.NotEqual(t, en, hi)
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	c := newCatalog(t)

	// An unknown language still gets the default-language string, never the
	// sentinel.
	got := c.Resolve("try_again", "fr")
	assert.Equal(t, c.Resolve("try_again", texts.LangEN), got)
	assert.False(t, strings.HasPrefix(got, texts.MissingPrefix))
}

func TestResolve_MissingKeySentinel(t *testing.T) {
	c := newCatalog(t)

	for _, lang := range []string{texts.LangEN, texts.LangHI, "fr", ""} {
		got := c.Resolve("no_such_key", lang)
		assert.Equal(t, texts.MissingPrefix+"no_such_key", got, "lang %q", lang)
	}
}

func TestResolve_EveryKeyHasDefaultEntry(t *testing.T) {
	c := newCatalog(t)

	// The hi table must never resolve to a sentinel: every key it serves
	// exists in en too.
	for _, key := range []string{"welcome", "balance", "withdraw_submitted", "claim_ok"} {
		got := c.Resolve(key, texts.LangHI)
		assert.False(t, strings.HasPrefix(got, texts.MissingPrefix), "key %q", key)
	}
}

func TestRender_FillsPlaceholders(t *testing.T) {
	out, err := texts.Render("Balance: {balance} points (₹{rupees})", map[string]string{
		"balance": "12.5",
		"rupees":  "6.25",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Balance: 12.5 points (₹6.25)", out)
}

func TestRender_MissingPlaceholder(t *testing.T) {
	out, err := texts.Render("Hello {name}, you won {reward}", map[string]string{
		"name": "dana",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reward")
	// The raw placeholder stays visible so the message is still deliverable
	assert.Contains(t, out, "{reward}")
	assert.Contains(t, out, "dana")
}

func TestRender_NoPlaceholders(t *testing.T) {
	out, err := texts.Render("plain text", nil)
	assert.NoError(t, err)
	assert.Equal(t, "plain text", out)
}
