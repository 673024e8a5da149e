package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8000", c.ServerURL)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.EqualValues(t, 3, c.Retries)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("WINKLINK_CLIENT_SERVER_URL", "http://env:9000")
	t.Setenv("WINKLINK_CLIENT_TIMEOUT", "2s")

	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, "http://env:9000", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	cfg, err = Load(newFlagSet(t, "-a", "http://flag:9001", "--retries", "0"))
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9001", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.EqualValues(t, 0, cfg.Retries)
}

func TestLoad_EmptyURL(t *testing.T) {
	_, err := Load(newFlagSet(t, "--server-url", ""))
	require.Error(t, err)
}
