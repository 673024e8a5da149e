package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WINKLINK_CLIENT_"

// BindFlags registers client flags on fs with the defaults as values.
func BindFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP("server-url", "a", d.ServerURL, "base URL of the WinkLink API")
	fs.Duration("timeout", d.Timeout, "per-request timeout")
	fs.Uint64("retries", d.Retries, "retries for read-only calls while the server is unreachable")
}

// Load builds a Config from defaults, WINKLINK_CLIENT_* variables and the
// flags set explicitly on fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	err = k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server_url must not be empty")
	}
	return cfg, nil
}
