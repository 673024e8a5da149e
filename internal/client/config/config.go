package config

import "time"

// Config holds runtime settings for the WinkLink CLI.
type Config struct {
	ServerURL string        `koanf:"server_url"`
	Timeout   time.Duration `koanf:"timeout"`
	Retries   uint64        `koanf:"retries"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8000"
	c.Timeout = 10 * time.Second
	c.Retries = 3
}
