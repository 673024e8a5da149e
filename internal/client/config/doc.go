// Package config loads runtime configuration for the WinkLink CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. WINKLINK_CLIENT_* environment variables, e.g. WINKLINK_CLIENT_SERVER_URL.
//  3. Command-line flags set explicitly, which override earlier values.
//
// Supported flags
//
//	-a, --server-url string   base URL of the WinkLink API
//	--timeout duration        per-request timeout
//	--retries uint            retries for read-only calls while the server is unreachable
package config
