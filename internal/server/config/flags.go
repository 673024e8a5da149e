package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// FlagConfigFile names the flag holding the optional config file path.
const FlagConfigFile = "config"

// BindFlags registers server flags on fs with the defaults as values.
// Flag names are the config keys with '-' in place of '_'.
//
// Only flags set explicitly on the command line override the config file and
// environment.
func BindFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfigFile, "c", "", "path to a YAML or JSON config file")

	fs.StringP("http-addr", "a", d.HTTPAddr, "address and port to serve the HTTP API on")
	fs.StringP("grpc-addr", "g", d.GRPCAddr, "address and port for the gRPC health service (empty disables)")
	fs.String("database-driver", d.DatabaseDriver, "database driver: pgx or sqlite")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "database DSN")
	fs.Uint64("db-connect-retries", d.DBConnectRetries, "database ping attempts at startup")
	fs.StringP("secret-key", "s", d.SecretKey, "session token signing key")
	fs.DurationP("token-ttl", "t", d.TokenTTL, "session token lifetime")
	fs.Duration("tx-timeout", d.TxTimeout, "registration transaction timeout")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")
	fs.Uint32("argon2-time", d.Argon2Time, "argon2id iterations")
	fs.Uint32("argon2-memory", d.Argon2Memory, "argon2id memory in KiB")
	fs.Uint8("argon2-threads", d.Argon2Threads, "argon2id parallelism")
	fs.StringSlice("cors-allowed-origins", d.CORSAllowedOrigins, "origins allowed by CORS")
	fs.String("mqtt-broker", d.MQTTBroker, "MQTT broker URL for device events (empty disables)")
	fs.String("mqtt-topic-prefix", d.MQTTTopicPrefix, "MQTT topic prefix")
	fs.String("mqtt-client-id", d.MQTTClientID, "MQTT client id")
	fs.String("log-format", d.LogFormat, "log format: json or text")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
