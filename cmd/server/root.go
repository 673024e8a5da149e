package main

import (
	"os"

	"github.com/dmitrijs2005/winklink/internal/server"
	"github.com/dmitrijs2005/winklink/internal/server/config"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "winklink",
		Short: "WinkLink device registration and login service",
		Long: `WinkLink registers smart devices to their owners and issues
session tokens. It serves a JSON API over HTTP and a gRPC health service.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP and gRPC servers",
		RunE:  runServe,
	}
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE:  runMigrate,
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := server.NewLogger(cfg, os.Stdout)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return oops.Code("APP_INIT_FAILED").With("operation", "initialize app").Wrap(err)
	}

	app.Run(ctx)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := server.Migrate(cmd.Context(), cfg, server.NewLogger(cfg, os.Stdout)); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
