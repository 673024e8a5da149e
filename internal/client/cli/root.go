package cli

import (
	"github.com/dmitrijs2005/winklink/internal/client/client"
	"github.com/dmitrijs2005/winklink/internal/client/config"
	"github.com/spf13/cobra"
)

// newClient builds the API client from cfg; replaced in tests.
var newClient = func(cfg *config.Config) client.Client {
	return client.NewHTTPClient(cfg.ServerURL, cfg.Timeout, cfg.Retries)
}

// NewRootCmd creates the root command of the WinkLink CLI.
func NewRootCmd() *cobra.Command {
	var app *App

	cmd := &cobra.Command{
		Use:          "winklink-cli",
		Short:        "WinkLink command-line client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			app = NewApp(newClient(cfg), cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}

	config.BindFlags(cmd.PersistentFlags())

	var reg RegisterInput
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a device to a new owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Register(cmd.Context(), reg)
		},
	}
	registerCmd.Flags().StringVar(&reg.SerialNumber, "serial", "", "device serial number")
	registerCmd.Flags().StringVar(&reg.Email, "email", "", "owner email")
	registerCmd.Flags().StringVar(&reg.Username, "username", "", "owner user name")
	registerCmd.Flags().StringVar(&reg.DeviceName, "device-name", "", "optional device name")

	var email string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Login(cmd.Context(), email)
		},
	}
	loginCmd.Flags().StringVar(&email, "email", "", "account email")

	deviceCmd := &cobra.Command{
		Use:   "device <serial-number>",
		Short: "Show who owns a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Device(cmd.Context(), args[0])
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Health(cmd.Context())
		},
	}

	cmd.AddCommand(registerCmd, loginCmd, deviceCmd, healthCmd)
	return cmd
}
