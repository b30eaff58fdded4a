package main

import (
	"github.com/spf13/cobra"
)

var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - session based authentication service",
		Long: `authd serves registration, login, session renewal, email verification
and password reset over HTTP, backed by PostgreSQL and Redis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCleanupCmd())

	return cmd
}
