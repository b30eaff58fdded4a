package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup-ips subcommand.
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-ips",
		Short: "Trim every user's IP history to the retention limit once and exit",
		Args:  cobra.NoArgs,
		RunE:  runCleanup,
	}
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	report, err := d.engine.CleanupIPHistory(ctx)
	if err != nil {
		return oops.Code("CLEANUP_FAILED").Wrap(err)
	}
	cmd.Printf("scanned %d users, updated %d, removed %d entries in %s\n",
		report.UsersScanned, report.UsersUpdated, report.EntriesRemoved, report.Duration)
	return nil
}
