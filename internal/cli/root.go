package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vendorscope",
		Short:         "Vendor analytics scoring backend.",
		Long:          `vendorscope scores vendors on performance, payment reliability and risk from invoice and payment history.`,
		Version:       version + " (" + commit + ")",
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newReportCommand(),
		newSeedCommand(),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
