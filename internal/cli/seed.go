package cli

import (
	"context"
	"fmt"

	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/seed"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo vendors, invoices and payments into an empty database.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				conn *gorm.DB
				clk  clock.Clock
			)
			return runOneShot(cmd.Context(), []any{&conn, &clk}, func(ctx context.Context) error {
				seeded, err := seed.EnsureDemoData(ctx, conn, clk.Now())
				if err != nil {
					return err
				}
				msg := "database already has vendors, nothing seeded"
				if seeded {
					msg = "demo data loaded"
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				return err
			})
		},
	}
}
