package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/vendorscope/internal/migration"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema.",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}
			return withSQL(cmd.Context(), func(conn *gorm.DB) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.Rollback(sqlDB, steps); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return err
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations.",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSQL(cmd.Context(), func(conn *gorm.DB) error {
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					if err := migration.RunMigrations(sqlDB); err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return err
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version.",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSQL(cmd.Context(), func(conn *gorm.DB) error {
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					v, dirty, err := migration.Version(sqlDB)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return err
				})
			},
		},
	)
	return cmd
}

func withSQL(ctx context.Context, fn func(conn *gorm.DB) error) error {
	var conn *gorm.DB
	return runOneShot(ctx, []any{&conn}, func(context.Context) error {
		return fn(conn)
	})
}
