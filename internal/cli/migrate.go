package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/db"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand(opts, "up", "Apply all pending migrations", (*db.Migrator).Up),
		migrateSubcommand(opts, "down", "Roll back the latest migration", (*db.Migrator).Down),
		migrateSubcommand(opts, "status", "Show applied and pending migrations", (*db.Migrator).Status),
	)
	return cmd
}

func migrateSubcommand(opts *RootOptions, use, short string, run func(*db.Migrator, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := db.Open(opts.cfg.DB, opts.logger)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			m, err := db.NewMigrator(gdb, opts.cfg.DB.Driver, opts.logger)
			if err != nil {
				return err
			}
			return run(m, cmd.Context())
		},
	}
}
