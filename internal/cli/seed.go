package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/app"
)

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample todos into an empty table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			cfg.Seed.OnStart = false
			a, err := app.New(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d todos\n", n)
			return nil
		},
	}
}
