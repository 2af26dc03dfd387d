package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (r *runner) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}
			n := app.cache.Sweep(cmd.Context())
			fmt.Fprintf(r.out, "Removed %d expired entries\n", n)
			return nil
		},
	})

	return cmd
}
