package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (r *runner) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <media-id>",
		Short: "Delete an uploaded media file on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd.Context())
			defer cancel()

			if err := app.api.DeleteMedia(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete media: %w", err)
			}

			fmt.Fprintf(r.out, "Media %s deleted\n", args[0])
			return nil
		},
	}
}
