package cli

import (
	"github.com/dmitrijs2005/memoria/internal/buildinfo"
	"github.com/spf13/cobra"
)

func (r *runner) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(r.out)
		},
	}
}
