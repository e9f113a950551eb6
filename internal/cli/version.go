package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/linkgraph"
)

const modulePath = "github.com/mesh-intelligence/linkgraph"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the linkgraph version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "linkgraph v%s\nmodule: %s\n", linkgraph.Version, modulePath)
			return nil
		},
	}
}
