package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table to JSONL files in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				if err := s.Export(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"exported": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "exported to %s\n", args[0])
					return err
				})
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files written by export",
		Long: "Load classes, objects, link types and links from dir in one transaction.\n" +
			"Rows that already exist are kept. The load is rolled back if it leaves\n" +
			"any link type or link without its mirror.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				if err := s.Import(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"imported": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "imported from %s\n", args[0])
					return err
				})
			})
		},
	}
}
