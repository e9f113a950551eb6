package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newReachCmd(a *app) *cobra.Command {
	var (
		class string
		depth string
	)
	cmd := &cobra.Command{
		Use:   "reach <source>",
		Short: "List objects reachable over outbound links",
		Long: "Breadth-first search from source over outbound links. Every reachable\n" +
			"object is listed once with its shortest path. --class filters the results\n" +
			"without limiting which objects the search passes through.",
		Example: `  linkgraph reach Host/h1 --class Building
  linkgraph reach Host/h1 --depth 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := types.ParseObjectKey(args[0])
			if err != nil {
				return err
			}
			maxDepth, err := types.ParseDepth(depth)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				results, err := s.FindReachable(cmd.Context(), source, types.ReachQuery{
					TargetClass: class, MaxDepth: maxDepth,
				})
				if err != nil {
					return err
				}
				return a.render(cmd, results, func(w io.Writer) error {
					if len(results) == 0 {
						_, err := fmt.Fprintf(w, "nothing reachable from %s\n", source)
						return err
					}
					rows := make([][]string, len(results))
					for i, r := range results {
						rows[i] = []string{r.Terminal.Key().String(), fmt.Sprint(r.Depth()), pathString(r.Path)}
					}
					return table(w, []string{"OBJECT", "DEPTH", "PATH"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "only report objects of this class")
	cmd.Flags().StringVar(&depth, "depth", types.Unbounded.String(), `maximum path length in links (1 or more), or "unbounded"; 0 is rejected`)
	return cmd
}
