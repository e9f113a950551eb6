package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newCheckCmd(a *app) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that every link type and link has its mirror",
		Long: "Scan link types and links for missing or divergent mirror rows. With\n" +
			"--repair, unpaired halves are deleted; other problems are only reported.\n" +
			"Exits with status 3 while any violation remains.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				report, err := s.Check(cmd.Context(), types.CheckOptions{Repair: repair})
				if err != nil {
					return err
				}
				if err := a.render(cmd, report, func(w io.Writer) error {
					return printReport(w, report)
				}); err != nil {
					return err
				}
				if remaining := unresolved(report, repair); remaining > 0 {
					return fmt.Errorf("%d unresolved pairing problems: %w", remaining, types.ErrInvariantViolation)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "delete unpaired halves")
	return cmd
}

// unresolved counts violations still present after the check.
func unresolved(r *types.ConsistencyReport, repaired bool) int {
	n := 0
	for _, v := range r.Violations {
		if !repaired || !types.Repairable(v.Kind) {
			n++
		}
	}
	return n
}

func printReport(w io.Writer, r *types.ConsistencyReport) error {
	fmt.Fprintf(w, "scanned %d link type rows and %d link rows\n", r.LinkTypesScanned, r.LinksScanned)
	if r.OK() {
		_, err := fmt.Fprintln(w, "no violations")
		return err
	}
	rows := make([][]string, len(r.Violations))
	for i, v := range r.Violations {
		id := v.LinkID
		if id == "" {
			id = v.LinkTypeID
		}
		rows[i] = []string{v.Kind, id, v.Detail}
	}
	if err := table(w, []string{"KIND", "ROW", "DETAIL"}, rows); err != nil {
		return err
	}
	if r.Repaired > 0 {
		_, err := fmt.Fprintf(w, "repaired %d rows\n", r.Repaired)
		return err
	}
	return nil
}
