package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-aligned rows under a header.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func capacity(maxLinks int) string {
	if maxLinks == 0 {
		return "unlimited"
	}
	return fmt.Sprint(maxLinks)
}

func pathString(path []types.ObjectRef) string {
	parts := make([]string, len(path))
	for i, r := range path {
		parts[i] = r.Key().String()
	}
	return strings.Join(parts, " -> ")
}
