package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// parseKeys parses the source and target class/name arguments.
func parseKeys(args []string) (source, target types.ObjectKey, err error) {
	if source, err = types.ParseObjectKey(args[0]); err != nil {
		return
	}
	target, err = types.ParseObjectKey(args[1])
	return
}

func linkRows(links ...*types.Link) [][]string {
	rows := make([][]string, len(links))
	for i, l := range links {
		rows[i] = []string{l.Source.Key().String(), l.Target.Key().String(), l.Scope, l.LinkID}
	}
	return rows
}

var linkHeader = []string{"SOURCE", "TARGET", "SCOPE", "ID"}

func newLinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage links between objects",
	}

	create := &cobra.Command{
		Use:     "create <source> <target>",
		Short:   "Link two objects; the mirror link is written too",
		Example: "  linkgraph link create Host/h1 Room/r1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := parseKeys(args)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				l, err := s.CreateLink(cmd.Context(), types.LinkSpec{Source: source, Target: target, Scope: a.scope(cmd)})
				if err != nil {
					return err
				}
				return a.render(cmd, l, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "linked %s -> %s\n", source, target)
					return err
				})
			})
		},
	}
	create.Flags().String("scope", "", "scope recorded on both links")

	get := &cobra.Command{
		Use:   "get <source> <target>",
		Short: "Show the link from source to target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := parseKeys(args)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				l, err := s.GetLink(cmd.Context(), source, target)
				if err != nil {
					return err
				}
				return a.render(cmd, l, func(w io.Writer) error {
					return table(w, linkHeader, linkRows(l))
				})
			})
		},
	}

	var targetClass string
	list := &cobra.Command{
		Use:   "list <source>",
		Short: "List the direct outbound links of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := types.ParseObjectKey(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				links, err := s.ListLinks(cmd.Context(), source, types.LinkFilter{TargetClass: targetClass})
				if err != nil {
					return err
				}
				return a.render(cmd, links, func(w io.Writer) error {
					return table(w, linkHeader, linkRows(links...))
				})
			})
		},
	}
	list.Flags().StringVar(&targetClass, "target-class", "", "only links toward objects of this class")

	del := &cobra.Command{
		Use:   "delete <source> <target>",
		Short: "Delete a link and its mirror",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := parseKeys(args)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.DeleteLink(cmd.Context(), source, target); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"source": source.String(), "target": target.String()}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "unlinked %s -> %s\n", source, target)
					return err
				})
			})
		},
	}

	cmd.AddCommand(create, get, list, del)
	return cmd
}
