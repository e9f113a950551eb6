package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func linkTypeRows(lts ...*types.LinkType) [][]string {
	rows := make([][]string, len(lts))
	for i, lt := range lts {
		dir := "forward"
		if lt.Reverse {
			dir = "mirror"
		}
		rows[i] = []string{lt.SourceClass, lt.TargetClass, capacity(lt.MaxLinks), lt.Scope, dir}
	}
	return rows
}

var linkTypeHeader = []string{"SOURCE", "TARGET", "MAX LINKS", "SCOPE", "DIRECTION"}

func newLinkTypeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "linktype",
		Aliases: []string{"lt"},
		Short:   "Manage link types between classes",
	}

	var maxLinks int
	create := &cobra.Command{
		Use:   "create <source-class> <target-class>",
		Short: "Register a link type and its mirror",
		Long: "Register source→target together with the mirror target→source. Both\n" +
			"directions share --max-links and scope. 0 means unlimited.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				lt, err := s.CreateLinkType(cmd.Context(), types.LinkTypeSpec{
					SourceClass: args[0], TargetClass: args[1], Scope: a.scope(cmd), MaxLinks: maxLinks,
				})
				if err != nil {
					return err
				}
				return a.render(cmd, lt, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created link type %s -> %s (max links: %s)\n",
						lt.SourceClass, lt.TargetClass, capacity(lt.MaxLinks))
					return err
				})
			})
		},
	}
	create.Flags().IntVar(&maxLinks, "max-links", 0, "outbound links per source object toward the target class (0 = unlimited)")
	create.Flags().String("scope", "", "scope recorded on both rows")

	var newMax int
	var newScope string
	update := &cobra.Command{
		Use:   "update <source-class> <target-class>",
		Short: "Change capacity or scope of a link type pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.LinkTypePatch
			if cmd.Flags().Changed("max-links") {
				patch.MaxLinks = &newMax
			}
			if cmd.Flags().Changed("scope") {
				patch.Scope = &newScope
			}
			if patch.MaxLinks == nil && patch.Scope == nil {
				return usagef("nothing to update: set --max-links or --scope")
			}
			return a.withStore(func(s types.Store) error {
				lt, err := s.UpdateLinkType(cmd.Context(), args[0], args[1], patch)
				if err != nil {
					return err
				}
				return a.render(cmd, lt, func(w io.Writer) error {
					return table(w, linkTypeHeader, linkTypeRows(lt))
				})
			})
		},
	}
	update.Flags().IntVar(&newMax, "max-links", 0, "new capacity (0 = unlimited)")
	update.Flags().StringVar(&newScope, "scope", "", "new scope")

	get := &cobra.Command{
		Use:   "get <source-class> <target-class>",
		Short: "Show one direction of a link type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				lt, err := s.GetLinkType(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.render(cmd, lt, func(w io.Writer) error {
					return table(w, linkTypeHeader, linkTypeRows(lt))
				})
			})
		},
	}

	var class string
	list := &cobra.Command{
		Use:   "list",
		Short: "List link types, both directions of each pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				lts, err := s.ListLinkTypes(cmd.Context(), types.LinkTypeFilter{Class: class})
				if err != nil {
					return err
				}
				return a.render(cmd, lts, func(w io.Writer) error {
					return table(w, linkTypeHeader, linkTypeRows(lts...))
				})
			})
		},
	}
	list.Flags().StringVar(&class, "class", "", "only link types whose source is this class")

	del := &cobra.Command{
		Use:   "delete <source-class> <target-class>",
		Short: "Delete a link type pair and every link of either direction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				if err := s.DeleteLinkType(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"source": args[0], "target": args[1]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "deleted link type %s -> %s\n", args[0], args[1])
					return err
				})
			})
		},
	}

	cmd.AddCommand(create, update, get, list, del)
	return cmd
}
