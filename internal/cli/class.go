package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newClassCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				c, err := s.CreateClass(cmd.Context(), types.ClassSpec{
					Name: args[0], Scope: a.scope(cmd), Description: description,
				})
				if err != nil {
					return err
				}
				return a.render(cmd, c, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created class %s (%s)\n", c.Name, c.ClassID)
					return err
				})
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "free-text description")
	create.Flags().String("scope", "", "scope recorded on the class")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				c, err := s.GetClass(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(cmd, c, func(w io.Writer) error {
					return table(w, []string{"NAME", "ID", "SCOPE", "DESCRIPTION"},
						[][]string{{c.Name, c.ClassID, c.Scope, c.Description}})
				})
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				classes, err := s.ListClasses(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(cmd, classes, func(w io.Writer) error {
					rows := make([][]string, len(classes))
					for i, c := range classes {
						rows[i] = []string{c.Name, c.Scope, c.Description}
					}
					return table(w, []string{"NAME", "SCOPE", "DESCRIPTION"}, rows)
				})
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a class with its objects, link types and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				if err := s.DeleteClass(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "deleted class %s\n", args[0])
					return err
				})
			})
		},
	}

	cmd.AddCommand(create, get, list, del)
	return cmd
}
