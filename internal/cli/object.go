package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newObjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Manage objects",
	}

	var data string
	create := &cobra.Command{
		Use:   "create <class> <name>",
		Short: "Create an object",
		Example: `  linkgraph object create Host h1
  linkgraph object create Host h2 --data '{"ip":"10.0.0.2"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload map[string]any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					return usagef("--data must be a JSON object: %s", err)
				}
			}
			return a.withStore(func(s types.Store) error {
				o, err := s.CreateObject(cmd.Context(), types.ObjectSpec{
					Class: args[0], Name: args[1], Scope: a.scope(cmd), Data: payload,
				})
				if err != nil {
					return err
				}
				return a.render(cmd, o, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created object %s (%s)\n", o.Ref().Key(), o.ObjectID)
					return err
				})
			})
		},
	}
	create.Flags().StringVar(&data, "data", "", "object payload as a JSON object")
	create.Flags().String("scope", "", "scope recorded on the object")

	get := &cobra.Command{
		Use:   "get <class/name>",
		Short: "Show an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := types.ParseObjectKey(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				o, err := s.GetObject(cmd.Context(), key)
				if err != nil {
					return err
				}
				// Objects always print as JSON so the payload stays readable.
				return writeJSON(cmd.OutOrStdout(), o)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <class>",
		Short: "List the objects of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Store) error {
				objects, err := s.ListObjects(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(cmd, objects, func(w io.Writer) error {
					rows := make([][]string, len(objects))
					for i, o := range objects {
						rows[i] = []string{o.Name, o.ObjectID, o.Scope}
					}
					return table(w, []string{"NAME", "ID", "SCOPE"}, rows)
				})
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <class/name>",
		Short: "Delete an object and its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := types.ParseObjectKey(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				if err := s.DeleteObject(cmd.Context(), key); err != nil {
					return err
				}
				return a.render(cmd, map[string]string{"deleted": key.String()}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "deleted object %s\n", key)
					return err
				})
			})
		},
	}

	cmd.AddCommand(create, get, list, del)
	return cmd
}
