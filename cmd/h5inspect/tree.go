package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5/h5"
)

func newTreeCommand(a *app) *cobra.Command {
	var showStorage bool
	cmd := &cobra.Command{
		Use:   "tree <file> [group]",
		Short: "List the groups and datasets below a group",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			start := f.Root()
			if len(args) == 2 && h5.CleanPath(args[1]) != "/" {
				g, err := f.OpenGroup(args[1])
				if err != nil {
					return err
				}
				defer g.Close()
				start = g
			}
			base := len(h5.SplitPath(start.Path()))

			out := cmd.OutOrStdout()
			return h5.Walk(start, func(path string, obj any, err error) error {
				if err != nil {
					fmt.Fprintf(out, "%s [error: %v]\n", path, err)
					return nil
				}
				depth := len(h5.SplitPath(path)) - base
				indent := strings.Repeat("  ", max(depth, 0))
				switch o := obj.(type) {
				case *h5.Group:
					name := o.Name()
					if depth > 0 {
						name += "/"
					}
					fmt.Fprintf(out, "%s%s\n", indent, name)
				case *h5.Dataset:
					desc, err := o.Descriptor()
					if err != nil {
						return err
					}
					line := fmt.Sprintf("%s%s  %s %v", indent, o.Name(), desc.Type, desc.Dims)
					if showStorage {
						st, err := o.Storage()
						if err != nil {
							return err
						}
						line += "  " + formatStorage(st)
					}
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&showStorage, "storage", "s", false, "show layout and filters of datasets")
	return cmd
}

func formatStorage(st h5.Storage) string {
	s := st.Layout
	if len(st.Chunks) > 0 {
		s += fmt.Sprintf("%v", st.Chunks)
	}
	if len(st.Filters) > 0 {
		s += " " + strings.Join(st.Filters, "+")
	}
	return s
}
