package main

import (
	"path"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5/h5"
)

func newShowCommand(a *app) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "show <file> <dataset>",
		Short: "Print the values of a dataset",
		Long: `Print the values of a dataset, optionally restricted to a window.

The window takes one slice per dimension, separated by commas:
  3        index 3
  2:6      elements 2 to 5
  ::2      every other element
  -1       the last element
Dimensions left out are printed whole.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			d, err := f.OpenDataset(args[1])
			if err != nil {
				return err
			}
			defer d.Close()
			o, err := opsFor(d.Type())
			if err != nil {
				return err
			}
			return o.show(cmd.OutOrStdout(), d, window)
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "", `selection such as "0:2,:"`)
	return cmd
}

func newWriteCommand(a *app) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "write <file> <dataset> <value>...",
		Short: "Write values into an existing dataset",
		Long: `Write values into an existing dataset in row-major order.

The dataset must already exist; create it first with "h5inspect create".
Without --window the values must fill the whole dataset. Values may be
given as separate arguments or comma-separated.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := h5.OpenReadWrite(args[0], h5.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer f.Close()

			d, err := f.OpenDataset(args[1])
			if err != nil {
				return err
			}
			t := d.Type()
			d.Close()
			o, err := opsFor(t)
			if err != nil {
				return err
			}
			dir, name := path.Split(h5.CleanPath(args[1]))
			parent, err := f.OpenGroup(dir)
			if err != nil {
				return err
			}
			defer parent.Close()
			return o.write(parent, name, args[2:], window)
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "", "write only this selection")
	return cmd
}
