package main

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5/h5"
)

func newMkgroupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkgroup <file> <group>...",
		Short: "Create groups and any missing parents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openWritable(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			for _, p := range args[1:] {
				g, err := f.OpenGroup(p)
				if err != nil {
					return err
				}
				g.Close()
			}
			return nil
		},
	}
}

func newCreateCommand(a *app) *cobra.Command {
	var (
		typeName string
		shape    string
		fill     string
		layout   string
		chunks   string
	)
	cmd := &cobra.Command{
		Use:   "create <file> <dataset>",
		Short: "Create a dataset",
		Long: `Create a dataset with a fixed element type and shape.

Layout and filters default to the dataset section of the config file.
--layout and --chunks override the configured layout.

Examples:
  h5inspect create run.h5db /run1/temperature --type float64
  h5inspect create run.h5db /run1/grid --type int32 --shape 3,4 --fill 0
  h5inspect create run.h5db /big --type uint16 --shape 1000,1000 --chunks 100,100`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := h5.ParseType(typeName)
			if err != nil {
				return err
			}
			dims, err := parseDims(shape)
			if err != nil {
				return fmt.Errorf("--shape: %w", err)
			}
			opts := a.cfg.DatasetOptions()
			switch {
			case chunks != "":
				c, err := parseDims(chunks)
				if err != nil {
					return fmt.Errorf("--chunks: %w", err)
				}
				opts = append(opts, h5.WithChunks(c...))
			case layout == "compact":
				opts = append(opts, h5.WithCompact())
			case layout == "contiguous":
				opts = append(opts, h5.WithContiguous())
			case layout != "":
				return fmt.Errorf("--layout: unknown layout %q", layout)
			}
			if len(dims) == 0 && chunks == "" && layout == "" {
				// scalars keep their compact default
				opts = scalarOptions(a)
			}

			f, err := a.openWritable(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			dir, name := path.Split(h5.CleanPath(args[1]))
			parent, err := f.OpenGroup(dir)
			if err != nil {
				return err
			}
			defer parent.Close()
			o, err := opsFor(t)
			if err != nil {
				return err
			}
			if err := o.create(parent, name, dims, fill, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s %v\n", h5.JoinPath(parent.Path(), name), t, dims)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "float64", "element type, e.g. int32, uint8, float64")
	cmd.Flags().StringVar(&shape, "shape", "", "comma-separated extents; empty for a scalar")
	cmd.Flags().StringVar(&fill, "fill", "", "initial value of every element")
	cmd.Flags().StringVar(&layout, "layout", "", "compact or contiguous")
	cmd.Flags().StringVar(&chunks, "chunks", "", "comma-separated chunk extents")
	return cmd
}

// scalarOptions drops the configured layout, which cannot apply to a
// scalar when it is chunked.
func scalarOptions(a *app) []h5.DatasetOption {
	if strings.EqualFold(a.cfg.Dataset.Layout, "chunked") {
		return nil
	}
	return a.cfg.DatasetOptions()
}

func parseDims(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var dims []uint64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad extent %q", part)
		}
		dims = append(dims, n)
	}
	return dims, nil
}
