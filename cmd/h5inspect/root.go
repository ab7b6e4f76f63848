package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5/h5"
	"github.com/robert-malhotra/go-h5/internal/config"
)

// app holds state shared by all subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "h5inspect",
		Short: "Inspect and edit h5 store files",
		Long: `h5inspect lists, reads and creates groups and datasets in h5 store files.

Examples:
  h5inspect tree run.h5db
  h5inspect show run.h5db /run1/grid --window "0:2,:"
  h5inspect mkgroup run.h5db /run1
  h5inspect create run.h5db /run1/grid --type float64 --shape 3,4
  h5inspect write run.h5db /run1/temperature 310.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(a.cfgFile)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (default: built-in defaults)")

	root.AddCommand(
		newTreeCommand(a),
		newShowCommand(a),
		newMkgroupCommand(a),
		newCreateCommand(a),
		newWriteCommand(a),
	)
	return root
}

func (a *app) open(path string) (*h5.File, error) {
	return h5.Open(path, h5.WithLogger(a.logger))
}

func (a *app) openWritable(path string) (*h5.File, error) {
	return h5.Create(path, h5.WithLogger(a.logger))
}
