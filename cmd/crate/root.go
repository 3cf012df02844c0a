package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/cleanup"
	"github.com/llehouerou/crate/internal/daemon"
	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/history"
	"github.com/llehouerou/crate/internal/importer"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var once bool

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "crate",
		Short:         "Sort incoming albums into the music library",
		Long:          "Runs the import and cleanup pipelines on a schedule until interrupted.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			matcher := catalog.NewClient(cfg.CatalogSettings())
			imp := importer.New(importer.Config{
				ImportRoot:  cfg.Paths.Import,
				TodoRoot:    cfg.Paths.Todo,
				ElectroRoot: cfg.Paths.ExportElectro,
				GeneralRoot: cfg.Paths.ExportGeneral,
				Layout:      cfg.LayoutSettings(),
			}, matcher, logger)
			cl := cleanup.New(cleanup.Config{
				TodoRoot:    cfg.Paths.Todo,
				ElectroRoot: cfg.Paths.ExportElectro,
				Layout:      cfg.LayoutSettings(),
			}, logger)

			var rec daemon.Recorder
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("%s: %w", errmsg.OpHistoryOpen, err)
				}
				defer store.Close()
				rec = store
			}

			d := daemon.New(daemon.Options{
				Interval: cfg.Schedule.Interval,
				LockFile: cfg.LockFile,
			}, imp, cl, rec, logger)
			if once {
				return d.RunOnce(sigCtx)
			}
			return d.Run(sigCtx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")

	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newRetagCommand(ctx))

	return rootCmd
}
