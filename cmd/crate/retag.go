package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/crate/internal/retag"
)

func newRetagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retag",
		Short: "Replace \"/\" with \"-\" in genres of the electro export tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}
			res, err := retag.New(cfg.Paths.ExportElectro, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d files scanned, %d changed, %d failed\n",
				res.Scanned, res.Changed, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d files could not be retagged", res.Failed)
			}
			return nil
		},
	}
}
