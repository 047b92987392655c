package main

import (
	"os/signal"
	"syscall"

	"github.com/LdDl/streetnodes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runGeometry string
	runPolicy   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full enrichment pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runGeometry != "" {
			cfg.Finalize.Geometry = runGeometry
		}
		if runPolicy != "" {
			cfg.Finalize.Policy = runPolicy
		}
		pipeline, err := streetnodes.NewPipeline(*cfg, streetnodes.WithLogger(zap.L()))
		if err != nil {
			return errors.Wrap(err, "run: prepare pipeline")
		}
		zap.L().Info("Run started", zap.String("run_id", pipeline.RunID()), zap.String("streets", cfg.Input.Streets))
		result, err := pipeline.Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "run %s", pipeline.RunID())
		}
		zap.L().Info("Run finished",
			zap.String("run_id", result.RunID),
			zap.Int("nodes", result.Nodes),
			zap.Int("full", result.Full.Len()),
			zap.Int("subset", result.Subset.Len()),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runGeometry, "geometry", "", "output geometry: line or point (overrides finalize.geometry)")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "row filter: live_and_district or district_only (overrides finalize.policy)")
	rootCmd.AddCommand(runCmd)
}
