package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LdDl/streetnodes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var routeAngular bool

var routeCmd = &cobra.Command{
	Use:   "route <from> <to>",
	Short: "Find path between two dual nodes of the street network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline, err := streetnodes.NewPipeline(*cfg, streetnodes.WithLogger(zap.L()))
		if err != nil {
			return errors.Wrap(err, "route: prepare pipeline")
		}
		route, err := pipeline.Route(ctx, args[0], args[1], routeAngular)
		if err != nil {
			return errors.Wrap(err, "route")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "distance=%.2f angle=%.2f\n%s\n", route.Distance, route.Angle, strings.Join(route.Keys, ";"))
		return nil
	},
}

func init() {
	routeCmd.Flags().BoolVar(&routeAngular, "angular", false, "minimise cumulative turning angle instead of length")
	rootCmd.AddCommand(routeCmd)
}
