package main

import (
	"strings"

	"github.com/LdDl/streetnodes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Prepare pedestrian counting stations allocated to network nodes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		options := []func(*streetnodes.PedCountsReader){
			streetnodes.WithPedCountsLogger(zap.L()),
		}
		if len(cfg.Counts.Allocation) > 0 {
			options = append(options, streetnodes.WithAllocation(stationAllocation(cfg.Counts.Allocation)))
		}
		counts, err := streetnodes.NewPedCountsReader(options...).ReadFile(cfg.Counts.Input)
		if err != nil {
			return errors.Wrap(err, "counts: read")
		}
		if err := streetnodes.WritePedCounts(cfg.Counts.Output, counts); err != nil {
			return errors.Wrap(err, "counts: write")
		}
		zap.L().Info("Counts written", zap.String("file", cfg.Counts.Output), zap.Int("rows", counts.Len()))
		return nil
	},
}

// stationAllocation restores upper case of station identifiers: viper lowercases map keys
func stationAllocation(allocation map[string]string) map[string]string {
	out := make(map[string]string, len(allocation))
	for station, key := range allocation {
		out[strings.ToUpper(station)] = key
	}
	return out
}

func init() {
	rootCmd.AddCommand(countsCmd)
}
