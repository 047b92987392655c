package main

import (
	"fmt"
	"os"

	"github.com/LdDl/streetnodes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *streetnodes.Config
)

var rootCmd = &cobra.Command{
	Use:   "streetnodes",
	Short: "Street network node attribute enrichment",
	Long:  "Builds dual street network, enriches its nodes with geometry, administrative labels, population density, centralities and land use metrics and writes analysis-ready datasets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := initLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default is ./streetnodes.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
