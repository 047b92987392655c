package main

import (
	"github.com/LdDl/streetnodes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var premisesCmd = &cobra.Command{
	Use:   "premises",
	Short: "Translate premises into English schema and write them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Input.Premises == "" || cfg.Output.Premises == "" {
			return errors.Wrap(streetnodes.ErrInvalidConfig, "premises: input.premises and output.premises are required")
		}
		schema, err := streetnodes.DefaultLandUseSchema()
		if cfg.LandUse.Schema != "" {
			schema, err = streetnodes.LoadLandUseSchema(cfg.LandUse.Schema)
		}
		if err != nil {
			return errors.Wrap(err, "premises: load schema")
		}
		layer, err := streetnodes.ReadLayer(cfg.Input.Premises)
		if err != nil {
			return errors.Wrap(err, "premises: read")
		}
		raw, err := layer.Premises()
		if err != nil {
			return errors.Wrap(err, "premises: prepare")
		}
		translator := streetnodes.NewLandUseTranslator(schema, streetnodes.WithTranslatorLogger(zap.L()))
		translated, err := translator.Translate(raw)
		if err != nil {
			return errors.Wrap(err, "premises: translate")
		}
		publisher := streetnodes.NewPublisher(uuid.New().String(), zap.L())
		if err := streetnodes.WriteDataset(publisher.Stage(cfg.Output.Premises), "premises", translated.Dataset(), cfg.Output.SRID); err != nil {
			publisher.Abort()
			return errors.Wrap(err, "premises: write")
		}
		if err := publisher.Commit(); err != nil {
			publisher.Abort()
			return errors.Wrap(err, "premises: publish")
		}
		zap.L().Info("Premises written", zap.Int("read", raw.Len()), zap.Int("kept", translated.Len()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(premisesCmd)
}
