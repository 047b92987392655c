package main

import (
	"bytes"
	"strings"

	"github.com/LdDl/streetnodes"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// loadConfig reads configuration from defaults, optional file and STREETNODES_* environment
func loadConfig(fileName string) (*streetnodes.Config, error) {
	v := viper.New()

	// Defaults
	defaults, err := yaml.Marshal(streetnodes.DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "config: marshal defaults")
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, errors.Wrap(err, "config: read defaults")
	}

	// Environment
	v.SetEnvPrefix("STREETNODES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional unless given explicitly)
	if fileName != "" {
		v.SetConfigFile(fileName)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrap(err, "config: read file")
		}
	} else {
		v.SetConfigName("streetnodes")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "config: read file")
			}
		}
	}

	var c streetnodes.Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	return &c, nil
}

// initLogger initializes the global zap logger
func initLogger(c streetnodes.LogConfig) error {
	var zapCfg zap.Config
	if c.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return errors.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return errors.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
