// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chokosabe/settlementvm/consts"
)

var (
	ErrMissingSubcommand = errors.New("must specify a subcommand")

	config  = viper.New()
	rootCmd = &cobra.Command{
		Use:        "prediction-cli",
		Short:      "Prediction market settlement CLI",
		SuggestFor: []string{"prediction-cli", "predictioncli"},
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return loadConfig(c)
		},
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.PersistentFlags().String("config", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().Int("max-description-length", consts.MaxDescriptionLength, "maximum market description length in bytes, capped by the market record size")
	_ = config.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = config.BindPFlag("max_description_length", rootCmd.PersistentFlags().Lookup("max-description-length"))

	rootCmd.AddCommand(
		actionCmd,
		payoutCmd,
		simulateCmd,
	)
}

// loadConfig reads the optional config file named by c's --config flag and
// layers PREDICTION_ environment variables over it.
func loadConfig(c *cobra.Command) error {
	config.SetEnvPrefix("PREDICTION")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	config.AutomaticEnv()

	path, err := c.Flags().GetString("config")
	if err != nil || path == "" {
		return err
	}
	config.SetConfigFile(path)
	if err := config.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func newLogger() (logging.Logger, error) {
	level, err := logging.ToLevel(config.GetString("log_level"))
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(
		"prediction-cli",
		logging.NewWrappedCore(level, os.Stderr, logging.Plain.ConsoleEncoder()),
	), nil
}

func Execute() error {
	return rootCmd.Execute()
}
