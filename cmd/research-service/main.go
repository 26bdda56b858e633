// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-service binary.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/config"
	"github.com/pdiddy/research-service/internal/secrets"
	"github.com/pdiddy/research-service/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE once configuration is loaded.
var logger = zap.NewNop()

// rootCmd is the base command for the research-service CLI.
var rootCmd = &cobra.Command{
	Use:   "research-service",
	Short: "Deep web research as a service",
	Long: `research-service turns a question into a cited markdown report. It plans
search queries with a fast model, searches the web, scrapes and ranks the
pages, recurses on what it learned, and writes the report with a smart model.

Run "serve" for the HTTP API or "run" for a single research run in the
terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		config.ApplySecrets(viper.GetViper(), secrets.ConfigValues(s))

		l, err := newLogger(viper.GetString(config.KeyLogLevel))
		if err != nil {
			return err
		}
		logger = l
		if len(s) > 0 {
			logger.Debug("loaded secrets", zap.Strings("names", secrets.Names(s)))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-service.yaml or ~/.config/research-service/research-service.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-service")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-service"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_SERVICE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the typed configuration for the current command.
func loadConfig() (types.ServiceConfig, error) {
	return config.FromViper(viper.GetViper())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
