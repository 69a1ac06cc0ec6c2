/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/karkinos-edge/authserver/config"
	"github.com/karkinos-edge/authserver/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "authserver",
	Short: "Karkinos Edge credential service",
	Long: `authserver registers accounts, checks logins and rotates passwords.

	authserver server
	authserver migrate up
	authserver events watch
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// loadConfig reads and validates the environment configuration and builds the
// logger every command uses.
func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg := config.LoadConfig()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
