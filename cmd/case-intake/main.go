// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the case-intake CLI.
// Subcommands: process (one-shot), watch (drop folder), history (ledger),
// version.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds the SMTP credential key files.
const secretsDir = ".secrets/"

// loadedSecrets holds credentials loaded from secretsDir at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the case-intake CLI.
var rootCmd = &cobra.Command{
	Use:   "case-intake",
	Short: "Validate and extract case file archives",
	Long: `case-intake takes ZIP archives of case documents, validates the party.xml
metadata inside against the party schema, and extracts whitelisted case files
into a new folder named after the application number. Every run ends with a
status report to the administrator.

Use process for one-shot runs, watch to serve a drop folder, and history to
review past outcomes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Logger.Debugw("Loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./case-intake.yaml or ~/.config/case-intake/case-intake.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("case-intake")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "case-intake"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("CASE_INTAKE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
