// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the arxiv-harvester CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the arxiv-harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "arxiv-harvester",
	Short: "Periodic arXiv paper harvesting with dedup and notifications",
	Long: `arxiv-harvester periodically queries the arXiv API, stores newly observed
papers in a local SQLite database with normalized author and category
relations, and posts the delta to a Slack webhook on a configured cadence.

The harvest command runs one scheduled cycle; papers subcommands query the
local store; backup copies the database file.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./arxiv-harvester.yaml or ~/.config/arxiv-harvester/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the papers database (default: papers.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("arxiv-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "arxiv-harvester"))
		}
	}

	viper.SetDefault("db_path", "papers.db")
	viper.SetDefault("state_file", "harvester-state.json")

	viper.SetEnvPrefix("ARXIV_HARVESTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// dbPath resolves the database path: flag first, then config.
func dbPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path
	}
	return viper.GetString("db_path")
}

// clientConfig builds the search client settings from config.
func clientConfig() types.ClientConfig {
	return types.ClientConfig{
		BaseURL:    viper.GetString("client.base_url"),
		Timeout:    viper.GetDuration("client.timeout"),
		UserAgent:  viper.GetString("client.user_agent"),
		PageDelay:  viper.GetDuration("client.page_delay"),
		PageSize:   viper.GetInt("client.page_size"),
		MaxRetries: viper.GetInt("client.max_retries"),
	}.WithDefaults()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// parseDate parses a YYYY-MM-DD flag value.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}
