package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig       string
	flagLogLevel     string
	flagVersionCheck bool
)

var rootCmd = &cobra.Command{
	Use:   "winisorts",
	Short: "Classify research papers and browse a shared library",
	Long: `winisorts sends research-paper abstracts to a classifier, files the result in a
shared library and shows the library live, filterable by discipline,
methodology and category.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	versionCmd.Flags().BoolVar(&flagVersionCheck, "check", false, "check whether a newer release is available")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifierCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("winisorts %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagVersionCheck {
			return nil
		}
		res, err := update.Check(cmd.Context(), update.ReleasesURL, version)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Println("You are on the latest release.")
			return nil
		}
		fmt.Printf("Update available: v%s %s\n", res.LatestVersion, res.URL)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
