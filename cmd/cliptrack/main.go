package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	sessionPath string
	configPath  string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "cliptrack",
	Short:         "cliptrack edits multi-track audio / MIDI clip sessions.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sessionPath, "session", "s", "session.yml", "Session file to operate on.")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	rootCmd.AddCommand(newCmd, infoCmd, importCmd, splitCmd, normalizeCmd, quantizeCmd, mergeCmd, exportCmd, playCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
