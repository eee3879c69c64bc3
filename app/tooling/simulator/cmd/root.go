// Package cmd contains the simulator command line tool.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	outputDir string
	seed      int64
	runs      int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "zsim", "Directory for csv and json results.")
	rootCmd.PersistentFlags().Int64VarP(&seed, "seed", "s", 0, "Override the scenario's base seed.")
	rootCmd.PersistentFlags().IntVarP(&runs, "runs", "r", 0, "Override the scenario's run count.")
}

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Overlapping coalition mining simulator",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
