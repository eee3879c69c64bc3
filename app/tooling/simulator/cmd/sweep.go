package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/poolsim/mining/foundation/mining/scenario"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every predefined scenario and export a combined summary.",
	Run:   sweepRun,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweepRun(cmd *cobra.Command, args []string) {
	var summaries []metrics.Summary

	for _, name := range scenario.Names() {
		s, err := scenario.Retrieve(name)
		if err != nil {
			log.Fatal(err)
		}

		summary, err := execute(s)
		if err != nil {
			log.Fatal(err)
		}

		printSummary(summary)
		summaries = append(summaries, summary)
	}

	path := filepath.Join(outputDir, "sweep-summary.json")
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := metrics.WriteJSON(f, summaries); err != nil {
		log.Fatal(err)
	}

	fmt.Println("sweep summary written to", path)
}
