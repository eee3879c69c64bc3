package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/poolsim/mining/foundation/mining/runner"
	"github.com/poolsim/mining/foundation/mining/scenario"
	"github.com/spf13/cobra"
)

var scenarioFile string

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run one scenario batch and export its results.",
	Args:  cobra.MaximumNArgs(1),
	Run:   runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&scenarioFile, "file", "f", "", "Path to a scenario json file.")
}

func runRun(cmd *cobra.Command, args []string) {
	var s scenario.Scenario
	var err error

	switch {
	case scenarioFile != "":
		s, err = scenario.Load(scenarioFile)
	case len(args) == 1:
		s, err = scenario.Retrieve(args[0])
	default:
		s, err = scenario.Retrieve(scenario.NaiveJ3)
	}
	if err != nil {
		log.Fatal(err)
	}

	summary, err := execute(s)
	if err != nil {
		log.Fatal(err)
	}

	printSummary(summary)
}

// execute runs the batch and writes its csv and json artifacts.
func execute(s scenario.Scenario) (metrics.Summary, error) {
	if seed != 0 {
		s.Seed = seed
	}
	if runs != 0 {
		s.Runs = runs
	}

	result, err := runner.Run(context.Background(), runner.Config{Scenario: s})
	if err != nil && len(result.Records) == 0 {
		return metrics.Summary{}, err
	}
	if result.Failed > 0 {
		fmt.Printf("warning: %d of %d runs failed\n", result.Failed, s.Runs)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return metrics.Summary{}, err
	}

	cf, err := os.Create(filepath.Join(outputDir, s.Name+"-runs.csv"))
	if err != nil {
		return metrics.Summary{}, err
	}
	defer cf.Close()
	if err := metrics.WriteCSV(cf, result.Records); err != nil {
		return metrics.Summary{}, err
	}

	jf, err := os.Create(filepath.Join(outputDir, s.Name+"-summary.json"))
	if err != nil {
		return metrics.Summary{}, err
	}
	defer jf.Close()
	if err := metrics.WriteJSON(jf, []metrics.Summary{result.Summary}); err != nil {
		return metrics.Summary{}, err
	}

	return result.Summary, nil
}

func printSummary(sum metrics.Summary) {
	fmt.Printf("scenario: %s (%d runs)\n", sum.Scenario, sum.Runs)
	fmt.Printf("  blocks found:       %8.2f ± %.2f\n", sum.BlocksFound.Mean, sum.BlocksFound.StdErr)
	fmt.Printf("  miner earnings:     %8.2f ± %.2f\n", sum.MinerEarnings.Mean, sum.MinerEarnings.StdErr)
	fmt.Printf("  system utility:     %8.2f ± %.2f\n", sum.SystemUtility.Mean, sum.SystemUtility.StdErr)
	fmt.Printf("  provider revenue:   %8.2f ± %.2f\n", sum.ProviderRevenue.Mean, sum.ProviderRevenue.StdErr)
	fmt.Printf("  coalition size:     %8.2f ± %.2f\n", sum.AvgCoalitionSize.Mean, sum.AvgCoalitionSize.StdErr)
	fmt.Printf("  bandwidth KiB/s:    %8.2f ± %.2f\n", sum.AvgBandwidthKiB.Mean, sum.AvgBandwidthKiB.StdErr)
	fmt.Printf("  nonce range units:  %8.2f ± %.2f\n", sum.AvgNonceRange.Mean, sum.AvgNonceRange.StdErr)
}
