package cmd

import (
	"fmt"

	"github.com/poolsim/mining/foundation/mining/bandwidth"
	"github.com/poolsim/mining/foundation/mining/provider"
	"github.com/poolsim/mining/foundation/mining/scenario"
	"github.com/poolsim/mining/foundation/mining/txpool/selector"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the predefined scenarios and the pluggable policies.",
	Run:   listRun,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listRun(cmd *cobra.Command, args []string) {
	fmt.Println("scenarios:")
	for _, name := range scenario.Names() {
		s, err := scenario.Retrieve(name)
		if err != nil {
			continue
		}
		sync := bandwidth.SyncNaive
		if s.FilteredSync {
			sync = bandwidth.SyncFiltered
		}
		fmt.Printf("  %-16s cap=%d sync=%s provider=%t\n", name, s.MaxCoalitions, sync, s.ProviderEnabled)
	}

	fmt.Println("sync policies:")
	fmt.Printf("  %s, %s\n", bandwidth.SyncNaive, bandwidth.SyncFiltered)

	fmt.Println("demand policies:")
	fmt.Printf("  %s, %s\n", provider.DemandConstant, provider.DemandScaled)

	fmt.Println("select strategies:")
	fmt.Printf("  %s\n", selector.StrategyFee)
}
