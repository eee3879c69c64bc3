package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// csvHeader lists the run record columns in export order.
var csvHeader = []string{
	"run_id", "scenario", "run", "seed", "blocks_found", "miner_earnings",
	"system_utility", "provider_revenue", "provider_utility",
	"avg_coalition_size", "avg_bandwidth_kib", "avg_nonce_range",
}

// WriteCSV exports the run records as CSV rows with a header line.
func WriteCSV(w io.Writer, records []RunRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.RunID,
			r.Scenario,
			strconv.Itoa(r.Run),
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.BlocksFound),
			formatFloat(r.MinerEarnings),
			formatFloat(r.SystemUtility),
			formatFloat(r.ProviderRevenue),
			formatFloat(r.ProviderUtility),
			formatFloat(r.AvgCoalitionSize),
			formatFloat(r.AvgBandwidthKiB),
			formatFloat(r.AvgNonceRange),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.RunID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteJSON exports the summaries as indented JSON.
func WriteJSON(w io.Writer, summaries []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(summaries); err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
