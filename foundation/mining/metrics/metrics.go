// Package metrics collects per run results and aggregates repeated runs
// into means with standard errors.
package metrics

import "math"

// RunRecord captures the outcome of one simulation run.
type RunRecord struct {
	RunID            string  `json:"run_id"`
	Scenario         string  `json:"scenario"`
	Run              int     `json:"run"`
	Seed             int64   `json:"seed"`
	BlocksFound      int     `json:"blocks_found"`
	MinerEarnings    float64 `json:"miner_earnings"`
	SystemUtility    float64 `json:"system_utility"`
	ProviderRevenue  float64 `json:"provider_revenue"`
	ProviderUtility  float64 `json:"provider_utility"`
	AvgCoalitionSize float64 `json:"avg_coalition_size"`
	AvgBandwidthKiB  float64 `json:"avg_bandwidth_kib"`
	AvgNonceRange    float64 `json:"avg_nonce_range"`
}

// Stat holds the sample mean of a metric with its standard error.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
}

// Summary aggregates the records of repeated runs of one scenario.
type Summary struct {
	Scenario         string `json:"scenario"`
	Runs             int    `json:"runs"`
	BlocksFound      Stat   `json:"blocks_found"`
	MinerEarnings    Stat   `json:"miner_earnings"`
	SystemUtility    Stat   `json:"system_utility"`
	ProviderRevenue  Stat   `json:"provider_revenue"`
	ProviderUtility  Stat   `json:"provider_utility"`
	AvgCoalitionSize Stat   `json:"avg_coalition_size"`
	AvgBandwidthKiB  Stat   `json:"avg_bandwidth_kib"`
	AvgNonceRange    Stat   `json:"avg_nonce_range"`
}

// Aggregate reduces a set of run records to per metric means and standard
// errors. The scenario name is taken from the first record.
func Aggregate(records []RunRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	pick := func(fn func(r RunRecord) float64) Stat {
		values := make([]float64, len(records))
		for i, r := range records {
			values[i] = fn(r)
		}
		return stat(values)
	}

	return Summary{
		Scenario:         records[0].Scenario,
		Runs:             len(records),
		BlocksFound:      pick(func(r RunRecord) float64 { return float64(r.BlocksFound) }),
		MinerEarnings:    pick(func(r RunRecord) float64 { return r.MinerEarnings }),
		SystemUtility:    pick(func(r RunRecord) float64 { return r.SystemUtility }),
		ProviderRevenue:  pick(func(r RunRecord) float64 { return r.ProviderRevenue }),
		ProviderUtility:  pick(func(r RunRecord) float64 { return r.ProviderUtility }),
		AvgCoalitionSize: pick(func(r RunRecord) float64 { return r.AvgCoalitionSize }),
		AvgBandwidthKiB:  pick(func(r RunRecord) float64 { return r.AvgBandwidthKiB }),
		AvgNonceRange:    pick(func(r RunRecord) float64 { return r.AvgNonceRange }),
	}
}

// stat computes the sample mean and standard error. A single sample has no
// spread to estimate, so its standard error is zero.
func stat(values []float64) Stat {
	n := float64(len(values))

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	if len(values) < 2 {
		return Stat{Mean: mean}
	}

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	stdDev := math.Sqrt(ss / (n - 1))

	return Stat{Mean: mean, StdErr: stdDev / math.Sqrt(n)}
}
