package metrics_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records() []metrics.RunRecord {
	return []metrics.RunRecord{
		{RunID: "a", Scenario: "naive-j3", Run: 0, Seed: 1, BlocksFound: 10, MinerEarnings: 100, AvgBandwidthKiB: 2},
		{RunID: "b", Scenario: "naive-j3", Run: 1, Seed: 2, BlocksFound: 14, MinerEarnings: 140, AvgBandwidthKiB: 4},
		{RunID: "c", Scenario: "naive-j3", Run: 2, Seed: 3, BlocksFound: 12, MinerEarnings: 120, AvgBandwidthKiB: 6},
	}
}

func TestAggregate(t *testing.T) {
	sum := metrics.Aggregate(records())

	assert.Equal(t, "naive-j3", sum.Scenario)
	assert.Equal(t, 3, sum.Runs)
	assert.InDelta(t, 12.0, sum.BlocksFound.Mean, 1e-9)
	assert.InDelta(t, 120.0, sum.MinerEarnings.Mean, 1e-9)

	// Sample std dev of {2,4,6} is 2, so the standard error is 2/sqrt(3).
	assert.InDelta(t, 4.0, sum.AvgBandwidthKiB.Mean, 1e-9)
	assert.InDelta(t, 1.1547005, sum.AvgBandwidthKiB.StdErr, 1e-6)
}

func TestAggregateEdges(t *testing.T) {
	assert.Equal(t, metrics.Summary{}, metrics.Aggregate(nil))

	sum := metrics.Aggregate(records()[:1])
	assert.Equal(t, 1, sum.Runs)
	assert.Equal(t, 0.0, sum.BlocksFound.StdErr, "one sample has no spread estimate")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, metrics.WriteCSV(&buf, records()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "run_id,scenario,run,seed,blocks_found"))
	assert.True(t, strings.HasPrefix(lines[1], "a,naive-j3,0,1,10,100.0000"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, metrics.WriteJSON(&buf, []metrics.Summary{metrics.Aggregate(records())}))

	var decoded []metrics.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "naive-j3", decoded[0].Scenario)
	assert.InDelta(t, 12.0, decoded[0].BlocksFound.Mean, 1e-9)
}
