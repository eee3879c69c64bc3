package engine_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/poolsim/mining/foundation/mining/engine"
	"github.com/poolsim/mining/foundation/mining/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testScenario shrinks the defaults so a run finishes fast and blocks are
// frequent enough to exercise the reward path.
func testScenario(name string) scenario.Scenario {
	s := scenario.Defaults(name)
	s.Miners = 10
	s.Warmup = 5
	s.Collection = 25
	s.DecisionCadence = 5
	s.ProviderCadence = 5
	s.Difficulty = 2e9
	s.Seed = 7
	s.Runs = 1

	return s
}

func TestDeterminism(t *testing.T) {
	runOnce := func() (any, []string) {
		var events []string
		ev := func(v string, args ...any) {
			events = append(events, fmt.Sprintf(v, args...))
		}

		e, err := engine.New(engine.Config{Scenario: testScenario("determinism"), Seed: 42, EvHandler: ev})
		require.NoError(t, err)

		rec, err := e.Run(context.Background())
		require.NoError(t, err)

		return rec, events
	}

	rec1, events1 := runOnce()
	rec2, events2 := runOnce()

	assert.Equal(t, rec1, rec2, "same scenario and seed must reproduce the run record")
	assert.Equal(t, events1, events2, "same scenario and seed must reproduce the event sequence")
}

func TestStateMachine(t *testing.T) {
	s := testScenario("states")
	s.Warmup = 3
	s.Collection = 4

	e, err := engine.New(engine.Config{Scenario: s, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, engine.StateWarmup, e.State())

	// The collecting window opens exactly when the warmup steps are spent.
	for i := 0; i < s.Warmup; i++ {
		require.NoError(t, e.Advance())
	}
	assert.Equal(t, engine.StateWarmup, e.State())
	require.NoError(t, e.Advance())
	assert.Equal(t, engine.StateCollecting, e.State())

	for e.State() != engine.StateFinished {
		require.NoError(t, e.Advance())
	}
	assert.Equal(t, s.Steps(), e.Step())

	// Finished is terminal.
	assert.ErrorIs(t, e.Advance(), engine.ErrFinished)
}

func TestZeroWarmupStartsCollecting(t *testing.T) {
	s := testScenario("no-warmup")
	s.Warmup = 0

	e, err := engine.New(engine.Config{Scenario: s, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, engine.StateCollecting, e.State())
}

func TestNonCooperative(t *testing.T) {
	s := testScenario("solo")
	s.MaxCoalitions = 0
	s.ProviderEnabled = false
	s.Warmup = 0
	s.Collection = 30

	e, err := engine.New(engine.Config{Scenario: s, Seed: 3})
	require.NoError(t, err)

	rec, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, rec.BlocksFound, 0)
	assert.Equal(t, 0.0, rec.AvgCoalitionSize, "no coalitions can form with a zero cap")
	assert.Equal(t, 0.0, rec.ProviderRevenue)
	assert.Equal(t, 0.0, rec.AvgNonceRange)

	// Solo winners collect the base reward and nothing else.
	assert.InDelta(t, float64(rec.BlocksFound)*s.BlockReward, rec.MinerEarnings, 1e-6)
	assert.InDelta(t, rec.MinerEarnings, rec.SystemUtility, 1e-6)
}

func TestBlockRateWithinExpectation(t *testing.T) {
	s := testScenario("block-rate")
	s.MaxCoalitions = 0
	s.ProviderEnabled = false
	s.Warmup = 0
	s.Collection = 200

	e, err := engine.New(engine.Config{Scenario: s, Seed: 21})
	require.NoError(t, err)

	rec, err := e.Run(context.Background())
	require.NoError(t, err)

	// With no cooperation the network hash rate is fixed at creation, so the
	// block count is binomial with a per step probability bounded by the two
	// hash rate extremes. Four standard deviations around those bounds gives
	// a band a healthy run cannot miss.
	steps := float64(s.Collection)
	pLo := 1 - math.Exp(-float64(s.Miners)*s.HashRateMin/s.Difficulty)
	pHi := 1 - math.Exp(-float64(s.Miners)*s.HashRateMax/s.Difficulty)

	lo := steps*pLo - 4*math.Sqrt(steps*pLo*(1-pLo))
	hi := steps*pHi + 4*math.Sqrt(steps*pHi*(1-pHi))

	assert.GreaterOrEqual(t, float64(rec.BlocksFound), lo, "block count below the difficulty tuned band")
	assert.LessOrEqual(t, float64(rec.BlocksFound), hi, "block count above the difficulty tuned band")
}

func TestFilteredCheaperThanNaive(t *testing.T) {
	run := func(filtered bool) float64 {
		s := testScenario("sync")
		s.ProviderEnabled = false
		s.FilteredSync = filtered
		s.Difficulty = 15e9
		s.Collection = 40

		e, err := engine.New(engine.Config{Scenario: s, Seed: 11})
		require.NoError(t, err)

		rec, err := e.Run(context.Background())
		require.NoError(t, err)

		return rec.AvgBandwidthKiB
	}

	naive := run(false)
	filtered := run(true)

	// The billing policy is the only difference between the two runs, the
	// random draws are identical. Shipping a filter plus the deltas instead
	// of full pools must cut traffic by at least an order of magnitude.
	assert.Greater(t, naive, 0.0)
	assert.LessOrEqual(t, filtered*10, naive)
}

func TestFlatBandwidthScaling(t *testing.T) {
	run := func(maxJ int) float64 {
		s := testScenario("scaling")
		s.ProviderEnabled = false
		s.FilteredSync = true
		s.MaxCoalitions = maxJ
		s.Difficulty = 15e9
		s.Collection = 40

		e, err := engine.New(engine.Config{Scenario: s, Seed: 11})
		require.NoError(t, err)

		rec, err := e.Run(context.Background())
		require.NoError(t, err)

		return rec.AvgBandwidthKiB
	}

	b3 := run(3)
	b7 := run(7)
	require.Greater(t, b3, 0.0)

	// Filter based sync pays per missing transaction, not per membership, so
	// raising the membership cap must leave the per miner traffic flat.
	assert.LessOrEqual(t, math.Abs(b7-b3)/b3, 0.10)
}

func TestProviderMarket(t *testing.T) {
	s := testScenario("market")
	s.Warmup = 0

	e, err := engine.New(engine.Config{Scenario: s, Seed: 5})
	require.NoError(t, err)

	rec, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, rec.ProviderRevenue, 0.0, "populated coalitions buy compute every provider cadence")
	assert.Greater(t, rec.AvgNonceRange, 0.0)
	assert.Greater(t, rec.AvgCoalitionSize, 0.0)
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := engine.New(engine.Config{Scenario: testScenario("canceled"), Seed: 1})
	require.NoError(t, err)

	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadScenarioRejected(t *testing.T) {
	s := testScenario("broken")
	s.Miners = 0

	_, err := engine.New(engine.Config{Scenario: s})
	assert.Error(t, err)
}
