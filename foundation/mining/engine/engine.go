// Package engine advances a single simulation run through its scheduling
// states. Everything stochastic flows through one random source so a run is
// a pure function of its scenario and seed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/poolsim/mining/foundation/mining/bandwidth"
	"github.com/poolsim/mining/foundation/mining/coalition"
	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/poolsim/mining/foundation/mining/miner"
	"github.com/poolsim/mining/foundation/mining/provider"
	"github.com/poolsim/mining/foundation/mining/scenario"
)

// List of scheduling states. A run is born warming up, switches to
// collecting exactly when the warmup steps are spent and ends finished.
// Finished is terminal.
const (
	StateWarmup     = "warmup"
	StateCollecting = "collecting"
	StateFinished   = "finished"
)

// ErrFinished is returned when a finished engine is asked to advance.
var ErrFinished = errors.New("run already finished")

// EventHandler defines a function that is called when interesting engine
// events occur.
type EventHandler func(v string, args ...any)

// Config represents the dependencies for a single run.
type Config struct {
	Scenario  scenario.Scenario
	Seed      int64
	Run       int
	EvHandler EventHandler
}

// Engine owns the full state of one run.
type Engine struct {
	cfg  scenario.Scenario
	seed int64
	run  int
	ev   EventHandler
	rng  *rand.Rand

	miners     []*miner.Miner
	coalitions []*coalition.Coalition
	prov       *provider.Provider
	demandFn   provider.DemandFunc
	ledger     *bandwidth.Ledger
	syncFn     bandwidth.Func

	state    string
	step     int
	nextTxID uint64

	// Accumulated over the collecting window only.
	blocksFound    int
	rewards        float64
	sizeSum        float64
	sizeSamples    int
	nonceSum       float64
	noncePurchases int
}

// New validates the scenario and constructs a run in its initial state.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Scenario.Validate(); err != nil {
		return nil, err
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	s := cfg.Scenario
	rng := rand.New(rand.NewSource(cfg.Seed))

	syncPolicy := bandwidth.SyncNaive
	if s.FilteredSync {
		syncPolicy = bandwidth.SyncFiltered
	}
	syncFn, err := bandwidth.Retrieve(syncPolicy)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	minerCfg := miner.Config{
		MaxCoalitions:  s.MaxCoalitions,
		SwitchOverhead: s.SwitchOverhead,
		InitialBalance: s.InitialBalance,
		FilterCapacity: s.FilterCapacity,
		FilterTarget:   s.FilterTarget,
	}

	miners := make([]*miner.Miner, s.Miners)
	for i := range miners {
		hashRate := s.HashRateMin + rng.Float64()*(s.HashRateMax-s.HashRateMin)
		m, err := miner.New(uint64(i+1), hashRate, minerCfg)
		if err != nil {
			return nil, fmt.Errorf("scenario %q miner %d: %w", s.Name, i+1, err)
		}
		miners[i] = m
	}

	var coalitions []*coalition.Coalition
	if s.MaxCoalitions > 0 {
		coalitions = make([]*coalition.Coalition, s.Miners)
		for i := range coalitions {
			c, err := coalition.New(uint64(i+1), s.SelectStrategy, s.Tolerance)
			if err != nil {
				return nil, fmt.Errorf("scenario %q coalition %d: %w", s.Name, i+1, err)
			}
			coalitions[i] = c
		}
	}

	var prov *provider.Provider
	var demandFn provider.DemandFunc
	if s.ProviderEnabled {
		prov, err = provider.New(provider.Config{
			Capacity:         s.ProviderCapacity,
			Price:            s.PricePerUnit,
			PriceMin:         s.PriceMin,
			PriceMax:         s.PriceMax,
			OperatingCost:    s.OperatingCost,
			DemandPolicy:     s.DemandPolicy,
			OverlapThreshold: s.OverlapThreshold,
			OverlapSavings:   s.OverlapSavings,
		})
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		demandFn, err = provider.RetrieveDemand(s.DemandPolicy)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	state := StateWarmup
	if s.Warmup == 0 {
		state = StateCollecting
	}

	e := Engine{
		cfg:        s,
		seed:       cfg.Seed,
		run:        cfg.Run,
		ev:         ev,
		rng:        rng,
		miners:     miners,
		coalitions: coalitions,
		prov:       prov,
		demandFn:   demandFn,
		ledger:     bandwidth.NewLedger(),
		syncFn:     syncFn,
		state:      state,
		nextTxID:   1,
	}

	ev("engine: new run: scenario[%s] run[%d] seed[%d] miners[%d]", s.Name, cfg.Run, cfg.Seed, s.Miners)

	return &e, nil
}

// State returns the current scheduling state.
func (e *Engine) State() string {
	return e.state
}

// Step returns the number of steps advanced so far.
func (e *Engine) Step() int {
	return e.step
}

// Ledger returns the run's bandwidth ledger.
func (e *Engine) Ledger() *bandwidth.Ledger {
	return e.ledger
}

// Run advances the engine until the run finishes or the context is canceled
// and returns the run's record.
func (e *Engine) Run(ctx context.Context) (metrics.RunRecord, error) {
	for e.state != StateFinished {
		if err := ctx.Err(); err != nil {
			return metrics.RunRecord{}, err
		}
		if err := e.Advance(); err != nil {
			return metrics.RunRecord{}, fmt.Errorf("scenario %q run %d step %d: %w", e.cfg.Name, e.run, e.step, err)
		}
	}

	return e.Record(), nil
}

// Advance executes one simulation step: block draw, transaction generation
// and pool sync, the decision cadence, the provider cadence and metrics
// accumulation, in that order.
func (e *Engine) Advance() error {
	if e.state == StateFinished {
		return ErrFinished
	}

	if e.state == StateWarmup && e.step >= e.cfg.Warmup {
		e.state = StateCollecting
		e.ev("engine: state transition: %s at step %d", StateCollecting, e.step)
	}

	networkHash := e.networkHash()

	e.drawBlock(networkHash)
	e.generateTxs()
	e.syncPools()

	if e.cfg.MaxCoalitions > 0 && e.step%e.cfg.DecisionCadence == 0 {
		for _, m := range e.miners {
			e.decide(m, networkHash)
		}
	}

	if e.prov != nil && e.step%e.cfg.ProviderCadence == 0 {
		e.providerTick()
	}

	if e.state == StateCollecting {
		e.accumulate()
	}

	e.step++
	if e.step >= e.cfg.Steps() {
		e.state = StateFinished
		e.ev("engine: state transition: %s at step %d", StateFinished, e.step)
	}

	return nil
}

// =============================================================================
// Block production

// networkHash returns the total hash rate currently competing for blocks:
// every populated coalition plus every miner mining on its own.
func (e *Engine) networkHash() float64 {
	var total float64
	for _, c := range e.coalitions {
		if c.Size() > 0 {
			total += c.EffectiveHashRate()
		}
	}
	for _, m := range e.miners {
		if m.MemberCount() == 0 {
			total += m.HashRate()
		}
	}

	return total
}

// drawBlock rolls for block discovery and, when one is found, picks the
// winner weighted by hash rate and distributes the reward. A network with no
// hash rate simply produces nothing this step.
func (e *Engine) drawBlock(networkHash float64) {
	if networkHash <= 0 {
		return
	}

	p := 1 - math.Exp(-networkHash/e.cfg.Difficulty)
	if e.rng.Float64() >= p {
		return
	}

	// Prefix sums over the competing entities, populated coalitions first
	// and solo miners after, both ordered by id.
	var prefix []float64
	var winners []func() float64
	var sum float64

	for _, c := range e.coalitions {
		if c.Size() == 0 {
			continue
		}
		sum += c.EffectiveHashRate()
		prefix = append(prefix, sum)
		c := c
		winners = append(winners, func() float64 { return e.rewardCoalition(c) })
	}
	for _, m := range e.miners {
		if m.MemberCount() != 0 {
			continue
		}
		sum += m.HashRate()
		prefix = append(prefix, sum)
		m := m
		winners = append(winners, func() float64 { return e.rewardSolo(m) })
	}

	if len(prefix) == 0 {
		return
	}

	target := e.rng.Float64() * sum
	idx := sort.SearchFloat64s(prefix, target)
	if idx >= len(winners) {
		idx = len(winners) - 1
	}

	reward := winners[idx]()

	// Everyone hears about the new block.
	for _, m := range e.miners {
		e.ledger.Add(e.step, m.ID(), bandwidth.KindBlock, e.cfg.BlockSize())
	}

	if e.state == StateCollecting {
		e.blocksFound++
		e.rewards += reward
	}
}

// rewardCoalition assembles a block from the coalition's pool and splits the
// reward plus the included fees across its members.
func (e *Engine) rewardCoalition(c *coalition.Coalition) float64 {
	txs := c.Pool().PickBest(e.cfg.TxPerBlock)

	var fees float64
	for _, t := range txs {
		fees += t.Fee
		c.Pool().Delete(t.ID)
	}

	reward := e.cfg.BlockReward + fees
	c.DistributeRewards(reward)

	e.ev("engine: block: coalition[%d] step[%d] reward[%.2f] txs[%d]", c.ID(), e.step, reward, len(txs))

	return reward
}

// rewardSolo credits a lone miner the base reward. Without a pool there are
// no fees to collect.
func (e *Engine) rewardSolo(m *miner.Miner) float64 {
	m.Credit(e.cfg.BlockReward)

	e.ev("engine: block: miner[%d] step[%d] reward[%.2f]", m.ID(), e.step, e.cfg.BlockReward)

	return e.cfg.BlockReward
}

// =============================================================================
// Reward rate

// rewardRate returns the expected reward per step for a coalition with the
// given effective hash rate. Coalitions collect fees on top of the base
// reward, which is what makes pooling worth the overhead.
func (e *Engine) rewardRate(coalitionHash, networkHash float64) float64 {
	return e.expectedRate(coalitionHash, networkHash, e.cfg.BlockReward+float64(e.cfg.TxPerBlock)*e.cfg.TxFeeMax/2)
}

// soloRate returns the expected reward per step for a miner working alone.
func (e *Engine) soloRate(hashRate, networkHash float64) float64 {
	return e.expectedRate(hashRate, networkHash, e.cfg.BlockReward)
}

func (e *Engine) expectedRate(entityHash, networkHash, expectedReward float64) float64 {
	if entityHash <= 0 || networkHash <= 0 {
		return 0
	}

	p := 1 - math.Exp(-networkHash/e.cfg.Difficulty)

	return entityHash / networkHash * p * expectedReward
}

// =============================================================================
// Metrics

// accumulate samples the per step metrics during the collecting window.
func (e *Engine) accumulate() {
	var sizes, populated int
	for _, c := range e.coalitions {
		if c.Size() > 0 {
			sizes += c.Size()
			populated++
		}
	}

	if populated > 0 {
		e.sizeSum += float64(sizes) / float64(populated)
	}
	e.sizeSamples++
}

// Record builds the run's result record. The bandwidth figure covers the
// collecting window only, warmup traffic is excluded.
func (e *Engine) Record() metrics.RunRecord {
	var earnings float64
	for _, m := range e.miners {
		earnings += m.NetEarnings()
	}

	rec := metrics.RunRecord{
		Scenario:        e.cfg.Name,
		Run:             e.run,
		Seed:            e.seed,
		BlocksFound:     e.blocksFound,
		MinerEarnings:   e.rewards,
		SystemUtility:   earnings,
		AvgBandwidthKiB: e.ledger.AverageThroughput(e.cfg.Warmup, e.cfg.Steps()),
	}

	if e.sizeSamples > 0 {
		rec.AvgCoalitionSize = e.sizeSum / float64(e.sizeSamples)
	}
	if e.noncePurchases > 0 {
		rec.AvgNonceRange = e.nonceSum / float64(e.noncePurchases)
	}
	if e.prov != nil {
		rec.ProviderRevenue = e.prov.Revenue()
		rec.ProviderUtility = e.prov.Utility()
		rec.SystemUtility += e.prov.Utility()
	}

	return rec
}
