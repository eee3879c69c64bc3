// Package runner executes the repeated runs of a scenario in parallel and
// aggregates their records. Runs are independent, run i always uses seed
// base+i so a batch is as reproducible as a single run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/poolsim/mining/foundation/mining/engine"
	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/poolsim/mining/foundation/mining/scenario"
)

// Config represents the dependencies for a batch.
type Config struct {
	Scenario  scenario.Scenario
	EvHandler engine.EventHandler
}

// Result carries the successful run records with their aggregate. A failed
// run aborts only itself, the rest of the batch still counts.
type Result struct {
	Records []metrics.RunRecord
	Summary metrics.Summary
	Failed  int
}

// Run executes every repetition of the scenario and aggregates the
// outcomes. The returned error joins the per run failures, if any.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Scenario.Validate(); err != nil {
		return Result{}, err
	}

	n := cfg.Scenario.Runs
	records := make([]metrics.RunRecord, n)
	failures := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(run int) {
			defer wg.Done()

			e, err := engine.New(engine.Config{
				Scenario:  cfg.Scenario,
				Seed:      cfg.Scenario.Seed + int64(run),
				Run:       run,
				EvHandler: cfg.EvHandler,
			})
			if err != nil {
				failures[run] = fmt.Errorf("scenario %q run %d: %w", cfg.Scenario.Name, run, err)
				return
			}

			rec, err := e.Run(ctx)
			if err != nil {
				failures[run] = err
				return
			}

			rec.RunID = uuid.NewString()
			records[run] = rec
		}(i)
	}

	wg.Wait()

	var result Result
	for i := 0; i < n; i++ {
		if failures[i] != nil {
			result.Failed++
			continue
		}
		result.Records = append(result.Records, records[i])
	}
	result.Summary = metrics.Aggregate(result.Records)

	return result, errors.Join(failures...)
}
