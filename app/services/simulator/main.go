package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/poolsim/mining/foundation/logger"
	"github.com/poolsim/mining/foundation/mining/metrics"
	"github.com/poolsim/mining/foundation/mining/runner"
	"github.com/poolsim/mining/foundation/mining/scenario"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("SIMULATOR")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Sim struct {
			Scenario  string `conf:"default:naive-j3,help:predefined scenario name"`
			File      string `conf:"help:path to a scenario json file overriding the name"`
			OutputDir string `conf:"default:zsim,help:directory for csv and json results"`
			Verbose   bool   `conf:"default:false,help:log every engine event"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "overlapping coalition mining simulator",
		},
	}

	const prefix = "SIMULATOR"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting simulator", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Scenario Support

	var s scenario.Scenario
	switch {
	case cfg.Sim.File != "":
		s, err = scenario.Load(cfg.Sim.File)
		if err != nil {
			return fmt.Errorf("loading scenario file: %w", err)
		}
	default:
		s, err = scenario.Retrieve(cfg.Sim.Scenario)
		if err != nil {
			return fmt.Errorf("retrieving scenario: %w", err)
		}
	}

	log.Infow("startup", "scenario", s.Name, "miners", s.Miners, "cap", s.MaxCoalitions, "runs", s.Runs, "seed", s.Seed)

	// The simulation packages accept a function of this signature to allow
	// the application to log.
	ev := func(v string, args ...any) {
		if cfg.Sim.Verbose {
			log.Infow(fmt.Sprintf(v, args...))
		}
	}

	// =========================================================================
	// Run the batch

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, runner.Config{Scenario: s, EvHandler: ev})
	if err != nil {
		if len(result.Records) == 0 {
			return fmt.Errorf("running batch: %w", err)
		}
		log.Errorw("batch", "failed runs", result.Failed, "ERROR", err)
	}

	log.Infow("batch complete",
		"scenario", result.Summary.Scenario,
		"runs", result.Summary.Runs,
		"blocks", result.Summary.BlocksFound.Mean,
		"earnings", result.Summary.MinerEarnings.Mean,
		"bandwidth KiB/s", result.Summary.AvgBandwidthKiB.Mean,
		"provider revenue", result.Summary.ProviderRevenue.Mean,
	)

	return export(log, cfg.Sim.OutputDir, result)
}

// export writes the per run records as csv and the aggregate as json.
func export(log *zap.SugaredLogger, dir string, result runner.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	name := result.Summary.Scenario

	csvPath := filepath.Join(dir, name+"-runs.csv")
	cf, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", csvPath, err)
	}
	defer cf.Close()
	if err := metrics.WriteCSV(cf, result.Records); err != nil {
		return fmt.Errorf("writing %s: %w", csvPath, err)
	}

	jsonPath := filepath.Join(dir, name+"-summary.json")
	jf, err := os.Create(jsonPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", jsonPath, err)
	}
	defer jf.Close()
	if err := metrics.WriteJSON(jf, []metrics.Summary{result.Summary}); err != nil {
		return fmt.Errorf("writing %s: %w", jsonPath, err)
	}

	log.Infow("export complete", "csv", csvPath, "json", jsonPath)

	return nil
}
