package scenario

import (
	"fmt"
	"sort"
)

// List of predefined scenario names.
const (
	NonCooperative = "non-cooperative"
	SingleJ1       = "single-j1"
	NaiveJ2        = "naive-j2"
	NaiveJ3        = "naive-j3"
	FilteredJ3     = "filtered-j3"
	FilteredJ5     = "filtered-j5"
	FilteredJ7     = "filtered-j7"
)

// Defaults returns a scenario with every shared constant set. The name and
// the handful of values that differ per scenario are filled in by the table.
func Defaults(name string) Scenario {
	return Scenario{
		Name:             name,
		Miners:           20,
		MaxCoalitions:    3,
		Warmup:           50,
		Collection:       100,
		DecisionCadence:  10,
		ProviderCadence:  10,
		Difficulty:       15_000_000_000,
		BlockReward:      1000,
		TxPerBlock:       10,
		TxPerStep:        20,
		TxSize:           250,
		TxFeeMax:         100,
		HashRateMin:      100e6,
		HashRateMax:      500e6,
		InitialBalance:   1000,
		SwitchOverhead:   0.016,
		FilteredSync:     false,
		FilterTarget:     0.01,
		FilterCapacity:   1000,
		BlockHeader:      80,
		ControlMsgSize:   64,
		Tolerance:        0.95,
		ProviderEnabled:  true,
		PricePerUnit:     200,
		PriceMin:         0,
		PriceMax:         450,
		OperatingCost:    0.5,
		ProviderCapacity: 10,
		DemandPolicy:     "constant",
		PriceSearch:      false,
		OverlapDiscount:  false,
		OverlapThreshold: 0.3,
		OverlapSavings:   0.25,
		SelectStrategy:   "fee",
		Seed:             1,
		Runs:             5,
	}
}

// table maps each predefined name to a mutation of the defaults.
var table = map[string]func(Scenario) Scenario{
	NonCooperative: func(s Scenario) Scenario {
		s.MaxCoalitions = 0
		s.ProviderEnabled = false
		return s
	},
	SingleJ1: func(s Scenario) Scenario {
		s.MaxCoalitions = 1
		return s
	},
	NaiveJ2: func(s Scenario) Scenario {
		s.MaxCoalitions = 2
		return s
	},
	NaiveJ3: func(s Scenario) Scenario {
		return s
	},
	FilteredJ3: func(s Scenario) Scenario {
		s.FilteredSync = true
		s.PriceSearch = true
		s.OverlapDiscount = true
		return s
	},
	FilteredJ5: func(s Scenario) Scenario {
		s.MaxCoalitions = 5
		s.FilteredSync = true
		s.PriceSearch = true
		s.OverlapDiscount = true
		return s
	},
	FilteredJ7: func(s Scenario) Scenario {
		s.MaxCoalitions = 7
		s.FilteredSync = true
		s.PriceSearch = true
		s.OverlapDiscount = true
		return s
	},
}

// Retrieve returns the predefined scenario with the specified name.
func Retrieve(name string) (Scenario, error) {
	mutate, exists := table[name]
	if !exists {
		return Scenario{}, fmt.Errorf("scenario %q does not exist", name)
	}

	s := mutate(Defaults(name))
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}

	return s, nil
}

// Names returns the predefined scenario names in a stable order.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
