// Package scenario maintains access to the immutable configuration that
// drives a simulation run.
package scenario

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// validate holds the settings and caches for validating scenario values.
var validate = validator.New()

// Scenario represents everything that is fixed for the lifetime of a run.
// The engine owns the value and every other component reads it.
type Scenario struct {
	Name string `json:"name" validate:"required"`

	// Network shape.
	Miners        int `json:"miners" validate:"gt=0"`
	MaxCoalitions int `json:"max_coalitions" validate:"gte=0"` // J, 0 means no cooperation

	// Timing, in whole simulation steps.
	Warmup          int `json:"warmup" validate:"gte=0"`
	Collection      int `json:"collection" validate:"gt=0"`
	DecisionCadence int `json:"decision_cadence" validate:"gt=0"`
	ProviderCadence int `json:"provider_cadence" validate:"gt=0"`

	// Block production.
	Difficulty  float64 `json:"difficulty" validate:"gt=0"`
	BlockReward float64 `json:"block_reward" validate:"gte=0"`
	TxPerBlock  int     `json:"tx_per_block" validate:"gt=0"`

	// Transaction generation.
	TxPerStep int     `json:"tx_per_step" validate:"gte=0"`
	TxSize    int     `json:"tx_size" validate:"gt=0"` // bytes
	TxFeeMax  float64 `json:"tx_fee_max" validate:"gte=0"`

	// Miner capability.
	HashRateMin    float64 `json:"hash_rate_min" validate:"gt=0"`
	HashRateMax    float64 `json:"hash_rate_max" validate:"gtefield=HashRateMin"`
	InitialBalance float64 `json:"initial_balance" validate:"gte=0"`
	SwitchOverhead float64 `json:"switch_overhead" validate:"gte=0,lt=1"` // per membership

	// Synchronization.
	FilteredSync   bool    `json:"filtered_sync"`
	FilterTarget   float64 `json:"filter_target" validate:"gt=0,lt=1"` // false positive rate
	FilterCapacity int     `json:"filter_capacity" validate:"gt=0"`    // expected item count
	BlockHeader    int     `json:"block_header" validate:"gte=0"`      // bytes
	ControlMsgSize int     `json:"control_msg_size" validate:"gte=0"`  // bytes

	// Coalition game.
	Tolerance float64 `json:"tolerance" validate:"gt=0,lte=1"` // admission tolerance τ

	// Edge compute provider.
	ProviderEnabled  bool    `json:"provider_enabled"`
	PricePerUnit     float64 `json:"price_per_unit" validate:"gte=0"`
	PriceMin         float64 `json:"price_min" validate:"gte=0"`
	PriceMax         float64 `json:"price_max" validate:"gtefield=PriceMin"`
	OperatingCost    float64 `json:"operating_cost" validate:"gte=0"`
	ProviderCapacity float64 `json:"provider_capacity" validate:"gte=0"` // nonce range units per tick
	DemandPolicy     string  `json:"demand_policy" validate:"required"`
	PriceSearch      bool    `json:"price_search"`      // leader side price optimization
	OverlapDiscount  bool    `json:"overlap_discount"`  // shared membership coordination
	OverlapThreshold float64 `json:"overlap_threshold"` // shared member ratio that triggers it
	OverlapSavings   float64 `json:"overlap_savings"`   // fraction of operating cost saved

	// Transaction selection.
	SelectStrategy string `json:"select_strategy" validate:"required"`

	// Statistical repetition.
	Seed int64 `json:"seed"`
	Runs int   `json:"runs" validate:"gt=0"`
}

// Validate checks the scenario for malformed or contradictory parameters.
// This runs once at run start and a failure is fatal to the run, the values
// are never silently corrected.
func (s Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return nil
}

// Steps returns the total number of steps a run advances through.
func (s Scenario) Steps() int {
	return s.Warmup + s.Collection
}

// BlockSize returns the serialized byte size of a full block.
func (s Scenario) BlockSize() int {
	return s.BlockHeader + s.TxPerBlock*s.TxSize
}

// =============================================================================

// Load opens and consumes a scenario file.
func Load(path string) (Scenario, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	s := Defaults("")
	if err := json.Unmarshal(content, &s); err != nil {
		return Scenario{}, err
	}

	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}

	return s, nil
}
