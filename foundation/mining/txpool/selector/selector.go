// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/poolsim/mining/foundation/mining/tx"
)

// List of different select strategies.
const (
	StrategyFee = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee: feeSelect,
}

// Func defines a function that takes the transactions known to a pool and
// selects howMany of them in an order based on the function's strategy.
// Receiving -1 for howMany must return all the transactions in the
// strategy's ordering. Selection must be deterministic for a given input.
type Func func(txs []tx.Tx, howMany int) []tx.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []tx.Tx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that provide the best reward. Ties fall back to the id so
// the ordering is stable across runs.
func (bf byFee) Less(i, j int) bool {
	if bf[i].Fee != bf[j].Fee {
		return bf[i].Fee > bf[j].Fee
	}
	return bf[i].ID < bf[j].ID
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
