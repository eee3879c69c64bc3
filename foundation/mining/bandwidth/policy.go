package bandwidth

import "fmt"

// List of different sync policies.
const (
	SyncNaive    = "naive"
	SyncFiltered = "filtered"
)

// Map of different sync policies with functions.
var policies = map[string]Func{
	SyncNaive:    naiveSync,
	SyncFiltered: filteredSync,
}

// Exchange describes one pairwise pool reconciliation from the sender's
// point of view.
type Exchange struct {
	PoolCount   int // transactions the sender holds
	MissingTx   int // transactions the receiver lacks
	FilterBytes int // serialized filter size
	TxSize      int // bytes per transaction
	CtrlBytes   int // fixed control message overhead
}

// Func defines a function that prices an exchange in bytes on the wire.
type Func func(ex Exchange) int

// Retrieve returns the specified sync policy function.
func Retrieve(policy string) (Func, error) {
	fn, exists := policies[policy]
	if !exists {
		return nil, fmt.Errorf("sync policy %q does not exist", policy)
	}
	return fn, nil
}

// =============================================================================

// naiveSync ships the sender's entire pool every time.
var naiveSync = func(ex Exchange) int {
	return ex.PoolCount*ex.TxSize + ex.CtrlBytes
}

// filteredSync ships a filter plus only the transactions the receiver is
// missing. When the filter overhead would exceed shipping the whole pool,
// the sender falls back to the naive transfer, so the filtered cost never
// exceeds the naive one.
var filteredSync = func(ex Exchange) int {
	naive := naiveSync(ex)

	filtered := ex.FilterBytes + ex.MissingTx*ex.TxSize + ex.CtrlBytes
	if filtered > naive {
		return naive
	}

	return filtered
}
