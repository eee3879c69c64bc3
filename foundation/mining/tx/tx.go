// Package tx holds the transaction type shared by the pool, the sync
// policies and the engine.
package tx

// Tx represents a pending transaction. The identifier is opaque and the
// serialized byte size is fixed per scenario, so only the id and the fee
// travel with the value. A transaction is never mutated after creation.
type Tx struct {
	ID  uint64
	Fee float64
}
