// Package txpool maintains a coalition's pool of pending transactions.
package txpool

import (
	"sort"

	"github.com/poolsim/mining/foundation/mining/tx"
	"github.com/poolsim/mining/foundation/mining/txpool/selector"
)

// Pool represents the set of transactions known to a coalition. Addition is
// idempotent so re-synchronizing a member never duplicates work.
type Pool struct {
	pool     map[uint64]tx.Tx
	selectFn selector.Func
}

// New constructs a new pool using the default fee strategy.
func New() (*Pool, error) {
	return NewWithStrategy(selector.StrategyFee)
}

// NewWithStrategy constructs a new pool with the specified select strategy.
func NewWithStrategy(strategy string) (*Pool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	p := Pool{
		pool:     make(map[uint64]tx.Tx),
		selectFn: selectFn,
	}

	return &p, nil
}

// Count returns the current number of transactions in the pool.
func (p *Pool) Count() int {
	return len(p.pool)
}

// Upsert adds or replaces a transaction in the pool. It reports whether the
// transaction was new.
func (p *Pool) Upsert(t tx.Tx) bool {
	_, exists := p.pool[t.ID]
	p.pool[t.ID] = t

	return !exists
}

// Contains reports whether the pool holds the transaction.
func (p *Pool) Contains(id uint64) bool {
	_, exists := p.pool[id]
	return exists
}

// Delete removes a transaction from the pool.
func (p *Pool) Delete(id uint64) {
	delete(p.pool, id)
}

// Truncate clears all the transactions from the pool.
func (p *Pool) Truncate() {
	p.pool = make(map[uint64]tx.Tx)
}

// Copy returns a list of the current transactions ordered by id so callers
// iterate deterministically.
func (p *Pool) Copy() []tx.Tx {
	cpy := make([]tx.Tx, 0, len(p.pool))
	for _, t := range p.pool {
		cpy = append(cpy, t)
	}

	sort.Slice(cpy, func(i, j int) bool { return cpy[i].ID < cpy[j].ID })

	return cpy
}

// PickBest uses the configured select strategy to return the next set of
// transactions for the next block.
func (p *Pool) PickBest(howMany int) []tx.Tx {
	return p.selectFn(p.Copy(), howMany)
}
