package selector

import (
	"sort"

	"github.com/poolsim/mining/foundation/mining/tx"
)

// feeSelect returns the transactions paying the best fees. A block has a
// fixed capacity so the miner takes the highest paying work first.
var feeSelect = func(txs []tx.Tx, howMany int) []tx.Tx {
	cpy := make([]tx.Tx, len(txs))
	copy(cpy, txs)

	sort.Sort(byFee(cpy))

	if howMany == -1 || howMany > len(cpy) {
		howMany = len(cpy)
	}

	return cpy[:howMany]
}
