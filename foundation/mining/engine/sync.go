package engine

import (
	"github.com/poolsim/mining/foundation/mining/bandwidth"
	"github.com/poolsim/mining/foundation/mining/tx"
)

// generateTxs mints this step's transactions and delivers each to a random
// miner, which forwards it into the pools of every coalition it belongs to.
func (e *Engine) generateTxs() {
	for i := 0; i < e.cfg.TxPerStep; i++ {
		t := tx.Tx{
			ID:  e.nextTxID,
			Fee: e.rng.Float64() * e.cfg.TxFeeMax,
		}
		e.nextTxID++

		origin := e.miners[e.rng.Intn(len(e.miners))]
		origin.RecordTx(t.ID)

		for _, id := range origin.Memberships() {
			e.coalitions[id-1].Pool().Upsert(t)
		}
	}
}

// syncPools reconciles every member with its coalition's pool and charges
// the traffic to the ledger. Under the naive policy the whole pool ships
// every time; under the filtered policy a filter exchange narrows the
// payload to the transactions the member is actually missing.
func (e *Engine) syncPools() {
	for _, c := range e.coalitions {
		if c.Size() == 0 || c.Pool().Count() == 0 {
			continue
		}

		txs := c.Pool().Copy()

		for _, m := range c.Members() {
			var missing []uint64
			for _, t := range txs {
				if !m.HoldsTx(t.ID) {
					missing = append(missing, t.ID)
				}
			}

			ex := bandwidth.Exchange{
				PoolCount:   len(txs),
				MissingTx:   len(missing),
				FilterBytes: m.Filter().SizeBytes(),
				TxSize:      e.cfg.TxSize,
				CtrlBytes:   e.cfg.ControlMsgSize,
			}

			e.charge(m.ID(), ex)

			for _, id := range missing {
				m.RecordTx(id)
			}
		}
	}
}

// charge books one exchange on the ledger, split by traffic kind. The
// policy decides the billed total; when the filtered policy fell back to a
// whole pool transfer the bytes are booked as plain payload.
func (e *Engine) charge(minerID uint64, ex bandwidth.Exchange) {
	total := e.syncFn(ex)

	payload := total - ex.CtrlBytes

	filtered := ex.FilterBytes + ex.MissingTx*ex.TxSize + ex.CtrlBytes
	if e.cfg.FilteredSync && total == filtered {
		e.ledger.Add(e.step, minerID, bandwidth.KindFilter, ex.FilterBytes)
		payload -= ex.FilterBytes
	}

	e.ledger.Add(e.step, minerID, bandwidth.KindPayload, payload)
	e.ledger.Add(e.step, minerID, bandwidth.KindControl, ex.CtrlBytes)
}
