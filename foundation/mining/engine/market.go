package engine

import "github.com/poolsim/mining/foundation/mining/provider"

// providerTick runs one compute market round: refresh the provider's view
// of coalition membership, optionally re-optimize the price, then let every
// populated coalition place its order for the coming interval.
func (e *Engine) providerTick() {
	e.prov.ResetTick()

	membership := make(map[uint64][]uint64)
	for _, c := range e.coalitions {
		if c.Size() > 0 {
			membership[c.ID()] = c.MemberIDs()
		}
	}
	e.prov.UpdateMembership(membership)

	if e.cfg.PriceSearch {
		e.prov.OptimizePrice(e.demandCurve())
	}

	for _, c := range e.coalitions {
		if c.Size() == 0 {
			c.SetPurchased(0)
			continue
		}

		quantity, cost, err := e.prov.Purchase(c, e.cfg.Difficulty)
		if err != nil {
			// A rejected purchase is treated as not taken.
			e.ev("engine: provider: %s", err)
			c.SetPurchased(0)
			continue
		}

		c.SetPurchased(quantity * provider.UnitHash)

		if quantity > 0 {
			e.ev("engine: provider: coalition[%d] bought[%.3f] cost[%.2f] price[%.2f]", c.ID(), quantity, cost, e.prov.Price())
			if e.state == StateCollecting {
				e.nonceSum += quantity
				e.noncePurchases++
			}
		}
	}

	if e.cfg.OverlapDiscount {
		if saved := e.prov.CoordinateOverlap(); saved > 0 {
			e.ev("engine: provider: overlap savings[%.2f]", saved)
		}
	}
}

// demandCurve builds the follower response the price search probes: the
// coalitions' base demand damped linearly as the price approaches the
// ceiling where nobody buys.
func (e *Engine) demandCurve() func(price float64) float64 {
	var base float64
	for _, c := range e.coalitions {
		if c.Size() > 0 {
			base += e.demandFn(e.cfg.Difficulty, c.EffectiveHashRate(), c.Size())
		}
	}

	ceiling := e.cfg.PriceMax

	return func(price float64) float64 {
		if ceiling <= 0 {
			return base
		}

		elasticity := 1 - price/ceiling
		if elasticity <= 0 {
			return 0
		}

		return base * elasticity
	}
}
