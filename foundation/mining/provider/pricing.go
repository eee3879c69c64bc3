package provider

// Price search settings. The provider is the leader in a leader/follower
// game: it proposes a price, the coalitions respond with demand, and the
// provider walks its price toward the profit maximizing point.
const (
	searchLearningRate = 0.01
	searchIterations   = 100
	searchThreshold    = 0.01
	searchDecay        = 0.95
	searchEpsilon      = 0.01
)

// OptimizePrice adjusts the price by numerical gradient ascent over the
// provider's profit, sampling follower demand through demandAt. The price is
// always clamped inside the configured bounds.
func (p *Provider) OptimizePrice(demandAt func(price float64) float64) {
	price := p.price
	rate := searchLearningRate

	for i := 0; i < searchIterations; i++ {
		utility := p.profitAt(price, demandAt(price))
		utilityPlus := p.profitAt(price+searchEpsilon, demandAt(price+searchEpsilon))

		gradient := (utilityPlus - utility) / searchEpsilon
		if gradient < searchThreshold && gradient > -searchThreshold {
			break
		}

		price += rate * gradient
		price = p.clamp(price)

		rate *= searchDecay
	}

	p.price = p.clamp(price)
}

// profitAt returns the provider's profit for a candidate price and the
// demand the followers would express at it.
func (p *Provider) profitAt(price, demand float64) float64 {
	if demand > p.cfg.Capacity {
		demand = p.cfg.Capacity
	}

	profit := (price - p.cfg.OperatingCost) * demand
	if profit < 0 {
		return 0
	}

	return profit
}

func (p *Provider) clamp(price float64) float64 {
	if price < p.cfg.PriceMin {
		return p.cfg.PriceMin
	}
	if price > p.cfg.PriceMax {
		return p.cfg.PriceMax
	}

	return price
}
