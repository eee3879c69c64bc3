package provider

// UpdateMembership replaces the provider's view of which miners belong to
// which coalitions. Shared membership is what makes work coordination
// possible.
func (p *Provider) UpdateMembership(membership map[uint64][]uint64) {
	cpy := make(map[uint64][]uint64, len(membership))
	for id, members := range membership {
		ids := make([]uint64, len(members))
		copy(ids, members)
		cpy[id] = ids
	}

	p.membership = cpy
}

// OverlapRatio returns the shared member ratio between two coalitions:
// |shared| over the larger member count. Disjoint coalitions score zero.
func (p *Provider) OverlapRatio(a, b uint64) float64 {
	ma := p.membership[a]
	mb := p.membership[b]
	if len(ma) == 0 || len(mb) == 0 {
		return 0
	}

	set := make(map[uint64]struct{}, len(ma))
	for _, id := range ma {
		set[id] = struct{}{}
	}

	var shared int
	for _, id := range mb {
		if _, exists := set[id]; exists {
			shared++
		}
	}

	larger := len(ma)
	if len(mb) > larger {
		larger = len(mb)
	}

	return float64(shared) / float64(larger)
}

// CoordinateOverlap scans the current tick's purchases for coalition pairs
// with significant shared membership and books the operating cost saved by
// not duplicating their work. It returns the savings for this tick.
func (p *Provider) CoordinateOverlap() float64 {
	if len(p.purchases) < 2 {
		return 0
	}

	var total float64
	for i := 0; i < len(p.purchases); i++ {
		for j := i + 1; j < len(p.purchases); j++ {
			ratio := p.OverlapRatio(p.purchases[i].buyerID, p.purchases[j].buyerID)
			if ratio < p.cfg.OverlapThreshold {
				continue
			}

			duplicate := p.purchases[i].quantity
			if p.purchases[j].quantity < duplicate {
				duplicate = p.purchases[j].quantity
			}

			total += duplicate * ratio * p.cfg.OperatingCost * p.cfg.OverlapSavings
		}
	}

	p.savings += total

	return total
}

// OverlapSavings returns the cumulative coordination savings.
func (p *Provider) OverlapSavings() float64 {
	return p.savings
}
