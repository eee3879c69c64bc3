// Package provider implements the edge compute provider that sells nonce
// range compute to coalitions for a price.
package provider

import (
	"fmt"
)

// Buyer represents the behavior a purchaser must provide. A rejected debit
// means the purchase is treated as not taken.
type Buyer interface {
	ID() uint64
	EffectiveHashRate() float64
	Size() int
	Debit(amount float64) error
}

// Config represents the provider portion of the scenario.
type Config struct {
	Capacity         float64
	Price            float64
	PriceMin         float64
	PriceMax         float64
	OperatingCost    float64
	DemandPolicy     string
	OverlapThreshold float64
	OverlapSavings   float64
}

// purchase records a single allocation for the current tick.
type purchase struct {
	buyerID  uint64
	quantity float64
}

// Provider sells compute. It maintains two demand counters that must never
// be conflated: an instantaneous one reset every tick for rate metrics and a
// cumulative one that only grows for the run's duration.
type Provider struct {
	cfg      Config
	price    float64
	demandFn DemandFunc

	load          float64 // allocated this tick
	instantDemand float64 // reset every tick
	totalDemand   float64 // only grows
	revenue       float64 // pure function of recorded purchases
	operatingCost float64

	purchases  []purchase          // this tick's allocations
	membership map[uint64][]uint64 // coalition id -> sorted member ids
	savings    float64             // cumulative overlap coordination savings
}

// New constructs a provider from the scenario values.
func New(cfg Config) (*Provider, error) {
	demandFn, err := RetrieveDemand(cfg.DemandPolicy)
	if err != nil {
		return nil, err
	}

	p := Provider{
		cfg:        cfg,
		price:      cfg.Price,
		demandFn:   demandFn,
		membership: make(map[uint64][]uint64),
	}

	return &p, nil
}

// Price returns the current price per unit of compute.
func (p *Provider) Price() float64 {
	return p.price
}

// Purchase computes the buyer's demand for the given difficulty, charges
// price per unit times quantity, debits the buyer and returns the purchased
// nonce range with its cost. An unaffordable purchase is rejected before any
// state changes.
func (p *Provider) Purchase(buyer Buyer, difficulty float64) (float64, float64, error) {
	quantity := p.demandFn(difficulty, buyer.EffectiveHashRate(), buyer.Size())
	if quantity <= 0 {
		return 0, 0, nil
	}

	available := p.cfg.Capacity - p.load
	if available <= 0 {
		return 0, 0, nil
	}
	if quantity > available {
		quantity = available
	}

	cost := p.price * quantity
	if err := buyer.Debit(cost); err != nil {
		return 0, 0, fmt.Errorf("buyer %d purchase of %.0f units: %w", buyer.ID(), quantity, err)
	}

	p.load += quantity
	p.instantDemand += quantity
	p.totalDemand += quantity
	p.revenue += cost
	p.operatingCost += p.cfg.OperatingCost * quantity
	p.purchases = append(p.purchases, purchase{buyerID: buyer.ID(), quantity: quantity})

	return quantity, cost, nil
}

// ResetTick clears the per tick load and the instantaneous demand counter.
// The cumulative counters are never reset.
func (p *Provider) ResetTick() {
	p.load = 0
	p.instantDemand = 0
	p.purchases = p.purchases[:0]
}

// =============================================================================
// Counters

// InstantDemand returns the demand allocated in the current tick.
func (p *Provider) InstantDemand() float64 {
	return p.instantDemand
}

// TotalDemand returns the cumulative demand over the run.
func (p *Provider) TotalDemand() float64 {
	return p.totalDemand
}

// Revenue returns cumulative revenue. It is derived only from recorded
// purchases and is never adjusted retroactively.
func (p *Provider) Revenue() float64 {
	return p.revenue
}

// Utility returns the provider's profit: revenue minus operating costs, with
// any coordination savings restored.
func (p *Provider) Utility() float64 {
	u := p.revenue - p.operatingCost + p.savings
	if u < 0 {
		return 0
	}

	return u
}
