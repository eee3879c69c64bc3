// Package miner implements the economic agent that contributes hash rate to
// coalitions and tracks what it has already synchronized.
package miner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/poolsim/mining/foundation/filter"
)

// Set of errors for failed mutations. The triggering action is treated as
// not taken, state is never left partially updated.
var (
	ErrMembershipCap    = errors.New("membership cap reached")
	ErrNotMember        = errors.New("not a member")
	ErrAlreadyMember    = errors.New("already a member")
	ErrInsufficientFund = errors.New("insufficient funds")
)

// Config represents the per-miner portion of the scenario.
type Config struct {
	MaxCoalitions  int
	SwitchOverhead float64
	InitialBalance float64
	FilterCapacity int
	FilterTarget   float64
}

// Miner represents a single mining agent. The hash rate is immutable after
// creation, the agent changes economic behavior, never physical capability.
type Miner struct {
	id       uint64
	hashRate float64
	cfg      Config

	balance     float64
	memberships []uint64 // sorted coalition ids
	allocation  map[uint64]float64
	flt         *filter.Filter
}

// New constructs a miner with the specified hash rate.
func New(id uint64, hashRate float64, cfg Config) (*Miner, error) {
	if hashRate <= 0 {
		return nil, fmt.Errorf("hash rate must be positive, got %g", hashRate)
	}

	flt, err := filter.New(cfg.FilterCapacity, cfg.FilterTarget)
	if err != nil {
		return nil, fmt.Errorf("constructing filter: %w", err)
	}

	m := Miner{
		id:         id,
		hashRate:   hashRate,
		cfg:        cfg,
		balance:    cfg.InitialBalance,
		allocation: make(map[uint64]float64),
		flt:        flt,
	}

	return &m, nil
}

// ID returns the miner's identity.
func (m *Miner) ID() uint64 {
	return m.id
}

// HashRate returns the miner's physical capability.
func (m *Miner) HashRate() float64 {
	return m.hashRate
}

// =============================================================================
// Balance

// Balance returns the current balance.
func (m *Miner) Balance() float64 {
	return m.balance
}

// NetEarnings returns rewards received minus costs paid since creation.
func (m *Miner) NetEarnings() float64 {
	return m.balance - m.cfg.InitialBalance
}

// Credit adds a reward payment to the balance.
func (m *Miner) Credit(amount float64) {
	m.balance += amount
}

// Debit withdraws a cost from the balance. The debit is rejected before any
// mutation if it would drive the balance negative.
func (m *Miner) Debit(amount float64) error {
	if amount > m.balance {
		return fmt.Errorf("debit %.2f with balance %.2f: %w", amount, m.balance, ErrInsufficientFund)
	}
	m.balance -= amount

	return nil
}

// =============================================================================
// Membership

// MemberCount returns the number of coalitions the miner belongs to.
func (m *Miner) MemberCount() int {
	return len(m.memberships)
}

// Memberships returns the coalition ids the miner belongs to, ordered.
func (m *Miner) Memberships() []uint64 {
	cpy := make([]uint64, len(m.memberships))
	copy(cpy, m.memberships)

	return cpy
}

// IsMember reports whether the miner belongs to the coalition.
func (m *Miner) IsMember(coalitionID uint64) bool {
	for _, id := range m.memberships {
		if id == coalitionID {
			return true
		}
	}
	return false
}

// CanJoin reports whether another membership fits under the cap.
func (m *Miner) CanJoin() bool {
	return len(m.memberships) < m.cfg.MaxCoalitions
}

// Join records a new coalition membership.
func (m *Miner) Join(coalitionID uint64) error {
	if m.IsMember(coalitionID) {
		return fmt.Errorf("coalition %d: %w", coalitionID, ErrAlreadyMember)
	}
	if !m.CanJoin() {
		return fmt.Errorf("cap %d: %w", m.cfg.MaxCoalitions, ErrMembershipCap)
	}

	m.memberships = append(m.memberships, coalitionID)
	sort.Slice(m.memberships, func(i, j int) bool { return m.memberships[i] < m.memberships[j] })
	m.rebalance()

	return nil
}

// Leave removes a coalition membership.
func (m *Miner) Leave(coalitionID uint64) error {
	for i, id := range m.memberships {
		if id == coalitionID {
			m.memberships = append(m.memberships[:i], m.memberships[i+1:]...)
			delete(m.allocation, coalitionID)
			m.rebalance()
			return nil
		}
	}

	return fmt.Errorf("coalition %d: %w", coalitionID, ErrNotMember)
}

// rebalance resets the work split to even shares after a membership change.
// The next Allocate call refines it with fresh utilities.
func (m *Miner) rebalance() {
	alloc := make(map[uint64]float64, len(m.memberships))
	if len(m.memberships) > 0 {
		share := 1.0 / float64(len(m.memberships))
		for _, id := range m.memberships {
			alloc[id] = share
		}
	}

	m.allocation = alloc
}

// Allocate splits the miner's work time across its coalitions in proportion
// to the expected utility of each. With no clear winner the time is split
// evenly.
func (m *Miner) Allocate(utilities map[uint64]float64) {
	if len(m.memberships) == 0 {
		m.allocation = make(map[uint64]float64)
		return
	}

	var total float64
	for _, id := range m.memberships {
		if u := utilities[id]; u > 0 {
			total += u
		}
	}

	alloc := make(map[uint64]float64, len(m.memberships))
	if total == 0 {
		share := 1.0 / float64(len(m.memberships))
		for _, id := range m.memberships {
			alloc[id] = share
		}
	} else {
		for _, id := range m.memberships {
			u := utilities[id]
			if u < 0 {
				u = 0
			}
			alloc[id] = u / total
		}
	}

	m.allocation = alloc
}

// =============================================================================
// Work contribution

// Contribution returns the effective hash rate the miner contributes to the
// coalition: allocated time discounted by the context switch overhead that
// grows with the number of memberships.
func (m *Miner) Contribution(coalitionID uint64) float64 {
	share, exists := m.allocation[coalitionID]
	if !exists {
		if !m.IsMember(coalitionID) {
			return 0
		}
		share = 1.0 / float64(len(m.memberships))
	}

	return m.effective(m.hashRate*share, len(m.memberships))
}

// PotentialContribution returns the effective hash rate the miner would
// contribute to one additional coalition, assuming even reallocation.
func (m *Miner) PotentialContribution() float64 {
	return m.ContributionWith(len(m.memberships) + 1)
}

// ContributionWith returns the effective hash rate the miner would
// contribute to each coalition under an even split across n memberships.
func (m *Miner) ContributionWith(n int) float64 {
	if n <= 0 {
		return 0
	}
	return m.effective(m.hashRate/float64(n), n)
}

// effective applies the context switch overhead for n memberships.
func (m *Miner) effective(allocated float64, n int) float64 {
	if n <= 1 {
		return allocated
	}

	overhead := float64(n) * m.cfg.SwitchOverhead
	if overhead >= 1 {
		return 0
	}

	return allocated * (1 - overhead)
}

// =============================================================================
// Synchronization state

// Filter returns the membership filter summarizing the transactions the
// miner already holds.
func (m *Miner) Filter() *filter.Filter {
	return m.flt
}

// RecordTx marks a transaction as held by this miner.
func (m *Miner) RecordTx(id uint64) {
	m.flt.Insert(id)
}

// HoldsTx reports whether the miner may already hold the transaction.
func (m *Miner) HoldsTx(id uint64) bool {
	return m.flt.MightContain(id)
}
