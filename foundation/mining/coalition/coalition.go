// Package coalition implements a mining pool: a mutable, possibly
// overlapping set of miner memberships that aggregates hash rate and
// redistributes block rewards.
package coalition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/poolsim/mining/foundation/mining/miner"
	"github.com/poolsim/mining/foundation/mining/txpool"
)

// Set of errors for failed membership changes.
var (
	ErrAdmissionDenied = errors.New("admission denied")
	ErrNotMember       = errors.New("not a member")
)

// Coalition represents a pool of miners. The aggregate hash rate is always
// the live sum over current members, it is derived and never stored.
type Coalition struct {
	id        uint64
	tolerance float64
	members   []*miner.Miner // sorted by id
	pool      *txpool.Pool

	purchased   float64 // nonce range bought this tick
	blocksFound int
}

// New constructs an empty coalition. Coalitions are created lazily on first
// membership and stay addressable when they become empty.
func New(id uint64, strategy string, tolerance float64) (*Coalition, error) {
	pool, err := txpool.NewWithStrategy(strategy)
	if err != nil {
		return nil, fmt.Errorf("constructing pool: %w", err)
	}

	c := Coalition{
		id:        id,
		tolerance: tolerance,
		pool:      pool,
	}

	return &c, nil
}

// ID returns the coalition's identity.
func (c *Coalition) ID() uint64 {
	return c.id
}

// Size returns the number of members.
func (c *Coalition) Size() int {
	return len(c.members)
}

// Members returns the member list ordered by miner id.
func (c *Coalition) Members() []*miner.Miner {
	cpy := make([]*miner.Miner, len(c.members))
	copy(cpy, c.members)

	return cpy
}

// MemberIDs returns the member ids ordered ascending.
func (c *Coalition) MemberIDs() []uint64 {
	ids := make([]uint64, len(c.members))
	for i, m := range c.members {
		ids[i] = m.ID()
	}

	return ids
}

// HasMember reports whether the miner belongs to this coalition.
func (c *Coalition) HasMember(minerID uint64) bool {
	for _, m := range c.members {
		if m.ID() == minerID {
			return true
		}
	}
	return false
}

// Pool returns the coalition's transaction pool.
func (c *Coalition) Pool() *txpool.Pool {
	return c.pool
}

// =============================================================================
// Hash rate aggregation

// TotalWork returns the live sum of effective member contributions.
func (c *Coalition) TotalWork() float64 {
	var total float64
	for _, m := range c.members {
		total += m.Contribution(c.id)
	}

	return total
}

// EffectiveHashRate returns member work plus any purchased nonce range.
func (c *Coalition) EffectiveHashRate() float64 {
	return c.TotalWork() + c.purchased
}

// SetPurchased records the nonce range bought from the compute provider for
// the current tick.
func (c *Coalition) SetPurchased(quantity float64) {
	c.purchased = quantity
}

// Purchased returns the nonce range bought for the current tick.
func (c *Coalition) Purchased() float64 {
	return c.purchased
}

// =============================================================================
// Membership mutation

// Admit adds a miner after the admission rule accepts it. The membership
// mutation is atomic, on any rejection nothing changes.
func (c *Coalition) Admit(m *miner.Miner, networkHash float64, rate RewardRate) error {
	if c.HasMember(m.ID()) {
		return fmt.Errorf("miner %d already in coalition %d: %w", m.ID(), c.id, ErrAdmissionDenied)
	}
	if !m.CanJoin() {
		return fmt.Errorf("miner %d at membership cap: %w", m.ID(), ErrAdmissionDenied)
	}
	if !c.CanAdmit(m, networkHash, rate) {
		return fmt.Errorf("miner %d would hurt existing members of coalition %d: %w", m.ID(), c.id, ErrAdmissionDenied)
	}

	if err := m.Join(c.id); err != nil {
		return fmt.Errorf("joining: %w", err)
	}

	c.members = append(c.members, m)
	sort.Slice(c.members, func(i, j int) bool { return c.members[i].ID() < c.members[j].ID() })

	return nil
}

// Remove drops a miner from the coalition. The coalition stays addressable
// when it becomes empty, contributing zero hash rate.
func (c *Coalition) Remove(m *miner.Miner) error {
	for i, member := range c.members {
		if member.ID() == m.ID() {
			if err := m.Leave(c.id); err != nil {
				return fmt.Errorf("leaving: %w", err)
			}
			c.members = append(c.members[:i], c.members[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("miner %d in coalition %d: %w", m.ID(), c.id, ErrNotMember)
}

// =============================================================================
// Rewards

// MemberUtility returns the expected utility of a member: its share of the
// coalition's work applied to the coalition's expected reward rate. A
// coalition with no work yields zero, not an undefined value.
func (c *Coalition) MemberUtility(m *miner.Miner, networkHash float64, rate RewardRate) float64 {
	totalWork := c.TotalWork()
	if totalWork == 0 {
		return 0
	}

	share := m.Contribution(c.id) / totalWork
	u := share * rate(c.EffectiveHashRate(), networkHash)
	if u < 0 {
		return 0
	}

	return u
}

// DistributeRewards credits each member its work proportional share of a
// found block's reward.
func (c *Coalition) DistributeRewards(total float64) {
	totalWork := c.TotalWork()
	if totalWork == 0 || total <= 0 {
		return
	}

	for _, m := range c.members {
		share := m.Contribution(c.id) / totalWork
		m.Credit(share * total)
	}

	c.blocksFound++
}

// BlocksFound returns how many blocks this coalition has mined.
func (c *Coalition) BlocksFound() int {
	return c.blocksFound
}

// =============================================================================
// Compute purchases

// Debit implements the compute provider's buyer contract by splitting a cost
// across members in proportion to contributed work. Affordability for every
// member is verified before any balance changes, an unaffordable purchase is
// rejected whole.
func (c *Coalition) Debit(amount float64) error {
	if len(c.members) == 0 {
		return fmt.Errorf("coalition %d has no members to charge", c.id)
	}

	totalWork := c.TotalWork()

	shares := make([]float64, len(c.members))
	for i, m := range c.members {
		if totalWork == 0 {
			shares[i] = amount / float64(len(c.members))
			continue
		}
		shares[i] = amount * m.Contribution(c.id) / totalWork
	}

	for i, m := range c.members {
		if shares[i] > m.Balance() {
			return fmt.Errorf("member %d cannot cover %.2f: %w", m.ID(), shares[i], miner.ErrInsufficientFund)
		}
	}

	for i, m := range c.members {
		if err := m.Debit(shares[i]); err != nil {
			return err
		}
	}

	return nil
}
