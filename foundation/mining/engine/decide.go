package engine

import (
	"math"

	"github.com/poolsim/mining/foundation/mining/coalition"
	"github.com/poolsim/mining/foundation/mining/miner"
)

// List of decision protocol actions.
const (
	actionStay = iota
	actionJoin
	actionLeave
	actionSwitch
)

// decide runs one miner through the decision protocol: the expected total
// utility of staying, joining, leaving and switching are compared and the
// single best improving action is taken. A tie always favors staying put,
// so a steady state is a no-op, not an error.
func (e *Engine) decide(m *miner.Miner, networkHash float64) {
	stay := e.stayUtility(m, networkHash)

	joinID, join := e.joinCandidate(m, networkHash)
	leaveID, leave := e.leaveCandidate(m, networkHash)
	outID, inID, swap := e.switchCandidate(m, networkHash)

	best := stay
	action := actionStay
	if joinID != 0 && join > best {
		best = join
		action = actionJoin
	}
	if leaveID != 0 && leave > best {
		best = leave
		action = actionLeave
	}
	if outID != 0 && swap > best {
		action = actionSwitch
	}

	switch action {
	case actionJoin:
		if err := e.coalitions[joinID-1].Admit(m, networkHash, e.rewardRate); err == nil {
			e.ev("engine: decide: miner[%d] joined coalition[%d]", m.ID(), joinID)
		}

	case actionLeave:
		if err := e.coalitions[leaveID-1].Remove(m); err == nil {
			e.ev("engine: decide: miner[%d] left coalition[%d]", m.ID(), leaveID)
		}

	case actionSwitch:
		// The admission was prechecked but the old seat is gone either
		// way, a denied re-admission is the miner's loss.
		if err := e.coalitions[outID-1].Remove(m); err == nil {
			if err := e.coalitions[inID-1].Admit(m, networkHash, e.rewardRate); err == nil {
				e.ev("engine: decide: miner[%d] switched coalition[%d] for coalition[%d]", m.ID(), outID, inID)
			} else {
				e.ev("engine: decide: miner[%d] switch denied: %s", m.ID(), err)
			}
		}
	}

	e.allocate(m, networkHash)
}

// stayUtility returns the miner's expected total utility as things stand: the
// sum over its memberships, or the solo mining rate when it has none.
func (e *Engine) stayUtility(m *miner.Miner, networkHash float64) float64 {
	if m.MemberCount() == 0 {
		return e.soloRate(m.HashRate(), networkHash)
	}

	var total float64
	for _, id := range m.Memberships() {
		total += e.coalitions[id-1].MemberUtility(m, networkHash, e.rewardRate)
	}

	return total
}

// hypoUtility returns the expected utility of contributing own work to a
// coalition whose other members contribute base work. Nothing is mutated.
func (e *Engine) hypoUtility(c *coalition.Coalition, own, base, networkHash float64) float64 {
	hypWork := base + own
	if hypWork <= 0 {
		return 0
	}

	u := own / hypWork * e.rewardRate(hypWork+c.Purchased(), networkHash)
	if u < 0 {
		return 0
	}

	return u
}

// othersWork returns the work the coalition's other members contribute.
func (e *Engine) othersWork(c *coalition.Coalition, m *miner.Miner) float64 {
	return c.TotalWork() - m.Contribution(c.ID())
}

// joinCandidate returns the best admissible coalition to add and the total
// utility after adding it, every engagement revalued at an even split across
// n+1 memberships. A zero id means no coalition would both accept the miner
// and pay anything.
func (e *Engine) joinCandidate(m *miner.Miner, networkHash float64) (uint64, float64) {
	if !m.CanJoin() {
		return 0, 0
	}

	own := m.PotentialContribution()
	if own <= 0 {
		return 0, 0
	}

	var existing float64
	for _, id := range m.Memberships() {
		c := e.coalitions[id-1]
		existing += e.hypoUtility(c, own, e.othersWork(c, m), networkHash)
	}

	var bestID uint64
	var best float64
	for _, c := range e.coalitions {
		if c.HasMember(m.ID()) {
			continue
		}
		if !c.CanAdmit(m, networkHash, e.rewardRate) {
			continue
		}

		if u := e.hypoUtility(c, own, c.TotalWork(), networkHash); bestID == 0 || u > best {
			bestID = c.ID()
			best = u
		}
	}

	if bestID == 0 {
		return 0, 0
	}

	return bestID, existing + best
}

// leaveCandidate returns the membership whose removal leaves the highest
// total utility, with the remaining engagements revalued at an even split
// across n-1 memberships. Dropping the only membership returns the miner to
// solo mining for the base reward.
func (e *Engine) leaveCandidate(m *miner.Miner, networkHash float64) (uint64, float64) {
	memberships := m.Memberships()

	switch len(memberships) {
	case 0:
		return 0, 0
	case 1:
		return memberships[0], e.soloRate(m.HashRate(), networkHash)
	}

	own := m.ContributionWith(len(memberships) - 1)

	var bestID uint64
	var best float64
	for _, drop := range memberships {
		var total float64
		for _, id := range memberships {
			if id == drop {
				continue
			}
			c := e.coalitions[id-1]
			total += e.hypoUtility(c, own, e.othersWork(c, m), networkHash)
		}

		if bestID == 0 || total > best {
			bestID = drop
			best = total
		}
	}

	return bestID, best
}

// switchCandidate trades the weakest engagement for the best admissible
// coalition when the miner sits at its membership cap. Below the cap a
// plain join dominates.
func (e *Engine) switchCandidate(m *miner.Miner, networkHash float64) (uint64, uint64, float64) {
	if m.CanJoin() || m.MemberCount() == 0 {
		return 0, 0, 0
	}

	memberships := m.Memberships()

	var outID uint64
	worst := math.MaxFloat64
	for _, id := range memberships {
		if u := e.coalitions[id-1].MemberUtility(m, networkHash, e.rewardRate); u < worst {
			worst = u
			outID = id
		}
	}

	own := m.ContributionWith(len(memberships))

	var remaining float64
	for _, id := range memberships {
		if id == outID {
			continue
		}
		c := e.coalitions[id-1]
		remaining += e.hypoUtility(c, own, e.othersWork(c, m), networkHash)
	}

	var inID uint64
	var best float64
	for _, c := range e.coalitions {
		if c.HasMember(m.ID()) {
			continue
		}
		if !c.CanAdmit(m, networkHash, e.rewardRate) {
			continue
		}

		if u := e.hypoUtility(c, own, c.TotalWork(), networkHash); inID == 0 || u > best {
			inID = c.ID()
			best = u
		}
	}

	if inID == 0 {
		return 0, 0, 0
	}

	return outID, inID, remaining + best
}

// allocate refreshes the miner's work split across its current memberships
// from their latest utilities.
func (e *Engine) allocate(m *miner.Miner, networkHash float64) {
	utilities := make(map[uint64]float64, m.MemberCount())
	for _, id := range m.Memberships() {
		utilities[id] = e.coalitions[id-1].MemberUtility(m, networkHash, e.rewardRate)
	}

	m.Allocate(utilities)
}
