package coalition

import "github.com/poolsim/mining/foundation/mining/miner"

// epsilon guards utility comparisons against floating point noise.
const epsilon = 1e-9

// RewardRate returns the expected block reward rate for a coalition holding
// coalitionHash against a network holding networkHash. The engine supplies
// the model, the coalition only applies it to hypothetical states.
type RewardRate func(coalitionHash, networkHash float64) float64

// CanAdmit evaluates the stability admission rule for a prospective member:
// recomputing the aggregate hash rate and redistributing expected utility
// across |members|+1 members, no existing member's expected utility may drop
// below the tolerance fraction of its current value. The candidate's own
// gain plays no part. The rule is evaluated against the hypothetical
// post-join state, nothing is mutated until the decision is made.
func (c *Coalition) CanAdmit(candidate *miner.Miner, networkHash float64, rate RewardRate) bool {
	if len(c.members) == 0 {
		return true
	}

	currentWork := c.TotalWork()
	if currentWork == 0 {
		return true
	}

	candidateWork := candidate.PotentialContribution()
	projectedWork := currentWork + candidateWork

	// The candidate is already part of the network, so the network hash rate
	// stays put while the coalition's own aggregate grows. Existing members
	// trade a smaller share for a stronger coalition; the two cancel exactly
	// on raw member work and the newcomer's claim on any purchased compute
	// is what can push a member below tolerance.
	currentReward := rate(c.EffectiveHashRate(), networkHash)
	projectedReward := rate(c.EffectiveHashRate()+candidateWork, networkHash)

	for _, member := range c.members {
		work := member.Contribution(c.id)

		current := (work / currentWork) * currentReward
		projected := (work / projectedWork) * projectedReward

		if projected < current*c.tolerance-epsilon {
			return false
		}
	}

	return true
}
