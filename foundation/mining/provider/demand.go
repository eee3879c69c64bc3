package provider

import "fmt"

// List of different demand policies.
const (
	DemandConstant = "constant"
	DemandScaled   = "scaled"
)

// UnitHash is the number of hashes in one nonce range unit. Demand, capacity
// and prices are expressed per unit so money amounts stay in the same order
// of magnitude as block rewards.
const UnitHash = 1e9

// Map of different demand policies with functions.
var demandPolicies = map[string]DemandFunc{
	DemandConstant: constantDemand,
	DemandScaled:   scaledDemand,
}

// DemandFunc defines a function that computes the nonce range quantity a
// buyer wants, from the configured difficulty, the buyer's effective hash
// rate and its membership count. The relationship between demand and
// coalition shape is deliberately a swappable policy, not a hard coded
// behavior.
type DemandFunc func(difficulty, hashRate float64, members int) float64

// RetrieveDemand returns the specified demand policy function.
func RetrieveDemand(policy string) (DemandFunc, error) {
	fn, exists := demandPolicies[policy]
	if !exists {
		return nil, fmt.Errorf("demand policy %q does not exist", policy)
	}
	return fn, nil
}

// =============================================================================

// constantDemand is the conservative baseline: half the buyer's own hash
// rate regardless of how many members it carries.
var constantDemand = func(difficulty, hashRate float64, members int) float64 {
	if hashRate <= 0 {
		return 0
	}

	return hashRate / UnitHash * 0.5
}

// scaledDemand shrinks the order as the buyer grows, larger coalitions are
// assumed to be more self sufficient.
var scaledDemand = func(difficulty, hashRate float64, members int) float64 {
	if hashRate <= 0 {
		return 0
	}
	if members < 1 {
		members = 1
	}

	factor := 0.5 / (1 + float64(members-1)*0.1)

	return hashRate / UnitHash * factor
}
