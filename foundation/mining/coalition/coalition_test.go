package coalition_test

import (
	"testing"

	"github.com/poolsim/mining/foundation/mining/coalition"
	"github.com/poolsim/mining/foundation/mining/miner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// proportional models a network where a coalition's expected reward tracks
// its share of the total hash rate.
func proportional(coalitionHash, networkHash float64) float64 {
	if networkHash == 0 {
		return 0
	}
	return coalitionHash / networkHash * 1000
}

func newMiner(t *testing.T, id uint64, hashRate float64, maxJ int) *miner.Miner {
	t.Helper()

	m, err := miner.New(id, hashRate, miner.Config{
		MaxCoalitions:  maxJ,
		SwitchOverhead: 0.016,
		InitialBalance: 1000,
		FilterCapacity: 100,
		FilterTarget:   0.01,
	})
	require.NoError(t, err)

	return m
}

func TestAggregateHashRateIsDerived(t *testing.T) {
	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m1 := newMiner(t, 1, 100, 3)
	m2 := newMiner(t, 2, 300, 3)

	require.NoError(t, c.Admit(m1, 400, proportional))
	require.NoError(t, c.Admit(m2, 400, proportional))

	assert.InDelta(t, 400.0, c.TotalWork(), 1e-9)

	// The aggregate follows membership changes live.
	require.NoError(t, c.Remove(m2))
	assert.InDelta(t, 100.0, c.TotalWork(), 1e-9)
	assert.False(t, m2.IsMember(c.ID()))

	// Empty coalitions stay addressable with zero hash rate.
	require.NoError(t, c.Remove(m1))
	assert.Equal(t, 0, c.Size())
	assert.Equal(t, 0.0, c.TotalWork())
}

func TestAdmissionInvariant(t *testing.T) {
	const networkHash = 1000.0

	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m1 := newMiner(t, 1, 200, 3)
	m2 := newMiner(t, 2, 250, 3)
	require.NoError(t, c.Admit(m1, networkHash, proportional))

	before := c.MemberUtility(m1, networkHash, proportional)

	require.NoError(t, c.Admit(m2, networkHash, proportional))

	after := c.MemberUtility(m1, networkHash, proportional)
	assert.GreaterOrEqual(t, after, 0.95*before-1e-9,
		"no pre-existing member utility may fall below tolerance")
}

func TestAdmissionRejectsDilution(t *testing.T) {
	// A newcomer claims a share of the coalition's purchased compute. When
	// that subsidy is significant, existing members lose more than the
	// tolerance allows.
	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m1 := newMiner(t, 1, 100, 3)
	require.NoError(t, c.Admit(m1, 1000, proportional))
	c.SetPurchased(50)

	m2 := newMiner(t, 2, 100, 3)
	err = c.Admit(m2, 1000, proportional)
	assert.ErrorIs(t, err, coalition.ErrAdmissionDenied)

	// Rejection must not mutate either side.
	assert.Equal(t, 1, c.Size())
	assert.False(t, m2.IsMember(c.ID()))

	// Without the subsidy the same join is neutral and accepted.
	c.SetPurchased(0)
	require.NoError(t, c.Admit(m2, 1000, proportional))
}

func TestAdmissionRespectsCap(t *testing.T) {
	c, err := coalition.New(9, "fee", 0.95)
	require.NoError(t, err)

	m := newMiner(t, 1, 100, 1)
	require.NoError(t, m.Join(5))

	err = c.Admit(m, 1000, proportional)
	assert.ErrorIs(t, err, coalition.ErrAdmissionDenied)
	assert.Equal(t, 0, c.Size())
}

func TestDistributeRewards(t *testing.T) {
	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m1 := newMiner(t, 1, 100, 3)
	m2 := newMiner(t, 2, 300, 3)
	require.NoError(t, c.Admit(m1, 400, proportional))
	require.NoError(t, c.Admit(m2, 400, proportional))

	c.DistributeRewards(1000)

	assert.InDelta(t, 250.0, m1.NetEarnings(), 1e-9)
	assert.InDelta(t, 750.0, m2.NetEarnings(), 1e-9)
	assert.Equal(t, 1, c.BlocksFound())
}

func TestDebitAtomicity(t *testing.T) {
	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m1 := newMiner(t, 1, 100, 3)
	m2 := newMiner(t, 2, 300, 3)
	require.NoError(t, c.Admit(m1, 400, proportional))
	require.NoError(t, c.Admit(m2, 400, proportional))

	// Both can afford their proportional share.
	require.NoError(t, c.Debit(400))
	assert.InDelta(t, 900.0, m1.Balance(), 1e-9)
	assert.InDelta(t, 700.0, m2.Balance(), 1e-9)

	// An unaffordable purchase changes nothing.
	err = c.Debit(4000)
	require.Error(t, err)
	assert.InDelta(t, 900.0, m1.Balance(), 1e-9)
	assert.InDelta(t, 700.0, m2.Balance(), 1e-9)
}

func TestDegenerateUtility(t *testing.T) {
	c, err := coalition.New(1, "fee", 0.95)
	require.NoError(t, err)

	m := newMiner(t, 1, 100, 3)

	// A coalition the miner does not belong to yields zero, not NaN.
	assert.Equal(t, 0.0, c.MemberUtility(m, 1000, proportional))
}
