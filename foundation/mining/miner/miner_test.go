package miner_test

import (
	"errors"
	"testing"

	"github.com/poolsim/mining/foundation/mining/miner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func config(maxJ int) miner.Config {
	return miner.Config{
		MaxCoalitions:  maxJ,
		SwitchOverhead: 0.016,
		InitialBalance: 1000,
		FilterCapacity: 100,
		FilterTarget:   0.01,
	}
}

func TestMembershipCap(t *testing.T) {
	m, err := miner.New(1, 200e6, config(2))
	require.NoError(t, err)

	require.NoError(t, m.Join(10))
	require.NoError(t, m.Join(20))

	err = m.Join(30)
	assert.ErrorIs(t, err, miner.ErrMembershipCap)
	assert.Equal(t, 2, m.MemberCount())

	err = m.Join(10)
	assert.ErrorIs(t, err, miner.ErrAlreadyMember)

	require.NoError(t, m.Leave(10))
	assert.Equal(t, []uint64{20}, m.Memberships())
	require.NoError(t, m.Join(30))

	assert.ErrorIs(t, m.Leave(99), miner.ErrNotMember)
}

func TestBalance(t *testing.T) {
	m, err := miner.New(1, 200e6, config(3))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, m.Balance())
	assert.Equal(t, 0.0, m.NetEarnings())

	m.Credit(250)
	assert.Equal(t, 1250.0, m.Balance())
	assert.Equal(t, 250.0, m.NetEarnings())

	require.NoError(t, m.Debit(1000))
	assert.Equal(t, 250.0, m.Balance())

	err = m.Debit(251)
	assert.True(t, errors.Is(err, miner.ErrInsufficientFund))
	assert.Equal(t, 250.0, m.Balance(), "rejected debit must not mutate")
}

func TestContribution(t *testing.T) {
	m, err := miner.New(1, 100, config(3))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Contribution(10), "non member contributes nothing")

	require.NoError(t, m.Join(10))
	assert.InDelta(t, 100.0, m.Contribution(10), 1e-9, "single membership carries no overhead")

	require.NoError(t, m.Join(20))

	// Two memberships split evenly with 2*0.016 overhead.
	want := 50.0 * (1 - 2*0.016)
	assert.InDelta(t, want, m.Contribution(10), 1e-9)
	assert.InDelta(t, want, m.Contribution(20), 1e-9)

	// Allocation follows utility.
	m.Allocate(map[uint64]float64{10: 3, 20: 1})
	assert.InDelta(t, 100*0.75*(1-2*0.016), m.Contribution(10), 1e-9)
	assert.InDelta(t, 100*0.25*(1-2*0.016), m.Contribution(20), 1e-9)

	// Potential contribution assumes one more membership.
	pot := m.PotentialContribution()
	assert.InDelta(t, 100.0/3*(1-3*0.016), pot, 1e-9)

	// Hypothetical splits at an explicit membership count.
	assert.InDelta(t, 100.0, m.ContributionWith(1), 1e-9)
	assert.InDelta(t, 50*(1-2*0.016), m.ContributionWith(2), 1e-9)
	assert.Equal(t, 0.0, m.ContributionWith(0))
}

func TestSyncState(t *testing.T) {
	m, err := miner.New(1, 100, config(3))
	require.NoError(t, err)

	assert.False(t, m.HoldsTx(42))
	m.RecordTx(42)
	assert.True(t, m.HoldsTx(42))
}

func TestBadHashRate(t *testing.T) {
	_, err := miner.New(1, 0, config(3))
	assert.Error(t, err)
}
