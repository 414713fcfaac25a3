package amm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRestore_RoundTrip(t *testing.T) {
	p := newFundedPool(t, 3, 2000, 2000, 1000, 1000)
	p.Fund(bob, u(500), u(0))
	_, err := p.Swap(bob, Token1ToToken2, u(100), nil)
	require.NoError(t, err)

	raw, err := json.Marshal(p.Export())
	require.NoError(t, err)

	var st State
	require.NoError(t, json.Unmarshal(raw, &st))
	restored, err := Restore(&st)
	require.NoError(t, err)

	assert.Equal(t, p.Export(), restored.Export())
	assert.Equal(t, p.Summary(), restored.Summary())
	assert.Equal(t, p.Portfolio(bob), restored.Portfolio(bob))
}

func TestExport_Format(t *testing.T) {
	p := newFundedPool(t, 3, 150, 250, 100, 200)

	st := p.Export()
	assert.Equal(t, uint64(3), st.FeeBps)
	assert.Equal(t, "100", st.Reserve1)
	assert.Equal(t, "200", st.Reserve2)
	assert.Equal(t, "1000000", st.TotalShares)
	assert.Equal(t, map[AccountID]string{alice: "50"}, st.Token1Balance)
	assert.Equal(t, map[AccountID]string{alice: "50"}, st.Token2Balance)
	assert.Equal(t, map[AccountID]string{alice: "1000000"}, st.Shares)
}

func TestRestore_Empty(t *testing.T) {
	p, err := Restore(&State{FeeBps: 5})
	require.NoError(t, err)
	assert.False(t, p.Active())
	assertSummary(t, p, 0, 0, 0)
	assert.Equal(t, uint64(5), p.FeeBps())

	p.Fund(alice, u(10), u(10))
	_, err = p.ProvideLiquidity(alice, u(10), u(10))
	require.NoError(t, err)
}

func TestRestore_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		state *State
	}{
		{"nil", nil},
		{"fee out of range", &State{FeeBps: 1000}},
		{"bad decimal", &State{Reserve1: "12x", Reserve2: "1", TotalShares: "1"}},
		{"negative", &State{Reserve1: "-1"}},
		{"bad ledger entry", &State{Token1Balance: map[AccountID]string{alice: "0x10"}}},
		{"reserves without shares", &State{Reserve1: "10", Reserve2: "10"}},
		{"one sided", &State{Reserve1: "10", TotalShares: "1", Shares: map[AccountID]string{alice: "1"}}},
		{"reserve above amount width", &State{
			Reserve1: "340282366920938463463374607431768211456", Reserve2: "1", TotalShares: "1",
			Shares: map[AccountID]string{alice: "1"},
		}},
		{"balance above amount width", &State{Token2Balance: map[AccountID]string{bob: "340282366920938463463374607431768211456"}}},
		{"ledger mismatch", &State{
			Reserve1: "10", Reserve2: "10", TotalShares: "100",
			Shares: map[AccountID]string{alice: "60", bob: "30"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Restore(tt.state)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Nil(t, p)
		})
	}
}

func TestClone_Independent(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 100)
	c := p.Clone()

	c.Fund(bob, u(50), u(50))
	_, err := c.Swap(bob, Token1ToToken2, u(50), nil)
	require.NoError(t, err)
	_, _, err = c.Withdraw(alice, u(BootstrapShares/2))
	require.NoError(t, err)

	assertSummary(t, p, 100, 100, BootstrapShares)
	assertPortfolio(t, p, alice, 900, 900, BootstrapShares)
	assertPortfolio(t, p, bob, 0, 0, 0)
	require.NoError(t, c.CheckInvariants())
}
