package storage

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain/chaintest"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/stretchr/testify/require"
)

func TestSetGetMarket(t *testing.T) {
	base := Market{
		Authority:           codec.CreateAddress(0, ids.GenerateTestID()),
		Description:         "Will it rain tomorrow?",
		ResolutionTimestamp: 1_700_000_000,
		YesMint:             ids.GenerateTestID(),
		NoMint:              ids.GenerateTestID(),
		Vault:               ids.GenerateTestID(),
		CreatedAt:           1_699_990_000,
	}

	tests := []struct {
		name     string
		resolved bool
		outcome  Outcome
		locked   uint64
		status   MarketStatus
	}{
		{"open_empty", false, OutcomeUndefined, 0, MarketStatusOpen},
		{"open_funded", false, OutcomeUndefined, 5_000_000, MarketStatusOpen},
		{"resolved_yes", true, OutcomeYes, 1_000, MarketStatusResolved},
		{"resolved_no", true, OutcomeNo, 0, MarketStatusResolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			mu := chaintest.NewInMemoryStore()
			marketID := ids.GenerateTestID()

			m := base
			m.IsResolved = tt.resolved
			m.Outcome = tt.outcome
			m.TotalCollateralLocked = tt.locked
			if tt.resolved {
				m.ResolvedAt = base.ResolutionTimestamp + 10
			}

			require.NoError(SetMarket(ctx, mu, marketID, &m))

			got, err := GetMarket(ctx, mu, marketID)
			require.NoError(err)
			require.Equal(m, *got)
			require.Equal(tt.status, got.Status())
		})
	}
}

func TestGetMarketNotFound(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	mu := chaintest.NewInMemoryStore()

	_, err := GetMarket(ctx, mu, ids.GenerateTestID())
	require.ErrorIs(err, database.ErrNotFound)

	exists, err := MarketExists(ctx, mu, ids.GenerateTestID())
	require.NoError(err)
	require.False(exists)
}

func TestMintFor(t *testing.T) {
	require := require.New(t)
	m := &Market{YesMint: ids.GenerateTestID(), NoMint: ids.GenerateTestID()}

	yes, ok := m.MintFor(OutcomeYes)
	require.True(ok)
	require.Equal(m.YesMint, yes)

	no, ok := m.MintFor(OutcomeNo)
	require.True(ok)
	require.Equal(m.NoMint, no)

	_, ok = m.MintFor(OutcomeUndefined)
	require.False(ok)
}

func TestParseOutcome(t *testing.T) {
	require := require.New(t)
	for in, want := range map[string]Outcome{"yes": OutcomeYes, "YES": OutcomeYes, "y": OutcomeYes, "No": OutcomeNo} {
		got, err := ParseOutcome(in)
		require.NoError(err)
		require.Equal(want, got)
	}
	_, err := ParseOutcome("maybe")
	require.Error(err)
	require.False(Outcome(3).Valid())
}

func TestBalances(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	mu := chaintest.NewInMemoryStore()
	addr := codec.CreateAddress(0, ids.GenerateTestID())

	bal, err := GetBalance(ctx, mu, addr)
	require.NoError(err)
	require.Zero(bal)

	bal, err = AddBalance(ctx, mu, addr, 10)
	require.NoError(err)
	require.Equal(uint64(10), bal)

	_, err = DeductBalance(ctx, mu, addr, 11)
	require.ErrorIs(err, ErrInsufficientBalance)

	bal, err = DeductBalance(ctx, mu, addr, 10)
	require.NoError(err)
	require.Zero(bal)

	// Zero balances are removed from state.
	_, err = mu.GetValue(ctx, BalanceKey(addr))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(SetBalance(ctx, mu, addr, ^uint64(0)))
	_, err = AddBalance(ctx, mu, addr, 1)
	require.ErrorIs(err, ErrBalanceOverflow)

	got, err := AddressFromKey(BalanceKey(addr))
	require.NoError(err)
	require.Equal(addr, got)
}
