package actions

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain"
	"github.com/ava-labs/hypersdk/chain/chaintest"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"
	"github.com/stretchr/testify/require"

	"github.com/chokosabe/settlementvm/market"
	"github.com/chokosabe/settlementvm/storage"
)

const (
	createdAtMs  int64 = 1_000_000
	resolvesAt   int64 = 2_000
	resolvesAtMs int64 = resolvesAt * 1_000
)

// declaredState fails any access to a key the action did not declare.
type declaredState struct {
	t    *testing.T
	mu   state.Mutable
	keys state.Keys
}

func (d *declaredState) check(key []byte, perm state.Permissions) {
	d.t.Helper()
	have, ok := d.keys[string(key)]
	require.True(d.t, ok, "undeclared key %x", key)
	require.True(d.t, have.Has(perm), "key %x declared %v, needs %v", key, have, perm)
}

func (d *declaredState) GetValue(ctx context.Context, key []byte) ([]byte, error) {
	d.check(key, state.Read)
	return d.mu.GetValue(ctx, key)
}

func (d *declaredState) Insert(ctx context.Context, key []byte, value []byte) error {
	d.check(key, state.Write)
	return d.mu.Insert(ctx, key, value)
}

func (d *declaredState) Remove(ctx context.Context, key []byte) error {
	d.check(key, state.Write)
	return d.mu.Remove(ctx, key)
}

func execute(t *testing.T, mu state.Mutable, action chain.Action, timestamp int64, actor codec.Address, actionID ids.ID) ([]byte, error) {
	t.Helper()
	view := &declaredState{t: t, mu: mu, keys: action.StateKeys(actor, actionID)}
	return action.Execute(context.Background(), nil, view, timestamp, actor, actionID)
}

func TestActionLifecycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	mu := chaintest.NewInMemoryStore()

	authority := codec.CreateAddress(0, ids.GenerateTestID())
	alice := codec.CreateAddress(0, ids.GenerateTestID())
	_, err := storage.AddBalance(ctx, mu, alice, 10_000_000)
	require.NoError(err)

	// 1. Create, named by the action id
	actionID := ids.GenerateTestID()
	out, err := execute(t, mu, &CreateMarket{
		Description:         "Will it rain tomorrow?",
		ResolutionTimestamp: resolvesAt,
	}, createdAtMs, authority, actionID)
	require.NoError(err)
	typed, err := UnmarshalCreateMarketResult(out)
	require.NoError(err)
	created := typed.(*CreateMarketResult)
	require.Equal(actionID, created.MarketID)
	yes, no, vault := market.DeriveAccounts(actionID)
	require.Equal(yes, created.YesMint)
	require.Equal(no, created.NoMint)
	require.Equal(vault, created.Vault)
	marketID := created.MarketID

	// 2. Deposit
	out, err = execute(t, mu, &DepositAndMint{MarketID: marketID, Amount: 5_000_000}, createdAtMs, alice, ids.GenerateTestID())
	require.NoError(err)
	typed, err = UnmarshalDepositAndMintResult(out)
	require.NoError(err)
	deposited := typed.(*DepositAndMintResult)
	require.Equal(uint64(5_000_000), deposited.Minted)
	require.Equal(uint64(5_000_000), deposited.TotalCollateralLocked)

	// 3. Resolve: too early, then at the resolution time
	_, err = execute(t, mu, &Resolve{MarketID: marketID, Outcome: storage.OutcomeYes}, resolvesAtMs-1_000, authority, ids.GenerateTestID())
	require.ErrorIs(err, market.ErrTooEarly)
	out, err = execute(t, mu, &Resolve{MarketID: marketID, Outcome: storage.OutcomeYes}, resolvesAtMs, authority, ids.GenerateTestID())
	require.NoError(err)
	typed, err = UnmarshalResolveResult(out)
	require.NoError(err)
	require.Equal(storage.OutcomeYes, typed.(*ResolveResult).Outcome)

	// 4. Redeem both sides
	out, err = execute(t, mu, &Redeem{MarketID: marketID, Side: storage.OutcomeYes, Amount: 5_000_000}, resolvesAtMs, alice, ids.GenerateTestID())
	require.NoError(err)
	typed, err = UnmarshalRedeemResult(out)
	require.NoError(err)
	require.Equal(uint64(5_000_000), typed.(*RedeemResult).Payout)

	out, err = execute(t, mu, &Redeem{MarketID: marketID, Side: storage.OutcomeNo, Amount: 5_000_000}, resolvesAtMs, alice, ids.GenerateTestID())
	require.NoError(err)
	typed, err = UnmarshalRedeemResult(out)
	require.NoError(err)
	require.Zero(typed.(*RedeemResult).Payout)
	require.Equal(uint64(5_000_000), typed.(*RedeemResult).Burned)

	bal, err := storage.GetBalance(ctx, mu, alice)
	require.NoError(err)
	require.Equal(uint64(10_000_000), bal)
}

func TestCreateMarketExplicitID(t *testing.T) {
	require := require.New(t)
	mu := chaintest.NewInMemoryStore()
	authority := codec.CreateAddress(0, ids.GenerateTestID())

	action := &CreateMarket{
		Description:         "Explicit",
		ResolutionTimestamp: resolvesAt,
		MarketID:            ids.GenerateTestID(),
	}
	out, err := execute(t, mu, action, createdAtMs, authority, ids.GenerateTestID())
	require.NoError(err)
	typed, err := UnmarshalCreateMarketResult(out)
	require.NoError(err)
	require.Equal(action.MarketID, typed.(*CreateMarketResult).MarketID)

	_, err = execute(t, mu, action, createdAtMs, authority, ids.GenerateTestID())
	require.ErrorIs(err, market.ErrDuplicateMarket)
}

func TestResolveUnauthorized(t *testing.T) {
	require := require.New(t)
	mu := chaintest.NewInMemoryStore()
	authority := codec.CreateAddress(0, ids.GenerateTestID())
	actionID := ids.GenerateTestID()

	_, err := execute(t, mu, &CreateMarket{Description: "Q", ResolutionTimestamp: resolvesAt}, createdAtMs, authority, actionID)
	require.NoError(err)
	_, err = execute(t, mu, &Resolve{MarketID: actionID, Outcome: storage.OutcomeNo}, resolvesAtMs, codec.CreateAddress(0, ids.GenerateTestID()), ids.GenerateTestID())
	require.ErrorIs(err, market.ErrUnauthorized)
}

func TestActionCodec(t *testing.T) {
	require := require.New(t)
	marketID := ids.GenerateTestID()

	tests := []struct {
		action    chain.Action
		unmarshal func([]byte) (chain.Action, error)
	}{
		{&CreateMarket{Description: "Will it rain?", ResolutionTimestamp: resolvesAt, MarketID: marketID}, UnmarshalCreateMarket},
		{&DepositAndMint{MarketID: marketID, Amount: 42}, UnmarshalDepositAndMint},
		{&Resolve{MarketID: marketID, Outcome: storage.OutcomeNo}, UnmarshalResolve},
		{&Redeem{MarketID: marketID, Side: storage.OutcomeYes, Amount: 7}, UnmarshalRedeem},
	}
	for _, tt := range tests {
		b := tt.action.Bytes()
		require.Equal(tt.action.GetTypeID(), b[0])
		got, err := tt.unmarshal(b)
		require.NoError(err)
		require.Equal(tt.action, got)
	}

	_, err := UnmarshalResolve(nil)
	require.ErrorIs(err, ErrUnmarshalEmpty)
	_, err = UnmarshalRedeem((&Resolve{MarketID: marketID}).Bytes())
	require.Error(err)
}
