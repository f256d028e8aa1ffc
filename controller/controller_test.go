package controller

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain/chaintest"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"
	"github.com/stretchr/testify/require"

	"github.com/chokosabe/settlementvm/storage"
)

func TestBalanceHandler(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	mu := chaintest.NewInMemoryStore()
	addr := codec.CreateAddress(0, ids.GenerateTestID())
	c := New()

	keys := c.SponsorStateKeys(addr)
	require.Len(keys, 1)
	perm, ok := keys[string(storage.BalanceKey(addr))]
	require.True(ok)
	require.True(perm.Has(state.Write))

	require.ErrorIs(c.CanDeduct(ctx, addr, mu, 1), storage.ErrInsufficientBalance)

	require.NoError(c.AddBalance(ctx, addr, mu, 100))
	require.NoError(c.CanDeduct(ctx, addr, mu, 100))
	require.NoError(c.Deduct(ctx, addr, mu, 40))

	bal, err := c.GetBalance(ctx, addr, mu)
	require.NoError(err)
	require.Equal(uint64(60), bal)

	require.ErrorIs(c.Deduct(ctx, addr, mu, 61), storage.ErrInsufficientBalance)
	bal, err = c.GetBalance(ctx, addr, mu)
	require.NoError(err)
	require.Equal(uint64(60), bal)
}
