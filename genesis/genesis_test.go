package genesis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/hypersdk/chain/chaintest"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/stretchr/testify/require"

	"github.com/chokosabe/settlementvm/controller"
	"github.com/chokosabe/settlementvm/market"
	"github.com/chokosabe/settlementvm/storage"
)

func TestAddressRoundTrip(t *testing.T) {
	require := require.New(t)
	addr := codec.CreateAddress(0, ids.GenerateTestID())

	s, err := FormatAddress(addr)
	require.NoError(err)
	require.Contains(s, "pred1")

	got, err := ParseAddress(s)
	require.NoError(err)
	require.Equal(addr, got)

	_, err = ParseAddress("not-an-address")
	require.Error(err)
}

func TestInitializeState(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	authority := codec.CreateAddress(0, ids.GenerateTestID())
	alice := codec.CreateAddress(0, ids.GenerateTestID())
	authorityStr, err := FormatAddress(authority)
	require.NoError(err)
	aliceStr, err := FormatAddress(alice)
	require.NoError(err)

	explicitID := ids.GenerateTestID()
	raw, err := json.Marshal(map[string]any{
		"magic":     1,
		"timestamp": 1_000,
		"allocations": []Allocation{
			{Address: aliceStr, Balance: 5_000_000},
		},
		"custom": CustomGenesisState{
			Markets: []MarketSeed{
				{Authority: authorityStr, Description: "Derived id", ResolutionTimestamp: 2_000},
				{ID: explicitID.String(), Authority: authorityStr, Description: "Explicit id", ResolutionTimestamp: 3_000},
			},
		},
	})
	require.NoError(err)

	g := &Genesis{}
	require.NoError(g.Load(raw))
	require.Equal(uint64(1), g.GetMagic())
	require.Equal(int64(1_000), g.GetTimestamp())

	mu := chaintest.NewInMemoryStore()
	require.NoError(g.InitializeState(ctx, trace.Noop, mu, controller.New()))

	bal, err := storage.GetBalance(ctx, mu, alice)
	require.NoError(err)
	require.Equal(uint64(5_000_000), bal)

	ctrl := market.NewDefault()
	m, err := ctrl.Market(ctx, mu, explicitID)
	require.NoError(err)
	require.Equal(authority, m.Authority)
	require.Equal(int64(3_000), m.ResolutionTimestamp)
	require.Equal(int64(1_000), m.CreatedAt)
	yes, no, vault := market.DeriveAccounts(explicitID)
	require.Equal(yes, m.YesMint)
	require.Equal(no, m.NoMint)
	require.Equal(vault, m.Vault)

	params, err := g.Custom.Markets[0].params(0)
	require.NoError(err)
	m, err = ctrl.Market(ctx, mu, params.MarketID)
	require.NoError(err)
	require.Equal("Derived id", m.Description)
}

func TestInitializeStateRejectsPastMarket(t *testing.T) {
	require := require.New(t)
	authorityStr, err := FormatAddress(codec.CreateAddress(0, ids.GenerateTestID()))
	require.NoError(err)

	g := GetDefault()
	g.Timestamp = 5_000
	g.Custom.Markets = []MarketSeed{{Authority: authorityStr, Description: "Stale", ResolutionTimestamp: 4_000}}

	err = g.InitializeState(context.Background(), trace.Noop, chaintest.NewInMemoryStore(), controller.New())
	require.ErrorIs(err, market.ErrInvalidTimestamp)
}

func TestFactoryLoad(t *testing.T) {
	require := require.New(t)
	aliceStr, err := FormatAddress(codec.CreateAddress(0, ids.GenerateTestID()))
	require.NoError(err)

	g := GetDefault()
	g.Allocations = []Allocation{{Address: aliceStr, Balance: 42}}
	raw, err := json.Marshal(g)
	require.NoError(err)

	chainID := ids.GenerateTestID()
	loaded, rules, err := (&Factory{}).Load(raw, nil, 7, chainID)
	require.NoError(err)
	require.Equal(uint32(7), rules.GetRules(0).GetNetworkID())
	require.Equal(chainID, rules.GetRules(0).GetChainID())

	parsed, ok := loaded.(*Genesis)
	require.True(ok)
	require.Equal(g.Magic, parsed.Magic)
	require.Equal(g.Allocations, parsed.Allocations)
}
