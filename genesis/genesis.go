package genesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/hypersdk/chain"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"
	"github.com/btcsuite/btcd/btcutil/bech32"

	hgenesis "github.com/ava-labs/hypersdk/genesis"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/market"
)

var (
	_ hgenesis.Genesis               = (*Genesis)(nil)
	_ hgenesis.GenesisAndRuleFactory = (*Factory)(nil)
)

type Allocation struct {
	Address string `json:"address"` // bech32
	Balance uint64 `json:"balance"`
}

// MarketSeed is a market opened at genesis. An empty ID derives one from the
// seed's position and description.
type MarketSeed struct {
	ID                  string `json:"id,omitempty"`
	Authority           string `json:"authority"` // bech32
	Description         string `json:"description"`
	ResolutionTimestamp int64  `json:"resolutionTimestamp"`
}

type CustomGenesisState struct {
	Markets []MarketSeed `json:"markets"`
}

// Genesis extends the default hypersdk genesis with bech32 allocations and
// markets that exist from the first block.
type Genesis struct {
	*hgenesis.DefaultGenesis

	Magic       uint64             `json:"magic"`
	Timestamp   int64              `json:"timestamp"` // unix seconds
	Allocations []Allocation       `json:"allocations"`
	Custom      CustomGenesisState `json:"custom"`
}

func (g *Genesis) Load(raw []byte) error {
	if err := json.Unmarshal(raw, g); err != nil {
		return err
	}
	if g.DefaultGenesis == nil {
		g.DefaultGenesis = hgenesis.NewDefaultGenesis(nil)
	}
	return nil
}

func (g *Genesis) GetMagic() uint64 {
	return g.Magic
}

func (g *Genesis) GetTimestamp() int64 {
	return g.Timestamp
}

func (g *Genesis) InitializeState(ctx context.Context, tracer trace.Tracer, mu state.Mutable, bh chain.BalanceHandler) error {
	ctx, span := tracer.Start(ctx, "Genesis.InitializeState")
	defer span.End()

	if g.DefaultGenesis != nil {
		if err := g.DefaultGenesis.InitializeState(ctx, tracer, mu, bh); err != nil {
			return err
		}
	}
	for _, alloc := range g.Allocations {
		addr, err := ParseAddress(alloc.Address)
		if err != nil {
			return err
		}
		if err := bh.AddBalance(ctx, addr, mu, alloc.Balance); err != nil {
			return fmt.Errorf("failed to allocate %d to %s: %w", alloc.Balance, alloc.Address, err)
		}
	}

	ctrl := market.NewDefault()
	for i, seed := range g.Custom.Markets {
		params, err := seed.params(i)
		if err != nil {
			return err
		}
		if _, err := ctrl.CreateMarket(ctx, mu, g.Timestamp, params); err != nil {
			return fmt.Errorf("failed to create genesis market %d: %w", i, err)
		}
	}
	return nil
}

func (s MarketSeed) params(i int) (market.CreateParams, error) {
	authority, err := ParseAddress(s.Authority)
	if err != nil {
		return market.CreateParams{}, fmt.Errorf("market %d: %w", i, err)
	}
	marketID := ids.ID(hashing.ComputeHash256Array([]byte(fmt.Sprintf("%d:%s", i, s.Description))))
	if s.ID != "" {
		marketID, err = ids.FromString(s.ID)
		if err != nil {
			return market.CreateParams{}, fmt.Errorf("market %d: invalid id %q: %w", i, s.ID, err)
		}
	}
	return market.DeriveParams(authority, s.Description, s.ResolutionTimestamp, marketID), nil
}

// Factory loads the hypersdk rules from the default genesis layout and the
// chain state from Genesis.
type Factory struct {
	hgenesis.DefaultGenesisFactory
}

func (f *Factory) Load(genesisBytes []byte, upgradeBytes []byte, networkID uint32, chainID ids.ID) (hgenesis.Genesis, chain.RuleFactory, error) {
	_, rules, err := f.DefaultGenesisFactory.Load(genesisBytes, upgradeBytes, networkID, chainID)
	if err != nil {
		return nil, nil, err
	}
	g := &Genesis{}
	if err := g.Load(genesisBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return g, rules, nil
}

// ParseAddress decodes a bech32 address with the chain's HRP.
func ParseAddress(s string) (codec.Address, error) {
	hrp, data5bit, err := bech32.Decode(s)
	if err != nil {
		return codec.EmptyAddress, fmt.Errorf("failed to decode bech32 address %s: %w", s, err)
	}
	if hrp != consts.HRP {
		return codec.EmptyAddress, fmt.Errorf("address %s has hrp %q, expected %q", s, hrp, consts.HRP)
	}
	data8bit, err := bech32.ConvertBits(data5bit, 5, 8, false)
	if err != nil {
		return codec.EmptyAddress, fmt.Errorf("failed to convert bech32 data bits for address %s: %w", s, err)
	}
	if len(data8bit) != codec.AddressLen {
		return codec.EmptyAddress, fmt.Errorf("decoded address %s has %d bytes, expected %d", s, len(data8bit), codec.AddressLen)
	}
	var addr codec.Address
	copy(addr[:], data8bit)
	return addr, nil
}

// FormatAddress encodes addr as bech32 with the chain's HRP.
func FormatAddress(addr codec.Address) (string, error) {
	data5bit, err := bech32.ConvertBits(addr[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(consts.HRP, data5bit)
}

func GetDefault() *Genesis {
	return &Genesis{
		DefaultGenesis: hgenesis.NewDefaultGenesis(nil),
		Magic:          12345,
		Timestamp:      time.Now().Unix(),
	}
}
