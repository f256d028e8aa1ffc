package actions

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	"github.com/chokosabe/settlementvm/asset"
	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/escrow"
	"github.com/chokosabe/settlementvm/market"
	"github.com/chokosabe/settlementvm/storage"
)

var _ chain.Action = (*Resolve)(nil)

// Resolve sets the outcome of a market. Only the market authority may resolve,
// only once, and not before the resolution timestamp.
type Resolve struct {
	MarketID ids.ID          `serialize:"true" json:"marketId"`
	Outcome  storage.Outcome `serialize:"true" json:"outcome"`
}

func (*Resolve) GetTypeID() uint8 {
	return consts.ResolveID
}

func (r *Resolve) Bytes() []byte {
	return marshalTyped(consts.ResolveID, r, consts.MaxActionSize)
}

func UnmarshalResolve(b []byte) (chain.Action, error) {
	r := &Resolve{}
	if err := unmarshalTyped(consts.ResolveID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Resolve action: %w", err)
	}
	return r, nil
}

// StateKeys includes the mints and vault read by the conservation check.
func (r *Resolve) StateKeys(codec.Address, ids.ID) state.Keys {
	yes, no, vault := market.DeriveAccounts(r.MarketID)
	return state.Keys{
		string(storage.MarketKey(r.MarketID)): state.Read | state.Write,
		string(asset.MintKey(yes)):            state.Read,
		string(asset.MintKey(no)):             state.Read,
		string(escrow.VaultKey(vault)):        state.Read,
	}
}

func (r *Resolve) Execute(
	ctx context.Context,
	_ chain.Rules,
	mu state.Mutable,
	timestamp int64,
	actor codec.Address,
	_ ids.ID,
) ([]byte, error) {
	if _, err := markets.Resolve(ctx, mu, now(timestamp), r.MarketID, actor, r.Outcome); err != nil {
		return nil, err
	}
	result := &ResolveResult{
		MarketID: r.MarketID,
		Outcome:  r.Outcome,
	}
	return result.Bytes(), nil
}

func (*Resolve) ComputeUnits(chain.Rules) uint64 {
	return ResolveComputeUnits
}

func (*Resolve) ValidRange(chain.Rules) (int64, int64) {
	return -1, -1
}
