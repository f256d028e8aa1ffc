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

var _ chain.Action = (*CreateMarket)(nil)

// CreateMarket opens a binary market with the actor as its resolution
// authority. When MarketID is empty the action ID names the market.
type CreateMarket struct {
	Description         string `serialize:"true" json:"description"`
	ResolutionTimestamp int64  `serialize:"true" json:"resolutionTimestamp"`
	MarketID            ids.ID `serialize:"true" json:"marketId"`
}

func (*CreateMarket) GetTypeID() uint8 {
	return consts.CreateMarketID
}

func (cm *CreateMarket) Bytes() []byte {
	return marshalTyped(consts.CreateMarketID, cm, consts.MaxActionSize)
}

func UnmarshalCreateMarket(b []byte) (chain.Action, error) {
	cm := &CreateMarket{}
	if err := unmarshalTyped(consts.CreateMarketID, b, cm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CreateMarket action: %w", err)
	}
	return cm, nil
}

func (cm *CreateMarket) marketID(actionID ids.ID) ids.ID {
	if cm.MarketID == ids.Empty {
		return actionID
	}
	return cm.MarketID
}

func (cm *CreateMarket) StateKeys(_ codec.Address, actionID ids.ID) state.Keys {
	marketID := cm.marketID(actionID)
	yes, no, vault := market.DeriveAccounts(marketID)
	return state.Keys{
		string(storage.MarketKey(marketID)): state.All,
		string(asset.MintKey(yes)):          state.All,
		string(asset.MintKey(no)):           state.All,
		string(escrow.VaultKey(vault)):      state.All,
	}
}

func (cm *CreateMarket) Execute(
	ctx context.Context,
	_ chain.Rules,
	mu state.Mutable,
	timestamp int64,
	actor codec.Address,
	actionID ids.ID,
) ([]byte, error) {
	marketID := cm.marketID(actionID)
	params := market.DeriveParams(actor, cm.Description, cm.ResolutionTimestamp, marketID)
	if _, err := markets.CreateMarket(ctx, mu, now(timestamp), params); err != nil {
		return nil, err
	}
	result := &CreateMarketResult{
		MarketID: marketID,
		YesMint:  params.YesMint,
		NoMint:   params.NoMint,
		Vault:    params.Vault,
	}
	return result.Bytes(), nil
}

func (*CreateMarket) ComputeUnits(chain.Rules) uint64 {
	return CreateMarketComputeUnits
}

func (*CreateMarket) ValidRange(chain.Rules) (int64, int64) {
	return -1, -1
}
