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

var _ chain.Action = (*DepositAndMint)(nil)

// DepositAndMint locks Amount of the actor's collateral in the market vault
// and mints Amount YES and Amount NO to the actor.
type DepositAndMint struct {
	MarketID ids.ID `serialize:"true" json:"marketId"`
	Amount   uint64 `serialize:"true" json:"amount"`
}

func (*DepositAndMint) GetTypeID() uint8 {
	return consts.DepositAndMintID
}

func (d *DepositAndMint) Bytes() []byte {
	return marshalTyped(consts.DepositAndMintID, d, consts.MaxActionSize)
}

func UnmarshalDepositAndMint(b []byte) (chain.Action, error) {
	d := &DepositAndMint{}
	if err := unmarshalTyped(consts.DepositAndMintID, b, d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DepositAndMint action: %w", err)
	}
	return d, nil
}

func (d *DepositAndMint) StateKeys(actor codec.Address, _ ids.ID) state.Keys {
	return positionKeys(d.MarketID, actor)
}

// positionKeys lists every key a deposit or redemption by holder can touch.
func positionKeys(marketID ids.ID, holder codec.Address) state.Keys {
	yes, no, vault := market.DeriveAccounts(marketID)
	return state.Keys{
		string(storage.MarketKey(marketID)):   state.All,
		string(storage.BalanceKey(holder)):    state.All,
		string(escrow.VaultKey(vault)):        state.All,
		string(asset.MintKey(yes)):            state.All,
		string(asset.MintKey(no)):             state.All,
		string(asset.BalanceKey(yes, holder)): state.All,
		string(asset.BalanceKey(no, holder)):  state.All,
	}
}

func (d *DepositAndMint) Execute(
	ctx context.Context,
	_ chain.Rules,
	mu state.Mutable,
	_ int64,
	actor codec.Address,
	_ ids.ID,
) ([]byte, error) {
	m, err := markets.DepositAndMint(ctx, mu, d.MarketID, actor, d.Amount)
	if err != nil {
		return nil, err
	}
	result := &DepositAndMintResult{
		MarketID:              d.MarketID,
		Minted:                d.Amount,
		TotalCollateralLocked: m.TotalCollateralLocked,
	}
	return result.Bytes(), nil
}

func (*DepositAndMint) ComputeUnits(chain.Rules) uint64 {
	return DepositAndMintComputeUnits
}

func (*DepositAndMint) ValidRange(chain.Rules) (int64, int64) {
	return -1, -1
}
