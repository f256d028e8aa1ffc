package actions

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/storage"
)

var _ chain.Action = (*Redeem)(nil)

// Redeem burns Amount position tokens of Side from the actor and pays their
// settlement value from the market vault.
type Redeem struct {
	MarketID ids.ID          `serialize:"true" json:"marketId"`
	Side     storage.Outcome `serialize:"true" json:"side"`
	Amount   uint64          `serialize:"true" json:"amount"`
}

func (*Redeem) GetTypeID() uint8 {
	return consts.RedeemID
}

func (r *Redeem) Bytes() []byte {
	return marshalTyped(consts.RedeemID, r, consts.MaxActionSize)
}

func UnmarshalRedeem(b []byte) (chain.Action, error) {
	r := &Redeem{}
	if err := unmarshalTyped(consts.RedeemID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Redeem action: %w", err)
	}
	return r, nil
}

func (r *Redeem) StateKeys(actor codec.Address, _ ids.ID) state.Keys {
	return positionKeys(r.MarketID, actor)
}

func (r *Redeem) Execute(
	ctx context.Context,
	_ chain.Rules,
	mu state.Mutable,
	_ int64,
	actor codec.Address,
	_ ids.ID,
) ([]byte, error) {
	red, err := markets.Redeem(ctx, mu, r.MarketID, actor, r.Side, r.Amount)
	if err != nil {
		return nil, err
	}
	result := &RedeemResult{
		MarketID: r.MarketID,
		Side:     r.Side,
		Burned:   red.Burned,
		Payout:   red.Payout,
	}
	return result.Bytes(), nil
}

func (*Redeem) ComputeUnits(chain.Rules) uint64 {
	return RedeemComputeUnits
}

func (*Redeem) ValidRange(chain.Rules) (int64, int64) {
	return -1, -1
}
