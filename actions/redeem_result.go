package actions

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/storage"
)

var _ codec.Typed = (*RedeemResult)(nil)

// RedeemResult reports the tokens burned and the collateral paid out. Payout
// is zero for the losing side.
type RedeemResult struct {
	MarketID ids.ID          `serialize:"true" json:"marketId"`
	Side     storage.Outcome `serialize:"true" json:"side"`
	Burned   uint64          `serialize:"true" json:"burned"`
	Payout   uint64          `serialize:"true" json:"payout"`
}

func (*RedeemResult) GetTypeID() uint8 {
	return consts.RedeemID
}

func (r *RedeemResult) Bytes() []byte {
	return marshalTyped(consts.RedeemID, r, MaxResultSize)
}

func UnmarshalRedeemResult(b []byte) (codec.Typed, error) {
	r := &RedeemResult{}
	if err := unmarshalTyped(consts.RedeemID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Redeem result: %w", err)
	}
	return r, nil
}
