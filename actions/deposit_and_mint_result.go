package actions

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"

	"github.com/chokosabe/settlementvm/consts"
)

var _ codec.Typed = (*DepositAndMintResult)(nil)

// DepositAndMintResult reports the amount minted on each side and the
// market's locked collateral after the deposit.
type DepositAndMintResult struct {
	MarketID              ids.ID `serialize:"true" json:"marketId"`
	Minted                uint64 `serialize:"true" json:"minted"`
	TotalCollateralLocked uint64 `serialize:"true" json:"totalCollateralLocked"`
}

func (*DepositAndMintResult) GetTypeID() uint8 {
	return consts.DepositAndMintID
}

func (r *DepositAndMintResult) Bytes() []byte {
	return marshalTyped(consts.DepositAndMintID, r, MaxResultSize)
}

func UnmarshalDepositAndMintResult(b []byte) (codec.Typed, error) {
	r := &DepositAndMintResult{}
	if err := unmarshalTyped(consts.DepositAndMintID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DepositAndMint result: %w", err)
	}
	return r, nil
}
