package actions

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"

	"github.com/chokosabe/settlementvm/consts"
)

var _ codec.Typed = (*CreateMarketResult)(nil)

// CreateMarketResult reports the identities bound to a new market.
type CreateMarketResult struct {
	MarketID ids.ID `serialize:"true" json:"marketId"`
	YesMint  ids.ID `serialize:"true" json:"yesMint"`
	NoMint   ids.ID `serialize:"true" json:"noMint"`
	Vault    ids.ID `serialize:"true" json:"vault"`
}

func (*CreateMarketResult) GetTypeID() uint8 {
	return consts.CreateMarketID
}

func (r *CreateMarketResult) Bytes() []byte {
	return marshalTyped(consts.CreateMarketID, r, MaxResultSize)
}

func UnmarshalCreateMarketResult(b []byte) (codec.Typed, error) {
	r := &CreateMarketResult{}
	if err := unmarshalTyped(consts.CreateMarketID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CreateMarket result: %w", err)
	}
	return r, nil
}
