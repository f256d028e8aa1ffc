package actions

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/storage"
)

var _ codec.Typed = (*ResolveResult)(nil)

type ResolveResult struct {
	MarketID ids.ID          `serialize:"true" json:"marketId"`
	Outcome  storage.Outcome `serialize:"true" json:"outcome"`
}

func (*ResolveResult) GetTypeID() uint8 {
	return consts.ResolveID
}

func (r *ResolveResult) Bytes() []byte {
	return marshalTyped(consts.ResolveID, r, MaxResultSize)
}

func UnmarshalResolveResult(b []byte) (codec.Typed, error) {
	r := &ResolveResult{}
	if err := unmarshalTyped(consts.ResolveID, b, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Resolve result: %w", err)
	}
	return r, nil
}
