package actions

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/ava-labs/hypersdk/codec"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/market"
)

// MaxResultSize bounds the encoded size of any action result.
const MaxResultSize = 256

var ErrUnmarshalEmpty = errors.New("cannot unmarshal empty bytes")

// markets executes every action against chain state.
var markets = market.NewDefault()

// marshalTyped prefixes the LinearCodec encoding of v with typeID.
func marshalTyped(typeID uint8, v any, limit int) []byte {
	p := &wrappers.Packer{
		Bytes:   make([]byte, 0, limit),
		MaxSize: limit,
	}
	p.PackByte(typeID)
	if err := codec.LinearCodec.MarshalInto(v, p); err != nil {
		panic(fmt.Errorf("failed to marshal type %d: %w", typeID, err))
	}
	return p.Bytes
}

func unmarshalTyped(typeID uint8, b []byte, v any) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: type %d", ErrUnmarshalEmpty, typeID)
	}
	if b[0] != typeID {
		return fmt.Errorf("unexpected type id: %d != %d", b[0], typeID)
	}
	return codec.LinearCodec.UnmarshalFrom(&wrappers.Packer{Bytes: b[1:]}, v)
}

// now converts a block timestamp in milliseconds to unix seconds.
func now(timestamp int64) int64 {
	return timestamp / consts.MillisecondsPerSecond
}
