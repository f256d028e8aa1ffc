package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	"github.com/chokosabe/settlementvm/consts"
)

// MarketStatus is the lifecycle state of a market.
type MarketStatus uint8

const (
	MarketStatusUninitialized MarketStatus = iota
	MarketStatusOpen
	MarketStatusResolved
)

func (ms MarketStatus) String() string {
	switch ms {
	case MarketStatusUninitialized:
		return "Uninitialized"
	case MarketStatusOpen:
		return "Open"
	case MarketStatusResolved:
		return "Resolved"
	default:
		return fmt.Sprintf("UnknownMarketStatus:%d", ms)
	}
}

// Outcome is a side of a binary market. It names both the resolved result of
// a market and the side of a position token.
type Outcome uint8

const (
	OutcomeUndefined Outcome = 0
	OutcomeYes       Outcome = 1
	OutcomeNo        Outcome = 2
)

// Valid reports whether o is YES or NO.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

func (o Outcome) String() string {
	switch o {
	case OutcomeUndefined:
		return "Undefined"
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	default:
		return fmt.Sprintf("UnknownOutcome:%d", o)
	}
}

// ParseOutcome accepts "yes"/"no" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return OutcomeYes, nil
	case "no", "n":
		return OutcomeNo, nil
	default:
		return OutcomeUndefined, fmt.Errorf("unknown outcome %q", s)
	}
}

// Market is the durable record of one prediction question.
// Key: MarketPrefix | marketID
//
// Field order is part of the persisted layout. Append only.
type Market struct {
	Authority             codec.Address `serialize:"true" json:"authority"`
	Description           string        `serialize:"true" json:"description"`
	ResolutionTimestamp   int64         `serialize:"true" json:"resolutionTimestamp"`
	IsResolved            bool          `serialize:"true" json:"isResolved"`
	Outcome               Outcome       `serialize:"true" json:"outcome"`
	YesMint               ids.ID        `serialize:"true" json:"yesMint"`
	NoMint                ids.ID        `serialize:"true" json:"noMint"`
	Vault                 ids.ID        `serialize:"true" json:"vault"`
	TotalCollateralLocked uint64        `serialize:"true" json:"totalCollateralLocked"`
	CreatedAt             int64         `serialize:"true" json:"createdAt"`
	ResolvedAt            int64         `serialize:"true" json:"resolvedAt"`
}

// Status derives the lifecycle state from the resolved flag.
func (m *Market) Status() MarketStatus {
	if m.IsResolved {
		return MarketStatusResolved
	}
	return MarketStatusOpen
}

// MintFor returns the mint bound to the given side.
func (m *Market) MintFor(side Outcome) (ids.ID, bool) {
	switch side {
	case OutcomeYes:
		return m.YesMint, true
	case OutcomeNo:
		return m.NoMint, true
	default:
		return ids.Empty, false
	}
}

// A state value may occupy at most the chunk count encoded in its key.
const valueChunkSize = 64

// marketFixedSize is the encoded size of a Market excluding the description
// bytes: authority, description length, resolution timestamp, resolved flag,
// outcome, three ids, and the locked, created and resolved counters.
const marketFixedSize = codec.AddressLen + consts.Uint16Len + 8 + 1 + 1 + 3*ids.IDLen + 3*8

// MaxDescriptionCapacity is the longest description a market record can hold
// within MarketChunks.
const MaxDescriptionCapacity = int(MarketChunks)*valueChunkSize - 1 - marketFixedSize

// MarketKey generates the state key for a given market ID.
func MarketKey(marketID ids.ID) []byte {
	return Key(MarketPrefix, MarketChunks, marketID[:])
}

// GetMarket retrieves a market by its ID. A missing market is reported with
// database.ErrNotFound in the chain.
func GetMarket(ctx context.Context, im state.Immutable, marketID ids.ID) (*Market, error) {
	v, err := im.GetValue(ctx, MarketKey(marketID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("market %s not found: %w", marketID, err)
		}
		return nil, err
	}
	return UnmarshalMarket(v)
}

// MarketExists reports whether a record is stored under marketID.
func MarketExists(ctx context.Context, im state.Immutable, marketID ids.ID) (bool, error) {
	_, err := im.GetValue(ctx, MarketKey(marketID))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetMarket stores a market under marketID.
func SetMarket(ctx context.Context, mu state.Mutable, marketID ids.ID, market *Market) error {
	b, err := market.Bytes()
	if err != nil {
		return fmt.Errorf("failed to marshal market %s: %w", marketID, err)
	}
	return mu.Insert(ctx, MarketKey(marketID), b)
}

// Bytes encodes the market with the LinearCodec.
func (m *Market) Bytes() ([]byte, error) {
	writer := codec.NewWriter(0, consts.MaxMarketDataSize)
	if err := codec.LinearCodec.MarshalInto(m, writer.Packer); err != nil {
		return nil, err
	}
	if err := writer.Err(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

// UnmarshalMarket decodes a record written by Market.Bytes.
func UnmarshalMarket(b []byte) (*Market, error) {
	if len(b) == 0 {
		return nil, errors.New("empty market record")
	}
	reader := codec.NewReader(b, consts.MaxMarketDataSize)
	market := &Market{}
	if err := codec.LinearCodec.UnmarshalFrom(reader.Packer, market); err != nil {
		return nil, fmt.Errorf("failed to unmarshal market: %w", err)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reader error after unmarshaling market: %w", err)
	}
	return market, nil
}
