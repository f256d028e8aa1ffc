package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/storage"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorizedMinter  = errors.New("caller is not the mint authority")
	ErrMintNotFound        = errors.New("mint not found")
	ErrMintExists          = errors.New("mint already initialized")
	ErrAmountCannotBeZero  = errors.New("amount cannot be zero")
	ErrOverflow            = errors.New("supply overflow")
)

// ID + side + decimals + supply
const mintRecordSize = ids.IDLen + 1 + 1 + 8

// MintRecord describes one position-token mint. The authority is the market
// the mint is bound to; only that market may mint or burn.
type MintRecord struct {
	Authority ids.ID          `json:"authority"`
	Side      storage.Outcome `json:"side"`
	Decimals  uint8           `json:"decimals"`
	Supply    uint64          `json:"supply"`
}

// MarshalCodec serializes a MintRecord into a Packer.
func (m *MintRecord) MarshalCodec(p *codec.Packer) error {
	p.PackID(m.Authority)
	p.PackByte(uint8(m.Side))
	p.PackByte(m.Decimals)
	p.PackUint64(m.Supply)
	return p.Err()
}

// UnmarshalCodec deserializes a MintRecord from a Packer.
func (m *MintRecord) UnmarshalCodec(p *codec.Packer) error {
	p.UnpackID(true, &m.Authority)
	m.Side = storage.Outcome(p.UnpackByte())
	m.Decimals = p.UnpackByte()
	m.Supply = p.UnpackUint64(false)
	return p.Err()
}

// MintKey returns the state key for a mint record.
func MintKey(mintID ids.ID) []byte {
	return storage.Key(storage.MintPrefix, storage.MintChunks, mintID[:])
}

// BalanceKey returns the state key for a holder's balance of a mint.
func BalanceKey(mintID ids.ID, holder codec.Address) []byte {
	return storage.Key(storage.PositionPrefix, storage.PositionChunks, mintID[:], holder[:])
}

// GetMint loads a mint record. It returns ErrMintNotFound when absent.
func GetMint(ctx context.Context, im state.Immutable, mintID ids.ID) (*MintRecord, error) {
	v, err := im.GetValue(ctx, MintKey(mintID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMintNotFound, mintID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mint %s: %w", mintID, err)
	}
	rec := &MintRecord{}
	if err := rec.UnmarshalCodec(codec.NewReader(v, mintRecordSize)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mint %s: %w", mintID, err)
	}
	return rec, nil
}

func setMint(ctx context.Context, mu state.Mutable, mintID ids.ID, rec *MintRecord) error {
	p := codec.NewWriter(mintRecordSize, mintRecordSize)
	if err := rec.MarshalCodec(p); err != nil {
		return fmt.Errorf("failed to marshal mint %s: %w", mintID, err)
	}
	return mu.Insert(ctx, MintKey(mintID), p.Bytes())
}

// Ledger is the position-token ledger backed by hypersdk state.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// InitMint creates a mint with zero supply owned by authority.
func (*Ledger) InitMint(ctx context.Context, mu state.Mutable, mintID ids.ID, authority ids.ID, side storage.Outcome) error {
	if _, err := mu.GetValue(ctx, MintKey(mintID)); err == nil {
		return fmt.Errorf("%w: %s", ErrMintExists, mintID)
	} else if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to check mint %s: %w", mintID, err)
	}
	return setMint(ctx, mu, mintID, &MintRecord{
		Authority: authority,
		Side:      side,
		Decimals:  consts.Decimals,
	})
}

// Exists reports whether mintID has been initialized.
func (*Ledger) Exists(ctx context.Context, im state.Immutable, mintID ids.ID) (bool, error) {
	_, err := im.GetValue(ctx, MintKey(mintID))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func authorizedMint(ctx context.Context, im state.Immutable, authority ids.ID, mintID ids.ID) (*MintRecord, error) {
	rec, err := GetMint(ctx, im, mintID)
	if err != nil {
		return nil, err
	}
	if rec.Authority != authority {
		return nil, fmt.Errorf("%w: mint %s is bound to %s, not %s", ErrUnauthorizedMinter, mintID, rec.Authority, authority)
	}
	return rec, nil
}

// Mint credits amount tokens to holder and raises the supply.
func (*Ledger) Mint(ctx context.Context, mu state.Mutable, authority ids.ID, mintID ids.ID, to codec.Address, amount uint64) error {
	if amount == 0 {
		return ErrAmountCannotBeZero
	}
	rec, err := authorizedMint(ctx, mu, authority, mintID)
	if err != nil {
		return err
	}
	supply, err := smath.Add(rec.Supply, amount)
	if err != nil {
		return fmt.Errorf("%w: mint %s supply %d + %d", ErrOverflow, mintID, rec.Supply, amount)
	}
	key := BalanceKey(mintID, to)
	bal, err := storage.GetUint64(ctx, mu, key)
	if err != nil {
		return fmt.Errorf("failed to get balance of %s for mint %s: %w", to, mintID, err)
	}
	nbal, err := smath.Add(bal, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s for mint %s", ErrOverflow, to, mintID)
	}
	if err := storage.SetUint64(ctx, mu, key, nbal); err != nil {
		return fmt.Errorf("failed to set balance of %s for mint %s: %w", to, mintID, err)
	}
	rec.Supply = supply
	return setMint(ctx, mu, mintID, rec)
}

// Burn debits amount tokens from holder and lowers the supply. A balance that
// reaches zero removes its key.
func (*Ledger) Burn(ctx context.Context, mu state.Mutable, authority ids.ID, mintID ids.ID, from codec.Address, amount uint64) error {
	if amount == 0 {
		return ErrAmountCannotBeZero
	}
	rec, err := authorizedMint(ctx, mu, authority, mintID)
	if err != nil {
		return err
	}
	key := BalanceKey(mintID, from)
	bal, err := storage.GetUint64(ctx, mu, key)
	if err != nil {
		return fmt.Errorf("failed to get balance of %s for mint %s: %w", from, mintID, err)
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d of mint %s, burning %d", ErrInsufficientBalance, from, bal, mintID, amount)
	}
	if rec.Supply < amount {
		// Supply always covers every holder balance.
		return fmt.Errorf("mint %s supply %d below burn %d", mintID, rec.Supply, amount)
	}
	if err := storage.SetUint64(ctx, mu, key, bal-amount); err != nil {
		return fmt.Errorf("failed to set balance of %s for mint %s: %w", from, mintID, err)
	}
	rec.Supply -= amount
	return setMint(ctx, mu, mintID, rec)
}

// BalanceOf returns holder's balance of mintID. Unknown holders hold zero.
func (*Ledger) BalanceOf(ctx context.Context, im state.Immutable, mintID ids.ID, holder codec.Address) (uint64, error) {
	return storage.GetUint64(ctx, im, BalanceKey(mintID, holder))
}

// TotalSupply returns the circulating supply of mintID.
func (*Ledger) TotalSupply(ctx context.Context, im state.Immutable, mintID ids.ID) (uint64, error) {
	rec, err := GetMint(ctx, im, mintID)
	if err != nil {
		return 0, err
	}
	return rec.Supply, nil
}
