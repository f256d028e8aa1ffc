package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/chokosabe/settlementvm/consts"
)

// State key prefixes. Every key ends with a big-endian uint16 holding the
// maximum number of 64-byte chunks its value may occupy.
const (
	// BalancePrefix | Address -> uint64 (native collateral)
	BalancePrefix byte = 0x0

	// MarketPrefix | MarketID -> Market
	MarketPrefix byte = 0x1

	// MintPrefix | MintID -> MintRecord
	MintPrefix byte = 0x2

	// PositionPrefix | MintID | Address -> uint64
	PositionPrefix byte = 0x3

	// VaultPrefix | VaultID -> VaultRecord
	VaultPrefix byte = 0x4
)

const (
	BalanceChunks  uint16 = 1
	MarketChunks   uint16 = 8
	MintChunks     uint16 = 1
	PositionChunks uint16 = 1
	VaultChunks    uint16 = 1
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Key assembles prefix | parts... | chunks.
func Key(prefix byte, chunks uint16, parts ...[]byte) []byte {
	size := 1 + consts.Uint16Len
	for _, p := range parts {
		size += len(p)
	}
	k := make([]byte, 0, size)
	k = append(k, prefix)
	for _, p := range parts {
		k = append(k, p...)
	}
	return binary.BigEndian.AppendUint16(k, chunks)
}

// BalanceKey returns the state key for an address's native balance.
func BalanceKey(addr codec.Address) []byte {
	return Key(BalancePrefix, BalanceChunks, addr[:])
}

// AddressFromKey extracts an address from a balance state key.
func AddressFromKey(key []byte) (codec.Address, error) {
	if len(key) != 1+codec.AddressLen+consts.Uint16Len {
		return codec.EmptyAddress, errors.New("invalid key length")
	}
	if key[0] != BalancePrefix {
		return codec.EmptyAddress, errors.New("invalid prefix")
	}
	var addr codec.Address
	copy(addr[:], key[1:1+codec.AddressLen])
	return addr, nil
}

// GetUint64 reads a packed uint64, treating a missing key as zero.
func GetUint64(ctx context.Context, im state.Immutable, key []byte) (uint64, error) {
	v, err := im.GetValue(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return database.ParseUInt64(v)
}

// SetUint64 writes a packed uint64. Zero removes the key.
func SetUint64(ctx context.Context, mu state.Mutable, key []byte, v uint64) error {
	if v == 0 {
		if err := mu.Remove(ctx, key); err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		return nil
	}
	return mu.Insert(ctx, key, database.PackUInt64(v))
}

// GetBalance retrieves the native balance for a given address.
func GetBalance(ctx context.Context, im state.Immutable, addr codec.Address) (uint64, error) {
	return GetUint64(ctx, im, BalanceKey(addr))
}

// SetBalance sets the native balance for a given address.
func SetBalance(ctx context.Context, mu state.Mutable, addr codec.Address, amount uint64) error {
	return SetUint64(ctx, mu, BalanceKey(addr), amount)
}

// DeductBalance subtracts an amount from an address's native balance.
// It returns ErrInsufficientBalance if the deduction is not possible.
func DeductBalance(ctx context.Context, mu state.Mutable, addr codec.Address, amount uint64) (uint64, error) {
	bal, err := GetBalance(ctx, mu, addr)
	if err != nil {
		return 0, err
	}
	nbal, err := smath.Sub(bal, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, addr, bal, amount)
	}
	return nbal, SetBalance(ctx, mu, addr, nbal)
}

// AddBalance adds an amount to an address's native balance.
func AddBalance(ctx context.Context, mu state.Mutable, addr codec.Address, amount uint64) (uint64, error) {
	bal, err := GetBalance(ctx, mu, addr)
	if err != nil {
		return 0, err
	}
	nbal, err := smath.Add(bal, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has %d, adding %d", ErrBalanceOverflow, addr, bal, amount)
	}
	return nbal, SetBalance(ctx, mu, addr, nbal)
}
