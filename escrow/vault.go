package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/chokosabe/settlementvm/storage"
)

var (
	ErrInsufficientFundsInEscrow = errors.New("insufficient funds in escrow")
	ErrAmountCannotBeZero        = errors.New("amount cannot be zero")
	ErrVaultNotFound             = errors.New("vault not found")
	ErrVaultExists               = errors.New("vault already initialized")
	ErrVaultOverflow             = errors.New("vault balance overflow")
)

// market ID + balance
const vaultRecordSize = ids.IDLen + 8

// VaultRecord is the collateral escrow of one market.
type VaultRecord struct {
	Market  ids.ID `json:"market"`
	Balance uint64 `json:"balance"`
}

func (v *VaultRecord) MarshalCodec(p *codec.Packer) error {
	p.PackID(v.Market)
	p.PackUint64(v.Balance)
	return p.Err()
}

func (v *VaultRecord) UnmarshalCodec(p *codec.Packer) error {
	p.UnpackID(true, &v.Market)
	v.Balance = p.UnpackUint64(false)
	return p.Err()
}

// VaultKey generates the state key for a vault record.
func VaultKey(vaultID ids.ID) []byte {
	return storage.Key(storage.VaultPrefix, storage.VaultChunks, vaultID[:])
}

// GetVault loads a vault record. It returns ErrVaultNotFound when absent.
func GetVault(ctx context.Context, im state.Immutable, vaultID ids.ID) (*VaultRecord, error) {
	v, err := im.GetValue(ctx, VaultKey(vaultID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, vaultID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault %s: %w", vaultID, err)
	}
	rec := &VaultRecord{}
	if err := rec.UnmarshalCodec(codec.NewReader(v, vaultRecordSize)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vault %s: %w", vaultID, err)
	}
	return rec, nil
}

// Vault records stay in state at zero balance so the market binding survives
// full redemption.
func setVault(ctx context.Context, mu state.Mutable, vaultID ids.ID, rec *VaultRecord) error {
	p := codec.NewWriter(vaultRecordSize, vaultRecordSize)
	if err := rec.MarshalCodec(p); err != nil {
		return fmt.Errorf("failed to marshal vault %s: %w", vaultID, err)
	}
	return mu.Insert(ctx, VaultKey(vaultID), p.Bytes())
}

// Vault moves native collateral between account balances and per-market
// escrow records.
type Vault struct{}

func NewVault() *Vault {
	return &Vault{}
}

// Init binds a fresh, empty vault to marketID.
func (*Vault) Init(ctx context.Context, mu state.Mutable, vaultID ids.ID, marketID ids.ID) error {
	if _, err := mu.GetValue(ctx, VaultKey(vaultID)); err == nil {
		return fmt.Errorf("%w: %s", ErrVaultExists, vaultID)
	} else if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to check vault %s: %w", vaultID, err)
	}
	return setVault(ctx, mu, vaultID, &VaultRecord{Market: marketID})
}

// Exists reports whether vaultID has been initialized.
func (*Vault) Exists(ctx context.Context, im state.Immutable, vaultID ids.ID) (bool, error) {
	_, err := im.GetValue(ctx, VaultKey(vaultID))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Deposit debits from's native balance and credits the vault. A short
// balance surfaces storage.ErrInsufficientBalance.
func (*Vault) Deposit(ctx context.Context, mu state.Mutable, vaultID ids.ID, from codec.Address, amount uint64) error {
	if amount == 0 {
		return ErrAmountCannotBeZero
	}
	rec, err := GetVault(ctx, mu, vaultID)
	if err != nil {
		return err
	}
	nbal, err := smath.Add(rec.Balance, amount)
	if err != nil {
		return fmt.Errorf("%w: vault %s holds %d, depositing %d", ErrVaultOverflow, vaultID, rec.Balance, amount)
	}
	if _, err := storage.DeductBalance(ctx, mu, from, amount); err != nil {
		return fmt.Errorf("failed to lock collateral from %s into vault %s: %w", from, vaultID, err)
	}
	rec.Balance = nbal
	return setVault(ctx, mu, vaultID, rec)
}

// Withdraw debits the vault and credits to's native balance.
func (*Vault) Withdraw(ctx context.Context, mu state.Mutable, vaultID ids.ID, to codec.Address, amount uint64) error {
	if amount == 0 {
		return ErrAmountCannotBeZero
	}
	rec, err := GetVault(ctx, mu, vaultID)
	if err != nil {
		return err
	}
	if rec.Balance < amount {
		return fmt.Errorf("%w: vault %s has %d, needs to unlock %d", ErrInsufficientFundsInEscrow, vaultID, rec.Balance, amount)
	}
	rec.Balance -= amount
	if err := setVault(ctx, mu, vaultID, rec); err != nil {
		return err
	}
	if _, err := storage.AddBalance(ctx, mu, to, amount); err != nil {
		return fmt.Errorf("failed to unlock collateral from vault %s to %s: %w", vaultID, to, err)
	}
	return nil
}

// Balance returns the collateral held by vaultID.
func (*Vault) Balance(ctx context.Context, im state.Immutable, vaultID ids.ID) (uint64, error) {
	rec, err := GetVault(ctx, im, vaultID)
	if err != nil {
		return 0, err
	}
	return rec.Balance, nil
}
