// Package market implements the lifecycle of a binary prediction market:
// creation, collateralized minting of YES/NO positions, one-time resolution by
// the market authority, and redemption of positions for collateral.
//
// Every operation runs against a buffered view of the caller's state and is
// committed only when it succeeds and collateral is still conserved, so a
// failed operation leaves no partial writes behind.
package market

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"
	"github.com/ava-labs/hypersdk/state/tstate"
	"go.uber.org/zap"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/chokosabe/settlementvm/asset"
	"github.com/chokosabe/settlementvm/consts"
	"github.com/chokosabe/settlementvm/escrow"
	"github.com/chokosabe/settlementvm/settlement"
	"github.com/chokosabe/settlementvm/storage"
)

// PositionLedger mints and burns the YES/NO tokens of a market. Mint and burn
// are gated on the authority the mint was initialized with.
type PositionLedger interface {
	InitMint(ctx context.Context, mu state.Mutable, mintID ids.ID, authority ids.ID, side storage.Outcome) error
	Exists(ctx context.Context, im state.Immutable, mintID ids.ID) (bool, error)
	Mint(ctx context.Context, mu state.Mutable, authority ids.ID, mintID ids.ID, to codec.Address, amount uint64) error
	Burn(ctx context.Context, mu state.Mutable, authority ids.ID, mintID ids.ID, from codec.Address, amount uint64) error
	BalanceOf(ctx context.Context, im state.Immutable, mintID ids.ID, holder codec.Address) (uint64, error)
	TotalSupply(ctx context.Context, im state.Immutable, mintID ids.ID) (uint64, error)
}

// CollateralVault escrows the collateral backing a market's positions.
type CollateralVault interface {
	Init(ctx context.Context, mu state.Mutable, vaultID ids.ID, marketID ids.ID) error
	Exists(ctx context.Context, im state.Immutable, vaultID ids.ID) (bool, error)
	Deposit(ctx context.Context, mu state.Mutable, vaultID ids.ID, from codec.Address, amount uint64) error
	Withdraw(ctx context.Context, mu state.Mutable, vaultID ids.ID, to codec.Address, amount uint64) error
	Balance(ctx context.Context, im state.Immutable, vaultID ids.ID) (uint64, error)
}

// market record, vault, two mints, two positions and a balance
const changedKeysEstimate = 7

type Config struct {
	MaxDescriptionLength int `json:"maxDescriptionLength" mapstructure:"max_description_length"`
}

func DefaultConfig() Config {
	return Config{MaxDescriptionLength: consts.MaxDescriptionLength}
}

// CreateParams carries the identities and terms of a new market.
type CreateParams struct {
	Authority           codec.Address
	Description         string
	ResolutionTimestamp int64
	MarketID            ids.ID
	YesMint             ids.ID
	NoMint              ids.ID
	Vault               ids.ID
}

// Redemption reports the tokens burned and collateral paid by Redeem.
type Redemption struct {
	MarketID ids.ID
	Holder   codec.Address
	Side     storage.Outcome
	Burned   uint64
	Payout   uint64
}

// Controller is the only writer of market records and the only caller of
// mint/burn and vault transfers for the markets it creates.
type Controller struct {
	ledger PositionLedger
	vault  CollateralVault
	log    logging.Logger
	config Config
}

func New(ledger PositionLedger, vault CollateralVault, log logging.Logger, config Config) *Controller {
	if log == nil {
		log = logging.NoLog{}
	}
	if config.MaxDescriptionLength <= 0 {
		config.MaxDescriptionLength = consts.MaxDescriptionLength
	}
	if config.MaxDescriptionLength > storage.MaxDescriptionCapacity {
		log.Warn("clamping max description length",
			zap.Int("requested", config.MaxDescriptionLength),
			zap.Int("capacity", storage.MaxDescriptionCapacity),
		)
		config.MaxDescriptionLength = storage.MaxDescriptionCapacity
	}
	return &Controller{
		ledger: ledger,
		vault:  vault,
		log:    log,
		config: config,
	}
}

// NewDefault wires the state-backed ledger and vault without logging.
func NewDefault() *Controller {
	return New(asset.NewLedger(), escrow.NewVault(), logging.NoLog{}, DefaultConfig())
}

// apply runs fn on a tstate view over mu and writes the view back only when
// fn succeeds and the market's collateral is conserved.
func (c *Controller) apply(ctx context.Context, mu state.Mutable, op string, marketID ids.ID, fn func(state.Mutable) error) error {
	ts := tstate.New(changedKeysEstimate)
	view := ts.NewView(state.CompletePermissions, mu, changedKeysEstimate)
	if err := fn(view); err != nil {
		c.log.Debug("operation rejected",
			zap.String("op", op),
			zap.Stringer("marketID", marketID),
			zap.String("code", ErrorCode(err)),
			zap.Error(err),
		)
		return err
	}
	if err := c.CheckConservation(ctx, view, marketID); err != nil {
		c.log.Error("operation aborted",
			zap.String("op", op),
			zap.Stringer("marketID", marketID),
			zap.Error(err),
		)
		return err
	}
	view.Commit()

	changed := ts.ChangedKeys()
	for _, k := range slices.Sorted(maps.Keys(changed)) {
		v := changed[k]
		var err error
		if v.IsNothing() {
			err = mu.Remove(ctx, []byte(k))
		} else {
			err = mu.Insert(ctx, []byte(k), v.Value())
		}
		if err != nil {
			return fmt.Errorf("failed to write %s changes: %w", op, err)
		}
	}
	return nil
}

// CreateMarket binds two fresh mints and a fresh vault to a new market record.
func (c *Controller) CreateMarket(ctx context.Context, mu state.Mutable, now int64, p CreateParams) (*storage.Market, error) {
	var market *storage.Market
	err := c.apply(ctx, mu, "create_market", p.MarketID, func(view state.Mutable) error {
		if err := c.validateCreate(ctx, view, now, p); err != nil {
			return err
		}
		if err := c.ledger.InitMint(ctx, view, p.YesMint, p.MarketID, storage.OutcomeYes); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMint, err)
		}
		if err := c.ledger.InitMint(ctx, view, p.NoMint, p.MarketID, storage.OutcomeNo); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMint, err)
		}
		if err := c.vault.Init(ctx, view, p.Vault, p.MarketID); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidVault, err)
		}
		market = &storage.Market{
			Authority:           p.Authority,
			Description:         p.Description,
			ResolutionTimestamp: p.ResolutionTimestamp,
			IsResolved:          false,
			Outcome:             storage.OutcomeUndefined,
			YesMint:             p.YesMint,
			NoMint:              p.NoMint,
			Vault:               p.Vault,
			CreatedAt:           now,
		}
		return storage.SetMarket(ctx, view, p.MarketID, market)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("market created",
		zap.Stringer("marketID", p.MarketID),
		zap.Stringer("authority", p.Authority),
		zap.String("description", p.Description),
		zap.Int64("resolutionTimestamp", p.ResolutionTimestamp),
	)
	return market, nil
}

func (c *Controller) validateCreate(ctx context.Context, im state.Immutable, now int64, p CreateParams) error {
	switch {
	case len(p.Description) == 0:
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidDescription)
	case len(p.Description) > c.config.MaxDescriptionLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidDescription, len(p.Description), c.config.MaxDescriptionLength)
	case !utf8.ValidString(p.Description):
		return fmt.Errorf("%w: description is not valid UTF-8", ErrInvalidDescription)
	}
	if p.ResolutionTimestamp <= now {
		return fmt.Errorf("%w: %d is not after %d", ErrInvalidTimestamp, p.ResolutionTimestamp, now)
	}
	if p.MarketID == ids.Empty {
		return ErrInvalidMarketID
	}
	if p.YesMint == ids.Empty || p.NoMint == ids.Empty || p.YesMint == p.NoMint {
		return fmt.Errorf("%w: yes=%s no=%s", ErrInvalidMint, p.YesMint, p.NoMint)
	}
	if p.Vault == ids.Empty {
		return fmt.Errorf("%w: empty vault id", ErrInvalidVault)
	}

	exists, err := storage.MarketExists(ctx, im, p.MarketID)
	if err != nil {
		return fmt.Errorf("failed to check market %s: %w", p.MarketID, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMarket, p.MarketID)
	}
	for _, mint := range []ids.ID{p.YesMint, p.NoMint} {
		used, err := c.ledger.Exists(ctx, im, mint)
		if err != nil {
			return fmt.Errorf("failed to check mint %s: %w", mint, err)
		}
		if used {
			return fmt.Errorf("%w: mint %s is already initialized", ErrInvalidMint, mint)
		}
	}
	used, err := c.vault.Exists(ctx, im, p.Vault)
	if err != nil {
		return fmt.Errorf("failed to check vault %s: %w", p.Vault, err)
	}
	if used {
		return fmt.Errorf("%w: vault %s is already initialized", ErrInvalidVault, p.Vault)
	}
	return nil
}

// DepositAndMint escrows amount collateral from depositor and mints amount
// YES and amount NO to them.
func (c *Controller) DepositAndMint(ctx context.Context, mu state.Mutable, marketID ids.ID, depositor codec.Address, amount uint64) (*storage.Market, error) {
	var market *storage.Market
	err := c.apply(ctx, mu, "deposit_and_mint", marketID, func(view state.Mutable) error {
		if amount == 0 {
			return fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount)
		}
		m, err := c.load(ctx, view, marketID)
		if err != nil {
			return err
		}
		if m.IsResolved {
			return fmt.Errorf("%w: market %s resolved to %s", ErrMarketResolved, marketID, m.Outcome)
		}
		locked, err := smath.Add(m.TotalCollateralLocked, amount)
		if err != nil {
			return fmt.Errorf("%w: locked collateral %d + %d overflows", ErrInvalidAmount, m.TotalCollateralLocked, amount)
		}
		if err := c.vault.Deposit(ctx, view, m.Vault, depositor, amount); err != nil {
			if errors.Is(err, storage.ErrInsufficientBalance) {
				return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
			}
			return err
		}
		for _, mint := range []ids.ID{m.YesMint, m.NoMint} {
			if err := c.ledger.Mint(ctx, view, marketID, mint, depositor, amount); err != nil {
				if errors.Is(err, asset.ErrOverflow) {
					return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
				}
				return err
			}
		}
		m.TotalCollateralLocked = locked
		market = m
		return storage.SetMarket(ctx, view, marketID, m)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("positions minted",
		zap.Stringer("marketID", marketID),
		zap.Stringer("depositor", depositor),
		zap.Uint64("amount", amount),
		zap.Uint64("totalCollateralLocked", market.TotalCollateralLocked),
	)
	return market, nil
}

// Resolve records outcome as the result of the market. It succeeds once.
func (c *Controller) Resolve(ctx context.Context, mu state.Mutable, now int64, marketID ids.ID, caller codec.Address, outcome storage.Outcome) (*storage.Market, error) {
	var market *storage.Market
	err := c.apply(ctx, mu, "resolve", marketID, func(view state.Mutable) error {
		if !outcome.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidOutcome, outcome)
		}
		m, err := c.load(ctx, view, marketID)
		if err != nil {
			return err
		}
		if caller != m.Authority {
			return fmt.Errorf("%w: %s is not %s", ErrUnauthorized, caller, m.Authority)
		}
		if m.IsResolved {
			return fmt.Errorf("%w: market %s resolved to %s at %d", ErrAlreadyResolved, marketID, m.Outcome, m.ResolvedAt)
		}
		if now < m.ResolutionTimestamp {
			return fmt.Errorf("%w: now %d, resolution timestamp %d", ErrTooEarly, now, m.ResolutionTimestamp)
		}
		m.IsResolved = true
		m.Outcome = outcome
		m.ResolvedAt = now
		market = m
		return storage.SetMarket(ctx, view, marketID, m)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("market resolved",
		zap.Stringer("marketID", marketID),
		zap.Stringer("outcome", outcome),
		zap.Int64("resolvedAt", now),
	)
	return market, nil
}

// Redeem burns amount tokens of side from holder and pays the settlement
// value out of the vault.
func (c *Controller) Redeem(ctx context.Context, mu state.Mutable, marketID ids.ID, holder codec.Address, side storage.Outcome, amount uint64) (*Redemption, error) {
	var r *Redemption
	err := c.apply(ctx, mu, "redeem", marketID, func(view state.Mutable) error {
		if amount == 0 {
			return fmt.Errorf("%w: redemption must be positive", ErrInvalidAmount)
		}
		if !side.Valid() {
			return fmt.Errorf("%w: side %d", ErrInvalidOutcome, side)
		}
		m, err := c.load(ctx, view, marketID)
		if err != nil {
			return err
		}
		if !m.IsResolved {
			return fmt.Errorf("%w: market %s", ErrMarketNotResolved, marketID)
		}
		mint, _ := m.MintFor(side)
		bal, err := c.ledger.BalanceOf(ctx, view, mint, holder)
		if err != nil {
			return fmt.Errorf("failed to get %s balance of %s: %w", side, holder, err)
		}
		if bal < amount {
			return fmt.Errorf("%w: %s holds %d %s, redeeming %d", ErrInsufficientBalance, holder, bal, side, amount)
		}
		if err := c.ledger.Burn(ctx, view, marketID, mint, holder, amount); err != nil {
			if errors.Is(err, asset.ErrInsufficientBalance) {
				return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
			}
			return err
		}

		payout := settlement.Payout(side, m.Outcome, amount)
		if payout > 0 {
			locked, err := smath.Sub(m.TotalCollateralLocked, payout)
			if err != nil {
				return fmt.Errorf("%w: payout %d exceeds locked %d", ErrInvariantViolation, payout, m.TotalCollateralLocked)
			}
			if err := c.vault.Withdraw(ctx, view, m.Vault, holder, payout); err != nil {
				if errors.Is(err, escrow.ErrInsufficientFundsInEscrow) {
					return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
				}
				return err
			}
			m.TotalCollateralLocked = locked
			if err := storage.SetMarket(ctx, view, marketID, m); err != nil {
				return err
			}
		}
		r = &Redemption{
			MarketID: marketID,
			Holder:   holder,
			Side:     side,
			Burned:   amount,
			Payout:   payout,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("positions redeemed",
		zap.Stringer("marketID", marketID),
		zap.Stringer("holder", holder),
		zap.Stringer("side", side),
		zap.Uint64("burned", r.Burned),
		zap.Uint64("payout", r.Payout),
	)
	return r, nil
}

// Market returns the stored record of marketID.
func (c *Controller) Market(ctx context.Context, im state.Immutable, marketID ids.ID) (*storage.Market, error) {
	return c.load(ctx, im, marketID)
}

// Status reports the lifecycle state of marketID. A market that was never
// created is MarketStatusUninitialized.
func (c *Controller) Status(ctx context.Context, im state.Immutable, marketID ids.ID) (storage.MarketStatus, error) {
	m, err := c.load(ctx, im, marketID)
	if errors.Is(err, ErrMarketNotFound) {
		return storage.MarketStatusUninitialized, nil
	}
	if err != nil {
		return storage.MarketStatusUninitialized, err
	}
	return m.Status(), nil
}

// Position returns holder's YES and NO balances in marketID.
func (c *Controller) Position(ctx context.Context, im state.Immutable, marketID ids.ID, holder codec.Address) (yes uint64, no uint64, err error) {
	m, err := c.load(ctx, im, marketID)
	if err != nil {
		return 0, 0, err
	}
	if yes, err = c.ledger.BalanceOf(ctx, im, m.YesMint, holder); err != nil {
		return 0, 0, err
	}
	if no, err = c.ledger.BalanceOf(ctx, im, m.NoMint, holder); err != nil {
		return 0, 0, err
	}
	return yes, no, nil
}

// CheckConservation verifies that the vault holds exactly the locked
// collateral and that outstanding tokens are fully backed: equal YES and NO
// supply while open, winning supply equal to the vault once resolved.
func (c *Controller) CheckConservation(ctx context.Context, im state.Immutable, marketID ids.ID) error {
	m, err := c.load(ctx, im, marketID)
	if err != nil {
		return err
	}
	vaultBalance, err := c.vault.Balance(ctx, im, m.Vault)
	if err != nil {
		return err
	}
	if vaultBalance != m.TotalCollateralLocked {
		return fmt.Errorf("%w: market %s vault holds %d, locked %d", ErrInvariantViolation, marketID, vaultBalance, m.TotalCollateralLocked)
	}
	yes, err := c.ledger.TotalSupply(ctx, im, m.YesMint)
	if err != nil {
		return err
	}
	no, err := c.ledger.TotalSupply(ctx, im, m.NoMint)
	if err != nil {
		return err
	}
	if !m.IsResolved {
		if yes != vaultBalance || no != vaultBalance {
			return fmt.Errorf("%w: market %s supplies yes=%d no=%d, vault %d", ErrInvariantViolation, marketID, yes, no, vaultBalance)
		}
		return nil
	}
	winning := yes
	if m.Outcome == storage.OutcomeNo {
		winning = no
	}
	if winning != vaultBalance {
		return fmt.Errorf("%w: market %s winning %s supply %d, vault %d", ErrInvariantViolation, marketID, m.Outcome, winning, vaultBalance)
	}
	return nil
}

func (*Controller) load(ctx context.Context, im state.Immutable, marketID ids.ID) (*storage.Market, error) {
	m, err := storage.GetMarket(ctx, im, marketID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", marketID, err)
	}
	return m, nil
}
