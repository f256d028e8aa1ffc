package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/hypersdk/codec"
	"github.com/ava-labs/hypersdk/state"
	"go.uber.org/zap"

	"github.com/chokosabe/settlementvm/storage"
)

// Runtime executes operations against a database outside of a chain. Each
// operation reads through its own txn and commits only if nothing it read
// changed in the meantime; otherwise it fails with ErrConflict and leaves the
// database untouched. Callers decide whether to retry.
type Runtime struct {
	db    database.Database
	ctrl  *Controller
	clock *mockable.Clock
	log   logging.Logger

	commitLock sync.Mutex
}

func NewRuntime(db database.Database, ctrl *Controller, clock *mockable.Clock, log logging.Logger) *Runtime {
	if ctrl == nil {
		ctrl = NewDefault()
	}
	if clock == nil {
		clock = &mockable.Clock{}
	}
	if log == nil {
		log = logging.NoLog{}
	}
	return &Runtime{
		db:    db,
		ctrl:  ctrl,
		clock: clock,
		log:   log,
	}
}

// Now returns the runtime clock in unix seconds.
func (r *Runtime) Now() int64 {
	return r.clock.Time().Unix()
}

func (r *Runtime) Controller() *Controller {
	return r.ctrl
}

// Update runs fn against a fresh txn and commits its writes atomically. Reads
// are not taken from a single snapshot, so when fn fails and any key it read
// has since changed, the failure is reported as ErrConflict: fn may have seen
// a mix of old and new values.
func (r *Runtime) Update(_ context.Context, fn func(state.Mutable) error) error {
	t := newTxn(r.db)
	fnErr := fn(t)

	r.commitLock.Lock()
	defer r.commitLock.Unlock()

	if err := t.validate(r.db); err != nil {
		r.log.Debug("commit rejected",
			zap.Int("reads", len(t.reads)),
			zap.Int("writes", len(t.writes)),
			zap.NamedError("opErr", fnErr),
			zap.Error(err),
		)
		if fnErr != nil {
			return fmt.Errorf("%w (operation saw %v)", err, fnErr)
		}
		return err
	}
	if fnErr != nil {
		return fnErr
	}
	if err := t.flush(r.db); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// View runs fn against a read-only snapshot of whatever fn reads.
func (r *Runtime) View(_ context.Context, fn func(state.Immutable) error) error {
	return fn(newTxn(r.db))
}

func (r *Runtime) CreateMarket(ctx context.Context, p CreateParams) (*storage.Market, error) {
	now := r.Now()
	var m *storage.Market
	err := r.Update(ctx, func(mu state.Mutable) error {
		var err error
		m, err = r.ctrl.CreateMarket(ctx, mu, now, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Runtime) DepositAndMint(ctx context.Context, marketID ids.ID, depositor codec.Address, amount uint64) (*storage.Market, error) {
	var m *storage.Market
	err := r.Update(ctx, func(mu state.Mutable) error {
		var err error
		m, err = r.ctrl.DepositAndMint(ctx, mu, marketID, depositor, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Runtime) Resolve(ctx context.Context, marketID ids.ID, caller codec.Address, outcome storage.Outcome) (*storage.Market, error) {
	now := r.Now()
	var m *storage.Market
	err := r.Update(ctx, func(mu state.Mutable) error {
		var err error
		m, err = r.ctrl.Resolve(ctx, mu, now, marketID, caller, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Runtime) Redeem(ctx context.Context, marketID ids.ID, holder codec.Address, side storage.Outcome, amount uint64) (*Redemption, error) {
	var red *Redemption
	err := r.Update(ctx, func(mu state.Mutable) error {
		var err error
		red, err = r.ctrl.Redeem(ctx, mu, marketID, holder, side, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return red, nil
}

func (r *Runtime) Market(ctx context.Context, marketID ids.ID) (*storage.Market, error) {
	var m *storage.Market
	err := r.View(ctx, func(im state.Immutable) error {
		var err error
		m, err = r.ctrl.Market(ctx, im, marketID)
		return err
	})
	return m, err
}

func (r *Runtime) Status(ctx context.Context, marketID ids.ID) (storage.MarketStatus, error) {
	var status storage.MarketStatus
	err := r.View(ctx, func(im state.Immutable) error {
		var err error
		status, err = r.ctrl.Status(ctx, im, marketID)
		return err
	})
	return status, err
}

func (r *Runtime) Position(ctx context.Context, marketID ids.ID, holder codec.Address) (uint64, uint64, error) {
	var yes, no uint64
	err := r.View(ctx, func(im state.Immutable) error {
		var err error
		yes, no, err = r.ctrl.Position(ctx, im, marketID, holder)
		return err
	})
	return yes, no, err
}

// Balance returns addr's native collateral balance.
func (r *Runtime) Balance(ctx context.Context, addr codec.Address) (uint64, error) {
	var bal uint64
	err := r.View(ctx, func(im state.Immutable) error {
		var err error
		bal, err = storage.GetBalance(ctx, im, addr)
		return err
	})
	return bal, err
}

// Fund credits addr with amount native collateral.
func (r *Runtime) Fund(ctx context.Context, addr codec.Address, amount uint64) error {
	return r.Update(ctx, func(mu state.Mutable) error {
		_, err := storage.AddBalance(ctx, mu, addr, amount)
		return err
	})
}

func (r *Runtime) CheckConservation(ctx context.Context, marketID ids.ID) error {
	return r.View(ctx, func(im state.Immutable) error {
		return r.ctrl.CheckConservation(ctx, im, marketID)
	})
}
