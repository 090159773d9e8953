package scenario

import (
	"context"
	"fmt"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/journal"
	"github.com/DaggerToothCaster/v3-core/lib/liquidity"
	"github.com/DaggerToothCaster/v3-core/lib/pool"
	"github.com/DaggerToothCaster/v3-core/lib/tickmath"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

// DefaultAccount is used when a trace entry names no owner or recipient.
const DefaultAccount = "trader"

const defaultBatchSize = 256

// Runner replays transactions against a pool. It acts as the counterparty
// for every settlement callback, paying from the account named in each
// trace entry, and journals one event per applied transaction.
type Runner struct {
	Pool      *pool.Pool
	Store     journal.Storage
	BatchSize int

	log   *zap.Logger
	clock uint32
	seq   uint64
	batch []journal.Event

	// outstanding loan repaid by the flash callback
	flashBorrowed0, flashBorrowed1 *ui.Int
}

func NewRunner(p *pool.Pool, store journal.Storage, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		Pool:      p,
		Store:     store,
		BatchSize: defaultBatchSize,
		log:       log,
	}
	// the trace drives time
	p.Now = func() uint32 { return r.clock }
	return r
}

// Run applies the trace in order, flushing journal batches as it goes. The
// first failing transaction aborts the run after flushing what succeeded.
func (r *Runner) Run(ctx context.Context, txs []Transaction) error {
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tx.Timestamp > r.clock {
			r.clock = tx.Timestamp
		}
		if tx.Type == "AdvanceTime" {
			// moves the clock only; nothing to journal
			continue
		}

		event, err := r.apply(tx)
		if err != nil {
			if flushErr := r.flush(ctx); flushErr != nil {
				r.log.Error("flush after failure", zap.Error(flushErr))
			}
			return fmt.Errorf("transaction %d (%s): %w", i, tx.Type, err)
		}

		r.seq++
		event.Seq = r.seq
		event.Timestamp = r.clock
		event.Pool = r.Pool.Address
		event.SqrtPriceX96 = r.Pool.Slot0.SqrtPriceX96.Dec()
		event.Tick = r.Pool.Slot0.Tick
		event.Liquidity = r.Pool.Liquidity.Dec()
		r.batch = append(r.batch, event)

		if len(r.batch) >= r.BatchSize {
			if err := r.flush(ctx); err != nil {
				return err
			}
		}
	}
	return r.flush(ctx)
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.batch) == 0 || r.Store == nil {
		return nil
	}
	if err := r.Store.PutEventBatch(ctx, r.batch); err != nil {
		return fmt.Errorf("journal flush: %w", err)
	}
	r.batch = r.batch[:0]
	return nil
}

func (r *Runner) apply(tx Transaction) (journal.Event, error) {
	owner := tx.Owner
	if owner == "" {
		owner = DefaultAccount
	}
	recipient := tx.Recipient
	if recipient == "" {
		recipient = owner
	}

	switch tx.Type {
	case "Initialize":
		if tx.SqrtPriceX96 == nil {
			return journal.Event{}, fmt.Errorf("initialize needs sqrtPriceX96")
		}
		if err := r.Pool.Initialize(tx.SqrtPriceX96); err != nil {
			return journal.Event{}, err
		}
		return journal.Event{Op: journal.OpInitialize, Amount0: "0", Amount1: "0"}, nil

	case "Mint":
		amount := tx.Amount
		if amount.IsZero() {
			// the trace gives token amounts; derive the liquidity they back
			var err error
			if amount, err = liquidityForAmounts(r.Pool, tx); err != nil {
				return journal.Event{}, err
			}
		}
		amount0, amount1, err := r.Pool.Mint(owner, tx.TickLower, tx.TickUpper, amount, []byte(owner), r)
		if err != nil {
			return journal.Event{}, err
		}
		return journal.Event{
			Op: journal.OpMint, Owner: owner,
			TickLower: tx.TickLower, TickUpper: tx.TickUpper,
			Amount0: amount0.Dec(), Amount1: amount1.Dec(),
		}, nil

	case "Burn":
		amount0, amount1, err := r.Pool.Burn(owner, tx.TickLower, tx.TickUpper, tx.Amount)
		if err != nil {
			return journal.Event{}, err
		}
		return journal.Event{
			Op: journal.OpBurn, Owner: owner,
			TickLower: tx.TickLower, TickUpper: tx.TickUpper,
			Amount0: amount0.Dec(), Amount1: amount1.Dec(),
		}, nil

	case "Collect":
		requested0, requested1 := tx.Amount0, tx.Amount1
		if requested0.IsZero() && requested1.IsZero() {
			requested0 = cons.MaxUint128.Clone()
			requested1 = cons.MaxUint128.Clone()
		}
		amount0, amount1, err := r.Pool.Collect(owner, recipient, tx.TickLower, tx.TickUpper, requested0, requested1)
		if err != nil {
			return journal.Event{}, err
		}
		return journal.Event{
			Op: journal.OpCollect, Owner: owner, Recipient: recipient,
			TickLower: tx.TickLower, TickUpper: tx.TickUpper,
			Amount0: amount0.Dec(), Amount1: amount1.Dec(),
		}, nil

	case "Swap":
		zeroForOne, amountSpecified, err := swapDirection(tx)
		if err != nil {
			return journal.Event{}, err
		}
		amount0, amount1, err := r.Pool.Swap(recipient, zeroForOne, amountSpecified, tx.SqrtPriceX96, []byte(owner), r)
		if err != nil {
			return journal.Event{}, err
		}
		return journal.Event{
			Op: journal.OpSwap, Owner: owner, Recipient: recipient,
			Amount0: signedDec(amount0), Amount1: signedDec(amount1),
		}, nil

	case "Flash":
		r.flashBorrowed0 = tx.Amount0.Clone()
		r.flashBorrowed1 = tx.Amount1.Clone()
		if err := r.Pool.Flash(recipient, tx.Amount0, tx.Amount1, []byte(owner), r); err != nil {
			return journal.Event{}, err
		}
		return journal.Event{
			Op: journal.OpFlash, Owner: owner, Recipient: recipient,
			Amount0: tx.Amount0.Dec(), Amount1: tx.Amount1.Dec(),
		}, nil
	}
	return journal.Event{}, fmt.Errorf("unknown transaction type %q", tx.Type)
}

// swapDirection resolves the trade direction and signed amount. Traces may
// state the direction explicitly with a signed amount, or give one positive
// input amount per token side.
// liquidityForAmounts converts a Mint entry that specifies token amounts
// into the liquidity those amounts back at the current price.
func liquidityForAmounts(p *pool.Pool, tx Transaction) (*ui.Int, error) {
	if p.Slot0.SqrtPriceX96 == nil {
		return nil, pool.ErrLocked
	}
	ratioLower, err := tickmath.GetSqrtRatioAtTick(tx.TickLower)
	if err != nil {
		return nil, err
	}
	ratioUpper, err := tickmath.GetSqrtRatioAtTick(tx.TickUpper)
	if err != nil {
		return nil, err
	}
	return liquidity.ForAmounts(p.Slot0.SqrtPriceX96, ratioLower, ratioUpper, tx.Amount0, tx.Amount1)
}

func swapDirection(tx Transaction) (bool, *ui.Int, error) {
	if !tx.Amount.IsZero() {
		return tx.ZeroForOne, tx.Amount, nil
	}
	if tx.Amount0.Sign() > 0 {
		return true, tx.Amount0, nil
	}
	if tx.Amount1.Sign() > 0 {
		return false, tx.Amount1, nil
	}
	return false, nil, fmt.Errorf("swap needs an amount")
}

func signedDec(x *ui.Int) string {
	if x.Sign() < 0 {
		return "-" + new(ui.Int).Neg(x).Dec()
	}
	return x.Dec()
}

// MintCallback pays the owed deposit from the account named in the trace.
func (r *Runner) MintCallback(owed0, owed1 *ui.Int, data []byte) error {
	payer := string(data)
	if owed0.Sign() > 0 {
		if err := r.Pool.Token0.Transfer(payer, r.Pool.Address, owed0); err != nil {
			return err
		}
	}
	if owed1.Sign() > 0 {
		if err := r.Pool.Token1.Transfer(payer, r.Pool.Address, owed1); err != nil {
			return err
		}
	}
	return nil
}

// SwapCallback pays the input leg from the account named in the trace.
func (r *Runner) SwapCallback(delta0, delta1 *ui.Int, data []byte) error {
	payer := string(data)
	if delta0.Sign() > 0 {
		if err := r.Pool.Token0.Transfer(payer, r.Pool.Address, delta0); err != nil {
			return err
		}
	}
	if delta1.Sign() > 0 {
		if err := r.Pool.Token1.Transfer(payer, r.Pool.Address, delta1); err != nil {
			return err
		}
	}
	return nil
}

// FlashCallback repays the outstanding loan plus fees.
func (r *Runner) FlashCallback(fee0, fee1 *ui.Int, data []byte) error {
	payer := string(data)
	repay0 := new(ui.Int).Add(r.flashBorrowed0, fee0)
	repay1 := new(ui.Int).Add(r.flashBorrowed1, fee1)
	if !repay0.IsZero() {
		if err := r.Pool.Token0.Transfer(payer, r.Pool.Address, repay0); err != nil {
			return err
		}
	}
	if !repay1.IsZero() {
		if err := r.Pool.Token1.Transfer(payer, r.Pool.Address, repay1); err != nil {
			return err
		}
	}
	return nil
}
