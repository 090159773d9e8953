// Package pool is the orchestration layer tying the math, tick, position
// and oracle packages into a single concentrated-liquidity market. One Pool
// runs its operations to completion single-threaded; a mutual-exclusion
// flag rejects reentrant mutating calls issued from settlement callbacks.
package pool

import (
	"errors"
	"time"

	"github.com/DaggerToothCaster/v3-core/lib/bitmap"
	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/oracle"
	"github.com/DaggerToothCaster/v3-core/lib/position"
	"github.com/DaggerToothCaster/v3-core/lib/tick"
	"github.com/DaggerToothCaster/v3-core/lib/tickmath"
	"github.com/DaggerToothCaster/v3-core/lib/token"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

var (
	ErrLocked             = errors.New("pool: locked or not initialized")
	ErrAlreadyInitialized = errors.New("pool: already initialized")
	ErrInvalidTickRange   = errors.New("pool: invalid tick range")
	ErrZeroAmount         = errors.New("pool: amount must be positive")
	ErrPriceLimit         = errors.New("pool: price limit out of bounds")
	ErrInsufficientInput  = errors.New("pool: callback did not deliver owed input")
	ErrInsufficientFlash  = errors.New("pool: flash repayment below amount plus fee")
	ErrNoLiquidity        = errors.New("pool: no in-range liquidity")
	ErrInvalidFeeProtocol = errors.New("pool: protocol fee denominator must be 0 or 4..10")
	ErrInvalidConfig      = errors.New("pool: invalid fee or tick spacing")
)

// Slot0 is the frequently-read head state of the pool.
type Slot0 struct {
	SqrtPriceX96 *ui.Int
	// the last tick whose crossing was processed; consistent with
	// SqrtPriceX96 except possibly exactly on a boundary
	Tick                       int
	ObservationIndex           uint16
	ObservationCardinality     uint16
	ObservationCardinalityNext uint16
	// protocol fee denominators per token, 0 = disabled
	FeeProtocol0 uint8
	FeeProtocol1 uint8
	Unlocked     bool
}

// ProtocolFees is protocol fee owed per token, capped by the accounting
// width.
type ProtocolFees struct {
	Token0 *ui.Int
	Token1 *ui.Int
}

// Pool holds all state persisted across operations.
type Pool struct {
	Address string // the pool's holder id on the token ledgers
	Token0  token.Ledger
	Token1  token.Ledger

	Fee                 int // pips
	TickSpacing         int
	MaxLiquidityPerTick *ui.Int

	Slot0                Slot0
	FeeGrowthGlobal0X128 *ui.Int
	FeeGrowthGlobal1X128 *ui.Int
	ProtocolFees         ProtocolFees
	Liquidity            *ui.Int

	Ticks        *tick.Ledger
	Bitmap       *bitmap.Bitmap
	Positions    *position.Ledger
	Observations *oracle.Oracle

	// Now supplies the 32-bit clock; swapped out in tests and the
	// simulator for deterministic time.
	Now func() uint32

	log *zap.Logger
}

// New builds an uninitialized pool. All mutating entry points reject calls
// until Initialize has set the starting price.
func New(address string, token0, token1 token.Ledger, fee, tickSpacing int, log *zap.Logger) (*Pool, error) {
	if fee <= 0 || fee >= cons.FeeDenominator || tickSpacing <= 0 || tickSpacing > tickmath.MaxTick {
		return nil, ErrInvalidConfig
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		Address:              address,
		Token0:               token0,
		Token1:               token1,
		Fee:                  fee,
		TickSpacing:          tickSpacing,
		MaxLiquidityPerTick:  tick.MaxLiquidityPerTick(tickSpacing),
		FeeGrowthGlobal0X128: new(ui.Int),
		FeeGrowthGlobal1X128: new(ui.Int),
		ProtocolFees:         ProtocolFees{Token0: new(ui.Int), Token1: new(ui.Int)},
		Liquidity:            new(ui.Int),
		Ticks:                tick.NewLedger(),
		Bitmap:               bitmap.New(),
		Positions:            position.NewLedger(),
		Observations:         oracle.New(),
		Now:                  func() uint32 { return uint32(time.Now().Unix()) },
		log:                  log,
	}, nil
}

// Initialize sets the starting price and first oracle observation. Callable
// exactly once; unlocks the pool.
func (p *Pool) Initialize(sqrtPriceX96 *ui.Int) error {
	if p.Slot0.SqrtPriceX96 != nil {
		return ErrAlreadyInitialized
	}
	tickCurrent, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}
	cardinality, cardinalityNext := p.Observations.Initialize(p.Now())
	p.Slot0 = Slot0{
		SqrtPriceX96:               sqrtPriceX96.Clone(),
		Tick:                       tickCurrent,
		ObservationCardinality:     cardinality,
		ObservationCardinalityNext: cardinalityNext,
		Unlocked:                   true,
	}
	p.log.Info("pool initialized",
		zap.String("sqrtPriceX96", sqrtPriceX96.Dec()),
		zap.Int("tick", tickCurrent))
	return nil
}

// lock acquires the reentrancy flag; every mutating entry point pairs it
// with unlock on all return paths.
func (p *Pool) lock() error {
	if !p.Slot0.Unlocked {
		return ErrLocked
	}
	p.Slot0.Unlocked = false
	return nil
}

func (p *Pool) unlock() {
	p.Slot0.Unlocked = true
}

// signedDec renders a two's-complement value as a signed decimal for logs.
func signedDec(x *ui.Int) string {
	if x.Sign() < 0 {
		return "-" + new(ui.Int).Neg(x).Dec()
	}
	return x.Dec()
}

func (p *Pool) checkTicks(lower, upper int) error {
	if lower >= upper || lower < tickmath.MinTick || upper > tickmath.MaxTick {
		return ErrInvalidTickRange
	}
	if lower%p.TickSpacing != 0 || upper%p.TickSpacing != 0 {
		return ErrInvalidTickRange
	}
	return nil
}

// Observe returns the oracle accumulators as of each requested secondsAgo.
// Read-only: usable from inside callbacks.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*ui.Int, error) {
	return p.Observations.Observe(
		p.Now(), secondsAgos, p.Slot0.Tick, p.Slot0.ObservationIndex,
		p.Liquidity, p.Slot0.ObservationCardinality)
}

// IncreaseObservationCardinalityNext reserves oracle ring capacity.
func (p *Pool) IncreaseObservationCardinalityNext(next uint16) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	updated, err := p.Observations.Grow(p.Slot0.ObservationCardinalityNext, next)
	if err != nil {
		return err
	}
	if updated != p.Slot0.ObservationCardinalityNext {
		p.log.Info("observation cardinality next increased",
			zap.Uint16("from", p.Slot0.ObservationCardinalityNext),
			zap.Uint16("to", updated))
		p.Slot0.ObservationCardinalityNext = updated
	}
	return nil
}

// SnapshotCumulativesInside returns the cumulative tick-time,
// seconds-per-liquidity and seconds spent inside [lower, upper). Both
// boundary ticks must currently be initialized; snapshots are only
// comparable across a period in which that holds.
func (p *Pool) SnapshotCumulativesInside(lower, upper int) (tickCumulativeInside int64, secondsPerLiquidityInsideX128 *ui.Int, secondsInside uint32, err error) {
	if err := p.checkTicks(lower, upper); err != nil {
		return 0, nil, 0, err
	}
	lowerInfo, okLower := p.Ticks.Get(lower)
	upperInfo, okUpper := p.Ticks.Get(upper)
	if !okLower || !okUpper || !lowerInfo.Initialized || !upperInfo.Initialized {
		return 0, nil, 0, tick.ErrTickNotInitialized
	}

	switch {
	case p.Slot0.Tick < lower:
		return lowerInfo.TickCumulativeOutside - upperInfo.TickCumulativeOutside,
			new(ui.Int).Sub(lowerInfo.SecondsPerLiquidityOutsideX128, upperInfo.SecondsPerLiquidityOutsideX128),
			lowerInfo.SecondsOutside - upperInfo.SecondsOutside,
			nil
	case p.Slot0.Tick < upper:
		now := p.Now()
		tickCumulative, secondsPerLiquidityX128, err := p.Observations.ObserveSingle(
			now, 0, p.Slot0.Tick, p.Slot0.ObservationIndex, p.Liquidity, p.Slot0.ObservationCardinality)
		if err != nil {
			return 0, nil, 0, err
		}
		spl := new(ui.Int).Sub(secondsPerLiquidityX128, lowerInfo.SecondsPerLiquidityOutsideX128)
		spl.Sub(spl, upperInfo.SecondsPerLiquidityOutsideX128)
		return tickCumulative - lowerInfo.TickCumulativeOutside - upperInfo.TickCumulativeOutside,
			spl,
			now - lowerInfo.SecondsOutside - upperInfo.SecondsOutside,
			nil
	default:
		return upperInfo.TickCumulativeOutside - lowerInfo.TickCumulativeOutside,
			new(ui.Int).Sub(upperInfo.SecondsPerLiquidityOutsideX128, lowerInfo.SecondsPerLiquidityOutsideX128),
			upperInfo.SecondsOutside - lowerInfo.SecondsOutside,
			nil
	}
}
