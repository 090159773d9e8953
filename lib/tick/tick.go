// Package tick keeps the sparse per-tick liquidity ledger. Each initialized
// tick records gross/net liquidity and "outside" snapshots of the global
// fee-growth and oracle accumulators; the reference frame of "outside"
// flips every time price crosses the tick.
package tick

import (
	"errors"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/liquidity"
	"github.com/DaggerToothCaster/v3-core/lib/tickmath"
	ui "github.com/holiman/uint256"
)

var (
	ErrLiquidityGrossOverflow = errors.New("tick: gross liquidity exceeds per-tick maximum")
	ErrTickNotInitialized     = errors.New("tick: not initialized")
)

// Info is the state of one initialized tick.
type Info struct {
	// total position liquidity referencing this tick as a boundary
	LiquidityGross *ui.Int
	// net liquidity added when the tick is crossed left to right (signed)
	LiquidityNet *ui.Int
	// fee growth on the other side of this tick relative to the current
	// tick, per unit of liquidity; relative meaning only
	FeeGrowthOutside0X128 *ui.Int
	FeeGrowthOutside1X128 *ui.Int
	// oracle accumulator snapshots, same "outside" convention
	TickCumulativeOutside          int64
	SecondsPerLiquidityOutsideX128 *ui.Int
	SecondsOutside                 uint32
	Initialized                    bool
}

func newInfo() *Info {
	return &Info{
		LiquidityGross:                 new(ui.Int),
		LiquidityNet:                   new(ui.Int),
		FeeGrowthOutside0X128:          new(ui.Int),
		FeeGrowthOutside1X128:          new(ui.Int),
		SecondsPerLiquidityOutsideX128: new(ui.Int),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		LiquidityGross:                 i.LiquidityGross.Clone(),
		LiquidityNet:                   i.LiquidityNet.Clone(),
		FeeGrowthOutside0X128:          i.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128:          i.FeeGrowthOutside1X128.Clone(),
		TickCumulativeOutside:          i.TickCumulativeOutside,
		SecondsPerLiquidityOutsideX128: i.SecondsPerLiquidityOutsideX128.Clone(),
		SecondsOutside:                 i.SecondsOutside,
		Initialized:                    i.Initialized,
	}
}

// Ledger owns the tick table. All mutation goes through its methods.
type Ledger struct {
	ticks map[int]*Info
}

func NewLedger() *Ledger {
	return &Ledger{ticks: make(map[int]*Info)}
}

func (l *Ledger) Clone() *Ledger {
	ticks := make(map[int]*Info, len(l.ticks))
	for k, v := range l.ticks {
		ticks[k] = v.Clone()
	}
	return &Ledger{ticks: ticks}
}

// Get returns the tick's record, or (nil, false) if it was never touched.
func (l *Ledger) Get(tick int) (*Info, bool) {
	info, ok := l.ticks[tick]
	return info, ok
}

func (l *Ledger) getOrCreate(tick int) *Info {
	info, ok := l.ticks[tick]
	if !ok {
		info = newInfo()
		l.ticks[tick] = info
	}
	return info
}

// MaxLiquidityPerTick returns the per-tick gross liquidity cap for a tick
// spacing, chosen so every legal tick at the cap still sums below the
// 128-bit liquidity accumulator.
func MaxLiquidityPerTick(tickSpacing int) *ui.Int {
	minTick := (tickmath.MinTick / tickSpacing) * tickSpacing
	maxTick := (tickmath.MaxTick / tickSpacing) * tickSpacing
	numTicks := uint64((maxTick-minTick)/tickSpacing) + 1
	return new(ui.Int).Div(cons.MaxUint128, ui.NewInt(numTicks))
}

// Update applies a signed liquidity delta to a tick boundary. On first
// activation the outside snapshots are seeded with the current global
// values when the tick is at or below the current tick, under the
// convention that all prior accumulation happened below it. Returns whether
// the tick flipped between active and inactive.
func (l *Ledger) Update(
	tick, currentTick int,
	liquidityDelta *ui.Int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int,
	secondsPerLiquidityCumulativeX128 *ui.Int,
	tickCumulative int64,
	time uint32,
	upper bool,
	maxLiquidity *ui.Int,
) (flipped bool, err error) {
	info := l.getOrCreate(tick)

	grossBefore := info.LiquidityGross
	grossAfter, err := liquidity.AddDelta(grossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if grossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrLiquidityGrossOverflow
	}

	flipped = grossAfter.IsZero() != grossBefore.IsZero()

	if grossBefore.IsZero() {
		if tick <= currentTick {
			info.FeeGrowthOutside0X128 = feeGrowthGlobal0X128.Clone()
			info.FeeGrowthOutside1X128 = feeGrowthGlobal1X128.Clone()
			info.SecondsPerLiquidityOutsideX128 = secondsPerLiquidityCumulativeX128.Clone()
			info.TickCumulativeOutside = tickCumulative
			info.SecondsOutside = time
		}
		info.Initialized = true
	}

	info.LiquidityGross = grossAfter
	if upper {
		info.LiquidityNet = new(ui.Int).Sub(info.LiquidityNet, liquidityDelta)
	} else {
		info.LiquidityNet = new(ui.Int).Add(info.LiquidityNet, liquidityDelta)
	}
	return flipped, nil
}

// Clear deletes a tick's record. Storage reclamation only; callers invoke
// it after Update reports a deactivating flip.
func (l *Ledger) Clear(tick int) {
	delete(l.ticks, tick)
}

// Snapshot captures a tick's record for later Restore; nil means the tick
// has no record.
func (l *Ledger) Snapshot(tick int) *Info {
	info, ok := l.ticks[tick]
	if !ok {
		return nil
	}
	return info.Clone()
}

// Restore reinstates a snapshot taken with Snapshot, removing the record
// when the snapshot is nil. Lets callers stage updates spanning several
// ticks and back out on failure.
func (l *Ledger) Restore(tick int, snapshot *Info) {
	if snapshot == nil {
		delete(l.ticks, tick)
		return
	}
	l.ticks[tick] = snapshot
}

// Cross flips the "outside" reference frame of all tracked accumulators and
// returns the net liquidity to apply to the running in-range total. Called
// exactly once per crossing.
func (l *Ledger) Cross(
	tick int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int,
	secondsPerLiquidityCumulativeX128 *ui.Int,
	tickCumulative int64,
	time uint32,
) *ui.Int {
	info := l.getOrCreate(tick)
	info.FeeGrowthOutside0X128 = new(ui.Int).Sub(feeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128 = new(ui.Int).Sub(feeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	info.SecondsPerLiquidityOutsideX128 = new(ui.Int).Sub(secondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	info.TickCumulativeOutside = tickCumulative - info.TickCumulativeOutside
	info.SecondsOutside = time - info.SecondsOutside
	return info.LiquidityNet
}

// GetFeeGrowthInside returns the fee growth per unit liquidity accrued
// inside [lower, upper), derived from the global accumulators minus the
// growth recorded outside each boundary. All arithmetic wraps; only
// differences are meaningful.
func (l *Ledger) GetFeeGrowthInside(
	lower, upper, currentTick int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int,
) (inside0, inside1 *ui.Int) {
	lowerInfo := l.getOrCreate(lower)
	upperInfo := l.getOrCreate(upper)

	var below0, below1 *ui.Int
	if currentTick >= lower {
		below0 = lowerInfo.FeeGrowthOutside0X128
		below1 = lowerInfo.FeeGrowthOutside1X128
	} else {
		below0 = new(ui.Int).Sub(feeGrowthGlobal0X128, lowerInfo.FeeGrowthOutside0X128)
		below1 = new(ui.Int).Sub(feeGrowthGlobal1X128, lowerInfo.FeeGrowthOutside1X128)
	}

	var above0, above1 *ui.Int
	if currentTick < upper {
		above0 = upperInfo.FeeGrowthOutside0X128
		above1 = upperInfo.FeeGrowthOutside1X128
	} else {
		above0 = new(ui.Int).Sub(feeGrowthGlobal0X128, upperInfo.FeeGrowthOutside0X128)
		above1 = new(ui.Int).Sub(feeGrowthGlobal1X128, upperInfo.FeeGrowthOutside1X128)
	}

	inside0 = new(ui.Int).Sub(new(ui.Int).Sub(feeGrowthGlobal0X128, below0), above0)
	inside1 = new(ui.Int).Sub(new(ui.Int).Sub(feeGrowthGlobal1X128, below1), above1)
	return inside0, inside1
}
