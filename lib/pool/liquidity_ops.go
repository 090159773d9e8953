package pool

import (
	"github.com/DaggerToothCaster/v3-core/lib/liquidity"
	"github.com/DaggerToothCaster/v3-core/lib/position"
	"github.com/DaggerToothCaster/v3-core/lib/sqrtprice"
	"github.com/DaggerToothCaster/v3-core/lib/tickmath"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Mint adds liquidity to (recipient, lower, upper). Token amounts owed are
// computed from the current price, then the callback must transfer them to
// the pool; the balance check runs after the callback returns. Returned
// amounts are the exact quantities verified received.
func (p *Pool) Mint(recipient string, lower, upper int, amount *ui.Int, data []byte, cb MintCallback) (amount0, amount1 *ui.Int, err error) {
	if amount == nil || amount.IsZero() || amount.Sign() < 0 {
		return nil, nil, ErrZeroAmount
	}
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	_, amount0, amount1, err = p.modifyPosition(recipient, lower, upper, amount)
	if err != nil {
		return nil, nil, err
	}

	var balance0Before, balance1Before *ui.Int
	if amount0.Sign() > 0 {
		if balance0Before, err = p.Token0.BalanceOf(p.Address); err != nil {
			return nil, nil, err
		}
	}
	if amount1.Sign() > 0 {
		if balance1Before, err = p.Token1.BalanceOf(p.Address); err != nil {
			return nil, nil, err
		}
	}
	if err = cb.MintCallback(amount0, amount1, data); err != nil {
		return nil, nil, err
	}
	if amount0.Sign() > 0 {
		if err = p.checkReceived(p.Token0, balance0Before, amount0); err != nil {
			return nil, nil, err
		}
	}
	if amount1.Sign() > 0 {
		if err = p.checkReceived(p.Token1, balance1Before, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.log.Info("mint",
		zap.String("owner", recipient),
		zap.Int("tickLower", lower), zap.Int("tickUpper", upper),
		zap.String("liquidity", amount.Dec()),
		zap.String("amount0", amount0.Dec()), zap.String("amount1", amount1.Dec()))
	return amount0, amount1, nil
}

// Burn removes liquidity from the caller's position and credits the freed
// token amounts plus accrued fees to the position's owed balances. No
// tokens move; Collect withdraws them. amount zero is a poke that only
// refreshes owed fees.
func (p *Pool) Burn(owner string, lower, upper int, amount *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, nil, ErrZeroAmount
	}
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	pos, amount0Int, amount1Int, err := p.modifyPosition(owner, lower, upper, new(ui.Int).Neg(amount))
	if err != nil {
		return nil, nil, err
	}

	// deltas are zero or negative for a burn
	amount0 = new(ui.Int).Neg(amount0Int)
	amount1 = new(ui.Int).Neg(amount1Int)
	if !amount0.IsZero() {
		pos.TokensOwed0.Add(pos.TokensOwed0, amount0)
	}
	if !amount1.IsZero() {
		pos.TokensOwed1.Add(pos.TokensOwed1, amount1)
	}

	p.log.Info("burn",
		zap.String("owner", owner),
		zap.Int("tickLower", lower), zap.Int("tickUpper", upper),
		zap.String("liquidity", amount.Dec()),
		zap.String("amount0", amount0.Dec()), zap.String("amount1", amount1.Dec()))
	return amount0, amount1, nil
}

// Collect pays out up to the requested amounts from the position's owed
// balances. Requests above the owed balance are clamped, never rejected.
func (p *Pool) Collect(owner, recipient string, lower, upper int, amount0Requested, amount1Requested *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	pos := p.Positions.Get(owner, lower, upper)

	amount0 = minAmount(amount0Requested, pos.TokensOwed0)
	amount1 = minAmount(amount1Requested, pos.TokensOwed1)

	if !amount0.IsZero() {
		if err := p.Token0.Transfer(p.Address, recipient, amount0); err != nil {
			return nil, nil, err
		}
		pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
	}
	if !amount1.IsZero() {
		if err := p.Token1.Transfer(p.Address, recipient, amount1); err != nil {
			// the token0 leg already settled; owed balances stay consistent
			// with what actually moved
			return amount0, new(ui.Int), err
		}
		pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)
	}

	p.log.Info("collect",
		zap.String("owner", owner), zap.String("recipient", recipient),
		zap.Int("tickLower", lower), zap.Int("tickUpper", upper),
		zap.String("amount0", amount0.Dec()), zap.String("amount1", amount1.Dec()))
	return amount0, amount1, nil
}

func minAmount(requested, owed *ui.Int) *ui.Int {
	if requested == nil || requested.Cmp(owed) > 0 {
		return owed.Clone()
	}
	return requested.Clone()
}

// checkReceived verifies the pool's balance grew by at least owed since
// before, so callbacks cannot underpay.
func (p *Pool) checkReceived(ledger interface {
	BalanceOf(holder string) (*ui.Int, error)
}, before, owed *ui.Int) error {
	after, err := ledger.BalanceOf(p.Address)
	if err != nil {
		return err
	}
	want := new(ui.Int).Add(before, owed)
	if after.Cmp(want) < 0 {
		return ErrInsufficientInput
	}
	return nil
}

// modifyPosition applies a signed liquidity delta to a position and returns
// the signed token deltas from the pool's perspective (positive amounts are
// owed to the pool). Token deltas and the new in-range total are computed
// before any ledger is touched so failures leave state unchanged.
func (p *Pool) modifyPosition(owner string, lower, upper int, liquidityDelta *ui.Int) (*position.Info, *ui.Int, *ui.Int, error) {
	if err := p.checkTicks(lower, upper); err != nil {
		return nil, nil, nil, err
	}

	amount0, amount1 := new(ui.Int), new(ui.Int)
	var liquidityAfter *ui.Int
	inRange := false
	if !liquidityDelta.IsZero() {
		ratioLower, err := tickmath.GetSqrtRatioAtTick(lower)
		if err != nil {
			return nil, nil, nil, err
		}
		ratioUpper, err := tickmath.GetSqrtRatioAtTick(upper)
		if err != nil {
			return nil, nil, nil, err
		}

		switch {
		case p.Slot0.Tick < lower:
			// price below the range: the position holds only token0
			amount0, err = sqrtprice.GetAmount0DeltaSigned(ratioLower, ratioUpper, liquidityDelta)
		case p.Slot0.Tick < upper:
			inRange = true
			amount0, err = sqrtprice.GetAmount0DeltaSigned(p.Slot0.SqrtPriceX96, ratioUpper, liquidityDelta)
			if err == nil {
				amount1, err = sqrtprice.GetAmount1DeltaSigned(ratioLower, p.Slot0.SqrtPriceX96, liquidityDelta)
			}
			if err == nil {
				liquidityAfter, err = liquidity.AddDelta(p.Liquidity, liquidityDelta)
			}
		default:
			amount1, err = sqrtprice.GetAmount1DeltaSigned(ratioLower, ratioUpper, liquidityDelta)
		}
		if err != nil {
			return nil, nil, nil, err
		}
	}

	pos, err := p.updatePosition(owner, lower, upper, liquidityDelta, p.Slot0.Tick)
	if err != nil {
		return nil, nil, nil, err
	}

	if inRange {
		// in-range liquidity is changing; record the pre-change state
		indexUpdated, cardinalityUpdated := p.Observations.Write(
			p.Slot0.ObservationIndex, p.Now(), p.Slot0.Tick, p.Liquidity,
			p.Slot0.ObservationCardinality, p.Slot0.ObservationCardinalityNext)
		p.Slot0.ObservationIndex = indexUpdated
		p.Slot0.ObservationCardinality = cardinalityUpdated
		p.Liquidity = liquidityAfter
	}
	return pos, amount0, amount1, nil
}

// updatePosition stages the boundary tick updates, bitmap flips and the
// position update, backing all of them out if any step fails.
func (p *Pool) updatePosition(owner string, lower, upper int, liquidityDelta *ui.Int, currentTick int) (*position.Info, error) {
	pos := p.Positions.Get(owner, lower, upper)

	if liquidityDelta.IsZero() {
		// poke: refresh owed fees only
		inside0, inside1 := p.Ticks.GetFeeGrowthInside(lower, upper, currentTick, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128)
		if err := pos.Update(liquidityDelta, inside0, inside1); err != nil {
			return nil, err
		}
		return pos, nil
	}

	now := p.Now()
	tickCumulative, secondsPerLiquidityX128, err := p.Observations.ObserveSingle(
		now, 0, p.Slot0.Tick, p.Slot0.ObservationIndex, p.Liquidity, p.Slot0.ObservationCardinality)
	if err != nil {
		return nil, err
	}

	lowerBefore := p.Ticks.Snapshot(lower)
	upperBefore := p.Ticks.Snapshot(upper)
	restoreTicks := func() {
		p.Ticks.Restore(lower, lowerBefore)
		p.Ticks.Restore(upper, upperBefore)
	}

	flippedLower, err := p.Ticks.Update(lower, currentTick, liquidityDelta,
		p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128,
		secondsPerLiquidityX128, tickCumulative, now, false, p.MaxLiquidityPerTick)
	if err != nil {
		restoreTicks()
		return nil, err
	}
	flippedUpper, err := p.Ticks.Update(upper, currentTick, liquidityDelta,
		p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128,
		secondsPerLiquidityX128, tickCumulative, now, true, p.MaxLiquidityPerTick)
	if err != nil {
		restoreTicks()
		return nil, err
	}

	unflip := func() {
		if flippedLower {
			_ = p.Bitmap.FlipTick(lower, p.TickSpacing)
		}
		if flippedUpper {
			_ = p.Bitmap.FlipTick(upper, p.TickSpacing)
		}
	}
	if flippedLower {
		if err := p.Bitmap.FlipTick(lower, p.TickSpacing); err != nil {
			restoreTicks()
			return nil, err
		}
	}
	if flippedUpper {
		if err := p.Bitmap.FlipTick(upper, p.TickSpacing); err != nil {
			if flippedLower {
				_ = p.Bitmap.FlipTick(lower, p.TickSpacing)
			}
			restoreTicks()
			return nil, err
		}
	}

	inside0, inside1 := p.Ticks.GetFeeGrowthInside(lower, upper, currentTick, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128)
	if err := pos.Update(liquidityDelta, inside0, inside1); err != nil {
		unflip()
		restoreTicks()
		return nil, err
	}

	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.Ticks.Clear(lower)
		}
		if flippedUpper {
			p.Ticks.Clear(upper)
		}
	}
	return pos, nil
}
