package pool

import (
	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	"github.com/DaggerToothCaster/v3-core/lib/liquidity"
	"github.com/DaggerToothCaster/v3-core/lib/swapmath"
	"github.com/DaggerToothCaster/v3-core/lib/tickmath"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

// values fixed for the whole swap
type swapCache struct {
	liquidityStart                    *ui.Int
	blockTimestamp                    uint32
	feeProtocol                       uint8
	tickCumulative                    int64
	secondsPerLiquidityCumulativeX128 *ui.Int
	computedLatestObservation         bool
}

// running totals, committed to the pool only after the loop succeeds
type swapState struct {
	amountSpecifiedRemaining *ui.Int // signed
	amountCalculated         *ui.Int // signed
	sqrtPriceX96             *ui.Int
	tick                     int
	feeGrowthGlobalX128      *ui.Int
	protocolFee              *ui.Int
	liquidity                *ui.Int
}

type stepComputations struct {
	sqrtPriceStartX96 *ui.Int
	tickNext          int
	initialized       bool
	sqrtPriceNextX96  *ui.Int
	amountIn          *ui.Int
	amountOut         *ui.Int
	feeAmount         *ui.Int
}

// a boundary crossing recorded during the loop, applied at commit
type crossing struct {
	tick                    int
	feeGrowth0X128          *ui.Int
	feeGrowth1X128          *ui.Int
	secondsPerLiquidityX128 *ui.Int
	tickCumulative          int64
	time                    uint32
}

// Swap trades token0 for token1 (zeroForOne) or the reverse. amountSpecified
// is signed: positive requests an exact input, negative an exact output. The
// swap stops early at sqrtPriceLimitX96; nil means no limit beyond the legal
// price range. The output leg is sent to recipient before the callback runs,
// and the callback must deliver the input leg before returning.
//
// Returned amounts are signed from the pool's perspective: positive entered
// the pool, negative left it.
func (p *Pool) Swap(recipient string, zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *ui.Int, data []byte, cb SwapCallback) (amount0, amount1 *ui.Int, err error) {
	if amountSpecified == nil || amountSpecified.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	slot0Start := p.Slot0

	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			sqrtPriceLimitX96 = new(ui.Int).AddUint64(tickmath.MinSqrtRatio, 1)
		} else {
			sqrtPriceLimitX96 = new(ui.Int).SubUint64(tickmath.MaxSqrtRatio, 1)
		}
	}
	if zeroForOne {
		if sqrtPriceLimitX96.Cmp(slot0Start.SqrtPriceX96) >= 0 || sqrtPriceLimitX96.Cmp(tickmath.MinSqrtRatio) <= 0 {
			return nil, nil, ErrPriceLimit
		}
	} else {
		if sqrtPriceLimitX96.Cmp(slot0Start.SqrtPriceX96) <= 0 || sqrtPriceLimitX96.Cmp(tickmath.MaxSqrtRatio) >= 0 {
			return nil, nil, ErrPriceLimit
		}
	}

	exactInput := amountSpecified.Sign() > 0

	cache := swapCache{
		liquidityStart: p.Liquidity,
		blockTimestamp: p.Now(),
	}
	if zeroForOne {
		cache.feeProtocol = slot0Start.FeeProtocol0
	} else {
		cache.feeProtocol = slot0Start.FeeProtocol1
	}

	state := swapState{
		amountSpecifiedRemaining: amountSpecified.Clone(),
		amountCalculated:         new(ui.Int),
		sqrtPriceX96:             slot0Start.SqrtPriceX96.Clone(),
		tick:                     slot0Start.Tick,
		protocolFee:              new(ui.Int),
		liquidity:                cache.liquidityStart.Clone(),
	}
	if zeroForOne {
		state.feeGrowthGlobalX128 = p.FeeGrowthGlobal0X128.Clone()
	} else {
		state.feeGrowthGlobalX128 = p.FeeGrowthGlobal1X128.Clone()
	}

	var crossings []crossing

	// walk initialized ticks until the requested amount is exhausted or the
	// price limit is reached; each iteration strictly consumes amount or
	// moves the price, so the loop terminates
	for !state.amountSpecifiedRemaining.IsZero() && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		var step stepComputations
		step.sqrtPriceStartX96 = state.sqrtPriceX96.Clone()

		step.tickNext, step.initialized = p.Bitmap.NextInitializedTickWithinOneWord(state.tick, p.TickSpacing, zeroForOne)
		if step.tickNext < tickmath.MinTick {
			step.tickNext = tickmath.MinTick
		} else if step.tickNext > tickmath.MaxTick {
			step.tickNext = tickmath.MaxTick
		}
		step.sqrtPriceNextX96, err = tickmath.GetSqrtRatioAtTick(step.tickNext)
		if err != nil {
			return nil, nil, err
		}

		target := step.sqrtPriceNextX96
		if zeroForOne {
			if step.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) < 0 {
				target = sqrtPriceLimitX96
			}
		} else {
			if step.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) > 0 {
				target = sqrtPriceLimitX96
			}
		}

		state.sqrtPriceX96, step.amountIn, step.amountOut, step.feeAmount, err = swapmath.ComputeSwapStep(
			state.sqrtPriceX96, target, state.liquidity, state.amountSpecifiedRemaining, p.Fee)
		if err != nil {
			return nil, nil, err
		}

		if exactInput {
			consumed := new(ui.Int).Add(step.amountIn, step.feeAmount)
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, consumed)
			state.amountCalculated.Sub(state.amountCalculated, step.amountOut)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, step.amountOut)
			paid := new(ui.Int).Add(step.amountIn, step.feeAmount)
			state.amountCalculated.Add(state.amountCalculated, paid)
		}

		if cache.feeProtocol > 0 {
			delta := new(ui.Int).Div(step.feeAmount, ui.NewInt(uint64(cache.feeProtocol)))
			step.feeAmount.Sub(step.feeAmount, delta)
			state.protocolFee.Add(state.protocolFee, delta)
		}

		if !state.liquidity.IsZero() {
			growth, err := fullmath.MulDiv(step.feeAmount, cons.Q128, state.liquidity)
			if err != nil {
				return nil, nil, err
			}
			state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, growth)
		}

		if state.sqrtPriceX96.Eq(step.sqrtPriceNextX96) {
			if step.initialized {
				// the oracle state at swap start, computed at most once
				if !cache.computedLatestObservation {
					cache.tickCumulative, cache.secondsPerLiquidityCumulativeX128, err = p.Observations.ObserveSingle(
						cache.blockTimestamp, 0, slot0Start.Tick, slot0Start.ObservationIndex,
						cache.liquidityStart, slot0Start.ObservationCardinality)
					if err != nil {
						return nil, nil, err
					}
					cache.computedLatestObservation = true
				}

				fg0 := p.FeeGrowthGlobal0X128.Clone()
				fg1 := p.FeeGrowthGlobal1X128.Clone()
				if zeroForOne {
					fg0 = state.feeGrowthGlobalX128.Clone()
				} else {
					fg1 = state.feeGrowthGlobalX128.Clone()
				}
				crossings = append(crossings, crossing{
					tick:                    step.tickNext,
					feeGrowth0X128:          fg0,
					feeGrowth1X128:          fg1,
					secondsPerLiquidityX128: cache.secondsPerLiquidityCumulativeX128,
					tickCumulative:          cache.tickCumulative,
					time:                    cache.blockTimestamp,
				})

				liquidityNet := new(ui.Int)
				if info, ok := p.Ticks.Get(step.tickNext); ok {
					liquidityNet = info.LiquidityNet.Clone()
				}
				if zeroForOne {
					liquidityNet.Neg(liquidityNet)
				}
				state.liquidity, err = liquidity.AddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return nil, nil, err
				}
			}
			if zeroForOne {
				state.tick = step.tickNext - 1
			} else {
				state.tick = step.tickNext
			}
		} else if !state.sqrtPriceX96.Eq(step.sqrtPriceStartX96) {
			state.tick, err = tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// commit: the loop above touched no shared state
	for _, c := range crossings {
		p.Ticks.Cross(c.tick, c.feeGrowth0X128, c.feeGrowth1X128, c.secondsPerLiquidityX128, c.tickCumulative, c.time)
	}

	if state.tick != slot0Start.Tick {
		indexUpdated, cardinalityUpdated := p.Observations.Write(
			slot0Start.ObservationIndex, cache.blockTimestamp, slot0Start.Tick,
			cache.liquidityStart, slot0Start.ObservationCardinality, slot0Start.ObservationCardinalityNext)
		p.Slot0.ObservationIndex = indexUpdated
		p.Slot0.ObservationCardinality = cardinalityUpdated
	}
	p.Slot0.SqrtPriceX96 = state.sqrtPriceX96
	p.Slot0.Tick = state.tick
	p.Liquidity = state.liquidity

	if zeroForOne {
		p.FeeGrowthGlobal0X128 = state.feeGrowthGlobalX128
		if !state.protocolFee.IsZero() {
			p.ProtocolFees.Token0.Add(p.ProtocolFees.Token0, state.protocolFee)
		}
	} else {
		p.FeeGrowthGlobal1X128 = state.feeGrowthGlobalX128
		if !state.protocolFee.IsZero() {
			p.ProtocolFees.Token1.Add(p.ProtocolFees.Token1, state.protocolFee)
		}
	}

	if zeroForOne == exactInput {
		amount0 = new(ui.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
		amount1 = state.amountCalculated.Clone()
	} else {
		amount0 = state.amountCalculated.Clone()
		amount1 = new(ui.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
	}

	// settle: send the output leg first, then demand the input leg
	if zeroForOne {
		if amount1.Sign() < 0 {
			if err := p.Token1.Transfer(p.Address, recipient, new(ui.Int).Neg(amount1)); err != nil {
				return nil, nil, err
			}
		}
		balance0Before, err := p.Token0.BalanceOf(p.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := cb.SwapCallback(amount0, amount1, data); err != nil {
			return nil, nil, err
		}
		if err := p.checkReceived(p.Token0, balance0Before, amount0); err != nil {
			return nil, nil, err
		}
	} else {
		if amount0.Sign() < 0 {
			if err := p.Token0.Transfer(p.Address, recipient, new(ui.Int).Neg(amount0)); err != nil {
				return nil, nil, err
			}
		}
		balance1Before, err := p.Token1.BalanceOf(p.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := cb.SwapCallback(amount0, amount1, data); err != nil {
			return nil, nil, err
		}
		if err := p.checkReceived(p.Token1, balance1Before, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.log.Info("swap",
		zap.String("recipient", recipient),
		zap.Bool("zeroForOne", zeroForOne),
		zap.String("amount0", signedDec(amount0)), zap.String("amount1", signedDec(amount1)),
		zap.String("sqrtPriceX96", state.sqrtPriceX96.Dec()),
		zap.Int("tick", state.tick),
		zap.String("liquidity", state.liquidity.Dec()))
	return amount0, amount1, nil
}
