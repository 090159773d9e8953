// Package swapmath computes the result of one step of the swap loop: how
// far price moves toward a target given the remaining amount, and the
// amounts and fee exchanged over that movement.
package swapmath

import (
	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	"github.com/DaggerToothCaster/v3-core/lib/sqrtprice"
	ui "github.com/holiman/uint256"
)

var maxFee = ui.NewInt(cons.FeeDenominator)

// ComputeSwapStep consumes at most amountRemaining (positive = exact in,
// negative = exact out) moving price from current toward target. It returns
// the reached price, the gross in/out amounts and the fee charged, all
// unsigned. The fee is taken from the input side; when the step stops short
// of the target on exact input, the whole unconsumed remainder is the fee.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *ui.Int, feePips int) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *ui.Int, err error) {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0
	fee := ui.NewInt(uint64(feePips))
	feeComplement := new(ui.Int).Sub(maxFee, fee)

	if exactIn {
		amountRemainingLessFee, mErr := fullmath.MulDiv(amountRemaining, feeComplement, maxFee)
		if mErr != nil {
			return nil, nil, nil, nil, mErr
		}
		if zeroForOne {
			amountIn, err = sqrtprice.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn, err = sqrtprice.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96, err = sqrtprice.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		amountOutWanted := new(ui.Int).Neg(amountRemaining)
		if zeroForOne {
			amountOut, err = sqrtprice.GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut, err = sqrtprice.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountOutWanted.Cmp(amountOut) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96, err = sqrtprice.GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountOutWanted, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	reachedTarget := sqrtRatioTargetX96.Eq(sqrtRatioNextX96)

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			amountIn, err = sqrtprice.GetAmount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(reachedTarget && !exactIn) {
			amountOut, err = sqrtprice.GetAmount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			amountIn, err = sqrtprice.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(reachedTarget && !exactIn) {
			amountOut, err = sqrtprice.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	// exact output never pays out more than requested
	if !exactIn {
		amountOutWanted := new(ui.Int).Neg(amountRemaining)
		if amountOut.Cmp(amountOutWanted) > 0 {
			amountOut = amountOutWanted
		}
	}

	if exactIn && !reachedTarget {
		// the remainder of the maximum input is the fee
		feeAmount = new(ui.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount, err = fullmath.MulDivRoundingUp(amountIn, fee, feeComplement)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return sqrtRatioNextX96, amountIn, amountOut, feeAmount, nil
}
