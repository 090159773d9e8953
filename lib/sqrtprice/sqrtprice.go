// Package sqrtprice computes how a Q64.96 sqrt price moves for a given
// token amount at a given liquidity, and the token amounts spanning a
// price interval. Rounding is always in the pool's favor.
package sqrtprice

import (
	"errors"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	ui "github.com/holiman/uint256"
)

var (
	ErrZeroLiquidity = errors.New("sqrtprice: liquidity must be positive")
	ErrZeroPrice     = errors.New("sqrtprice: sqrt price must be positive")
	ErrPriceOverflow = errors.New("sqrtprice: next sqrt price out of range")
)

// GetNextSqrtPriceFromInput returns the price after adding amountIn of
// token0 (zeroForOne) or token1 (!zeroForOne), rounding so the pool never
// owes more output than the true price would allow.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *ui.Int, zeroForOne bool) (*ui.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput returns the price after removing amountOut of
// token1 (zeroForOne) or token0 (!zeroForOne).
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *ui.Int, zeroForOne bool) (*ui.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// nextSqrtPriceFromAmount0RoundingUp solves liquidity/price' =
// liquidity/price ± amount, rounding up: the price must not pass the target
// the amount can actually pay for.
func nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *ui.Int, add bool) (*ui.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}
	numerator1 := new(ui.Int).Lsh(liquidity, 96)

	if add {
		product := new(ui.Int).Mul(amount, sqrtPX96)
		if new(ui.Int).Div(product, amount).Eq(sqrtPX96) {
			denominator := new(ui.Int).Add(numerator1, product)
			if denominator.Cmp(numerator1) >= 0 {
				return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// product overflowed 256 bits: fall back to the formulation that
		// divides first, still exact because it rounds up at the end.
		denom := new(ui.Int).Add(new(ui.Int).Div(numerator1, sqrtPX96), amount)
		return fullmath.MulDivRoundingUp(numerator1, cons.One, denom)
	}

	product := new(ui.Int).Mul(amount, sqrtPX96)
	if !new(ui.Int).Div(product, amount).Eq(sqrtPX96) {
		return nil, ErrPriceOverflow
	}
	if numerator1.Cmp(product) <= 0 {
		return nil, ErrPriceOverflow
	}
	denominator := new(ui.Int).Sub(numerator1, product)
	return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

// nextSqrtPriceFromAmount1RoundingDown solves price' = price ±
// amount/liquidity, rounding down.
func nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *ui.Int, add bool) (*ui.Int, error) {
	if add {
		quotient, err := fullmath.MulDiv(amount, cons.Q96, liquidity)
		if err != nil {
			return nil, err
		}
		next := new(ui.Int).Add(sqrtPX96, quotient)
		if next.Cmp(sqrtPX96) < 0 {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := fullmath.MulDivRoundingUp(amount, cons.Q96, liquidity)
	if err != nil {
		return nil, err
	}
	if sqrtPX96.Cmp(quotient) <= 0 {
		return nil, ErrPriceOverflow
	}
	return new(ui.Int).Sub(sqrtPX96, quotient), nil
}

// GetAmount0Delta returns the token0 amount backing liquidity between two
// sqrt prices; roundUp selects whether the amount is owed by (up) or to
// (down) the caller.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return new(ui.Int), nil
	}

	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	numerator2 := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		inner, err := fullmath.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fullmath.MulDivRoundingUp(inner, cons.One, sqrtRatioAX96)
	}
	res, err := fullmath.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return res.Div(res, sqrtRatioAX96), nil
}

// GetAmount1Delta returns the token1 amount backing liquidity between two
// sqrt prices.
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return new(ui.Int), nil
	}

	diff := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(liquidity, diff, cons.Q96)
	}
	return fullmath.MulDiv(liquidity, diff, cons.Q96)
}

// GetAmount0DeltaSigned interprets negative liquidity as an amount owed to
// the caller, returned negated.
func GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (*ui.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// GetAmount1DeltaSigned interprets negative liquidity as an amount owed to
// the caller, returned negated.
func GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (*ui.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}
