// Package liquidity holds helpers for the 128-bit liquidity accumulator:
// checked signed-delta application and conversion from token amounts to the
// liquidity a price range can support.
package liquidity

import (
	"errors"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	ui "github.com/holiman/uint256"
)

var (
	ErrUnderflow = errors.New("liquidity: subtraction underflow")
	ErrOverflow  = errors.New("liquidity: addition overflows 128 bits")
)

// AddDelta applies a signed (two's complement) delta to an unsigned
// liquidity amount, rejecting under- and overflow of the 128-bit
// accumulator without mutating either argument.
func AddDelta(x, delta *ui.Int) (*ui.Int, error) {
	if delta.Sign() < 0 {
		abs := new(ui.Int).Neg(delta)
		if x.Cmp(abs) < 0 {
			return nil, ErrUnderflow
		}
		return new(ui.Int).Sub(x, abs), nil
	}
	sum := new(ui.Int).Add(x, delta)
	if sum.Cmp(cons.MaxUint128) > 0 {
		return nil, ErrOverflow
	}
	return sum, nil
}

// ForAmount0 returns the liquidity a given amount of token0 supports over
// [sqrtRatioAX96, sqrtRatioBX96].
func ForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	intermediate, err := fullmath.MulDiv(sqrtRatioAX96, sqrtRatioBX96, cons.Q96)
	if err != nil {
		return nil, err
	}
	return fullmath.MulDiv(amount0, intermediate, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// ForAmount1 returns the liquidity a given amount of token1 supports over
// [sqrtRatioAX96, sqrtRatioBX96].
func ForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	return fullmath.MulDiv(amount1, cons.Q96, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// ForAmounts returns the maximum liquidity both token amounts can back at
// the current price.
func ForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		return ForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	case sqrtRatioX96.Cmp(sqrtRatioBX96) < 0:
		liquidity0, err := ForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := ForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0, nil
		}
		return liquidity1, nil
	default:
		return ForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
	}
}
