// Package fullmath provides full-precision 512-bit-intermediate
// multiply-divide. Every fee and amount computation in the engine routes
// through it.
package fullmath

import (
	"errors"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
)

var (
	ErrDivByZero = errors.New("fullmath: division by zero")
	ErrOverflow  = errors.New("fullmath: result exceeds 256 bits")
)

// MulDiv computes floor(a*b/denominator) without precision loss in the
// intermediate product.
func MulDiv(a, b, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivByZero
	}
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// MulDivRoundingUp computes ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *ui.Int) (*ui.Int, error) {
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	rem := new(ui.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		if result.Eq(cons.MaxUint256) {
			return nil, ErrOverflow
		}
		result.Add(result, cons.One)
	}
	return result, nil
}
