// Package tickmath converts between tick indices and Q64.96 sqrt prices.
// A tick t maps to sqrt(1.0001)^t; both directions are bit-exact integer
// computations with no floating point.
package tickmath

import (
	"errors"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
)

const (
	// MinTick is the minimum tick that may be used on any pool.
	MinTick = -887272
	// MaxTick is the maximum tick that may be used on any pool.
	MaxTick = -MinTick
)

var (
	// MinSqrtRatio is the sqrt ratio at MinTick.
	MinSqrtRatio = ui.NewInt(4295128739)
	// MaxSqrtRatio is the sqrt ratio at MaxTick.
	MaxSqrtRatio = ui.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrTickRange      = errors.New("tickmath: tick out of range")
	ErrSqrtRatioRange = errors.New("tickmath: sqrt ratio out of range")
)

// Precomputed sqrt(1/1.0001)^(2^i) ratios as Q128.128, selected by the bits
// of |tick|.
var tickRatios = [20]*ui.Int{
	ui.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	ui.MustFromHex("0xfff97272373d413259a46990580e213a"),
	ui.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	ui.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	ui.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	ui.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	ui.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	ui.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	ui.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	ui.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	ui.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	ui.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	ui.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	ui.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	ui.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	ui.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	ui.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	ui.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	ui.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	ui.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

var (
	q128One          = ui.MustFromHex("0x100000000000000000000000000000000")
	q32              = ui.NewInt(1 << 32)
	magicSqrt10001   = ui.MustFromHex("0x3627a301d71055774c85")
	magicTickLow     = ui.MustFromHex("0x28f6481ab7f045a5af012a19d003aaa")
	magicTickHigh    = ui.MustFromHex("0xdb2df09e81959a81455e260799a0632f")
	log2FractionBits = 14
)

// GetSqrtRatioAtTick returns sqrt(1.0001)^tick as a Q64.96, monotonically
// increasing in tick. Fails for ticks outside [MinTick, MaxTick].
func GetSqrtRatioAtTick(tick int) (*ui.Int, error) {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	if absTick > MaxTick {
		return nil, ErrTickRange
	}

	ratio := q128One.Clone()
	for i, r := range tickRatios {
		if absTick&(1<<uint(i)) != 0 {
			ratio = new(ui.Int).Rsh(new(ui.Int).Mul(ratio, r), 128)
		}
	}
	if tick > 0 {
		ratio = new(ui.Int).Div(cons.MaxUint256, ratio)
	}

	// Q128.128 back down to Q64.96, rounding up so the price grid stays
	// consistent with the inverse conversion.
	rem := new(ui.Int).Mod(ratio, q32)
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.Add(ratio, cons.One)
	}
	return ratio, nil
}

// GetTickAtSqrtRatio returns the largest tick whose sqrt ratio is at most
// sqrtRatioX96. Valid for sqrt ratios in [MinSqrtRatio, MaxSqrtRatio); an
// exact boundary between two ticks resolves toward the lower tick.
func GetTickAtSqrtRatio(sqrtRatioX96 *ui.Int) (int, error) {
	if sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtRatioRange
	}

	sqrtRatioX128 := new(ui.Int).Lsh(sqrtRatioX96, 32)
	msb := uint(sqrtRatioX128.BitLen() - 1)

	// Normalize into [2^127, 2^128) and extract the fractional log2 bits by
	// repeated squaring.
	var r *ui.Int
	if msb >= 128 {
		r = new(ui.Int).Rsh(sqrtRatioX128, msb-127)
	} else {
		r = new(ui.Int).Lsh(sqrtRatioX128, 127-msb)
	}

	// log2 as a signed Q192.64 in two's complement.
	log2 := new(ui.Int).Lsh(
		new(ui.Int).Sub(ui.NewInt(uint64(msb)), ui.NewInt(128)), 64)

	for i := 0; i < log2FractionBits; i++ {
		r = new(ui.Int).Rsh(new(ui.Int).Mul(r, r), 127)
		f := new(ui.Int).Rsh(r, 128)
		log2.Or(log2, new(ui.Int).Lsh(f, uint(63-i)))
		r.Rsh(r, uint(f.Uint64()))
	}

	logSqrt10001 := new(ui.Int).Mul(log2, magicSqrt10001)

	tickLow := toSignedTick(new(ui.Int).Sub(logSqrt10001, magicTickLow))
	tickHigh := toSignedTick(new(ui.Int).Add(logSqrt10001, magicTickHigh))

	if tickLow == tickHigh {
		return tickLow, nil
	}
	// Two candidates: take the higher one only if its exact ratio does not
	// exceed the input, resolving boundary ties toward the lower tick.
	ratio, err := GetSqrtRatioAtTick(tickHigh)
	if err != nil {
		return 0, err
	}
	if ratio.Cmp(sqrtRatioX96) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}

// toSignedTick extracts a two's-complement Q.128 quantity's integer part.
func toSignedTick(x *ui.Int) int {
	shifted := new(ui.Int).SRsh(x, 128)
	return int(int64(shifted.Uint64()))
}
