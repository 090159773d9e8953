package constants

import (
	ui "github.com/holiman/uint256"
)

var (
	Zero          = new(ui.Int)
	One           = new(ui.Int).SetOne()
	MaxUint256, _ = ui.FromHex("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	MaxUint128, _ = ui.FromHex("0xffffffffffffffffffffffffffffffff")

	// Fixed-point scales used throughout the amount and fee math.
	Q96, _  = ui.FromHex("0x1000000000000000000000000")
	Q128, _ = ui.FromHex("0x100000000000000000000000000000000")
	Q192    = new(ui.Int).Mul(Q96, Q96)
)

// FeeDenominator is the pips base: a fee of 3000 means 0.30%.
const FeeDenominator = 1_000_000

// TickSpacings maps the supported fee tiers to their tick spacing.
var TickSpacings = map[int]int{
	500:   10,
	3000:  60,
	10000: 200,
}
