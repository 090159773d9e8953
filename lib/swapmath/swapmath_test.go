package swapmath

import (
	"testing"

	ui "github.com/holiman/uint256"
)

func TestComputeSwapStepExactInCapped(t *testing.T) {
	// price 1 -> 1.01, 2e18 liquidity, 1e18 token1 in, 0.06% fee:
	// the target is closer than the amount allows.
	current := ui.MustFromDecimal("79228162514264337593543950336")
	target := ui.MustFromDecimal("79623317895830914510639640423")
	liquidity := ui.MustFromDecimal("2000000000000000000")
	amountRemaining := ui.MustFromDecimal("1000000000000000000")

	next, amountIn, amountOut, feeAmount, err := ComputeSwapStep(current, target, liquidity, amountRemaining, 600)
	if err != nil {
		t.Fatal(err)
	}
	if next.Cmp(target) != 0 {
		t.Fatalf("should reach target: next=%v target=%v", next, target)
	}
	wantIn := ui.MustFromDecimal("9975124224178055")
	if amountIn.Cmp(wantIn) != 0 {
		t.Fatalf("amountIn: want=%v got=%v", wantIn, amountIn)
	}
	wantFee := ui.MustFromDecimal("5988667735148")
	if feeAmount.Cmp(wantFee) != 0 {
		t.Fatalf("feeAmount: want=%v got=%v", wantFee, feeAmount)
	}
	wantOut := ui.MustFromDecimal("9925619580021728")
	if amountOut.Cmp(wantOut) != 0 {
		t.Fatalf("amountOut: want=%v got=%v", wantOut, amountOut)
	}
	// capped at target: in+fee strictly less than the specified amount
	total := new(ui.Int).Add(amountIn, feeAmount)
	if total.Cmp(amountRemaining) >= 0 {
		t.Fatalf("in+fee should be < remaining: %v", total)
	}
}

func TestComputeSwapStepExactOutCapped(t *testing.T) {
	current := ui.MustFromDecimal("79228162514264337593543950336")
	target := ui.MustFromDecimal("79623317895830914510639640423")
	liquidity := ui.MustFromDecimal("2000000000000000000")
	// negative: exact output
	amountRemaining := new(ui.Int).Neg(ui.MustFromDecimal("1000000000000000000"))

	next, amountIn, amountOut, feeAmount, err := ComputeSwapStep(current, target, liquidity, amountRemaining, 600)
	if err != nil {
		t.Fatal(err)
	}
	if next.Cmp(target) != 0 {
		t.Fatalf("should reach target: next=%v", next)
	}
	wantIn := ui.MustFromDecimal("9975124224178055")
	if amountIn.Cmp(wantIn) != 0 {
		t.Fatalf("amountIn: want=%v got=%v", wantIn, amountIn)
	}
	wantFee := ui.MustFromDecimal("5988667735148")
	if feeAmount.Cmp(wantFee) != 0 {
		t.Fatalf("feeAmount: want=%v got=%v", wantFee, feeAmount)
	}
	wantOut := ui.MustFromDecimal("9925619580021728")
	if amountOut.Cmp(wantOut) != 0 {
		t.Fatalf("amountOut: want=%v got=%v", wantOut, amountOut)
	}
}

func TestComputeSwapStepExactInFullyConsumed(t *testing.T) {
	// amount too small to reach the target: whole remainder is in+fee
	current := ui.MustFromDecimal("79228162514264337593543950336")
	target := ui.MustFromDecimal("79623317895830914510639640423")
	liquidity := ui.MustFromDecimal("2000000000000000000")
	amountRemaining := ui.NewInt(1000)

	next, amountIn, _, feeAmount, err := ComputeSwapStep(current, target, liquidity, amountRemaining, 600)
	if err != nil {
		t.Fatal(err)
	}
	if next.Cmp(target) == 0 {
		t.Fatal("should not reach target")
	}
	total := new(ui.Int).Add(amountIn, feeAmount)
	if total.Cmp(amountRemaining) != 0 {
		t.Fatalf("in+fee must equal remaining: got %v", total)
	}
}

func TestComputeSwapStepExactOutNeverOverpays(t *testing.T) {
	current := ui.MustFromDecimal("79228162514264337593543950336")
	// far away target
	target := ui.MustFromDecimal("87150978765690771352898345369")
	liquidity := ui.MustFromDecimal("2000000000000000000")
	wanted := ui.NewInt(1_000_000)
	amountRemaining := new(ui.Int).Neg(wanted)

	_, _, amountOut, _, err := ComputeSwapStep(current, target, liquidity, amountRemaining, 3000)
	if err != nil {
		t.Fatal(err)
	}
	if amountOut.Cmp(wanted) > 0 {
		t.Fatalf("amountOut %v exceeds requested %v", amountOut, wanted)
	}
}
