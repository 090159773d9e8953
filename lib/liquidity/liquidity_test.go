package liquidity

import (
	"testing"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
)

func TestAddDelta(t *testing.T) {
	got, err := AddDelta(ui.NewInt(100), ui.NewInt(50))
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(ui.NewInt(150)) != 0 {
		t.Fatalf("want=150 got=%v", got)
	}

	minus60 := new(ui.Int).Neg(ui.NewInt(60))
	got, err = AddDelta(ui.NewInt(100), minus60)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(ui.NewInt(40)) != 0 {
		t.Fatalf("want=40 got=%v", got)
	}

	minus101 := new(ui.Int).Neg(ui.NewInt(101))
	if _, err = AddDelta(ui.NewInt(100), minus101); err != ErrUnderflow {
		t.Fatalf("want ErrUnderflow, got %v", err)
	}

	if _, err = AddDelta(cons.MaxUint128, ui.NewInt(1)); err != ErrOverflow {
		t.Fatalf("want ErrOverflow, got %v", err)
	}
}

func TestForAmountsPicksConstraining(t *testing.T) {
	price := ui.MustFromDecimal("79228162514264337593543950336")  // 1.0
	lower := ui.MustFromDecimal("78244023372248365697264290337")  // ~tick -250
	upper := ui.MustFromDecimal("80224679980005306637834519095")  // ~tick 250

	amount0 := ui.NewInt(100)
	amount1 := ui.NewInt(200)

	both, err := ForAmounts(price, lower, upper, amount0, amount1)
	if err != nil {
		t.Fatal(err)
	}
	l0, err := ForAmount0(price, upper, amount0)
	if err != nil {
		t.Fatal(err)
	}
	l1, err := ForAmount1(lower, price, amount1)
	if err != nil {
		t.Fatal(err)
	}
	min := l0
	if l1.Cmp(min) < 0 {
		min = l1
	}
	if both.Cmp(min) != 0 {
		t.Fatalf("want=%v got=%v", min, both)
	}

	// entirely below the range: only token0 matters
	belowAll, err := ForAmounts(new(ui.Int).Sub(lower, ui.NewInt(1000)), lower, upper, amount0, amount1)
	if err != nil {
		t.Fatal(err)
	}
	only0, err := ForAmount0(lower, upper, amount0)
	if err != nil {
		t.Fatal(err)
	}
	if belowAll.Cmp(only0) != 0 {
		t.Fatalf("want=%v got=%v", only0, belowAll)
	}
}
