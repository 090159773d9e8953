// Package position tracks per-(owner, range) liquidity and the fees it has
// accrued but not yet collected.
package position

import (
	"errors"
	"fmt"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	"github.com/DaggerToothCaster/v3-core/lib/liquidity"
	ui "github.com/holiman/uint256"
)

// ErrEmptyPoke is returned for a zero-delta update of a position holding no
// liquidity: there is nothing to recompute.
var ErrEmptyPoke = errors.New("position: no position to poke")

// Info is one position's state. Owed balances grow monotonically until
// collected; they deliberately wrap rather than cap, on the expectation
// that fees are withdrawn long before the accumulator limit.
type Info struct {
	Liquidity                *ui.Int
	FeeGrowthInside0LastX128 *ui.Int
	FeeGrowthInside1LastX128 *ui.Int
	TokensOwed0              *ui.Int
	TokensOwed1              *ui.Int
}

func newInfo() *Info {
	return &Info{
		Liquidity:                new(ui.Int),
		FeeGrowthInside0LastX128: new(ui.Int),
		FeeGrowthInside1LastX128: new(ui.Int),
		TokensOwed0:              new(ui.Int),
		TokensOwed1:              new(ui.Int),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		Liquidity:                i.Liquidity.Clone(),
		FeeGrowthInside0LastX128: i.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: i.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              i.TokensOwed0.Clone(),
		TokensOwed1:              i.TokensOwed1.Clone(),
	}
}

// Update applies a liquidity delta and credits the fees accrued since the
// last touch, atomically. Fee credit rounds down; underpayment of at most
// one unit per touch is accepted.
func (i *Info) Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *ui.Int) error {
	var liquidityNext *ui.Int
	if liquidityDelta.IsZero() {
		if i.Liquidity.IsZero() {
			return ErrEmptyPoke
		}
		liquidityNext = i.Liquidity
	} else {
		var err error
		liquidityNext, err = liquidity.AddDelta(i.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	// accumulator differences wrap
	delta0 := new(ui.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128)
	delta1 := new(ui.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128)
	owed0, err := fullmath.MulDiv(delta0, i.Liquidity, cons.Q128)
	if err != nil {
		return err
	}
	owed1, err := fullmath.MulDiv(delta1, i.Liquidity, cons.Q128)
	if err != nil {
		return err
	}

	i.Liquidity = liquidityNext
	i.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	i.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	i.TokensOwed0.Add(i.TokensOwed0, owed0)
	i.TokensOwed1.Add(i.TokensOwed1, owed1)
	return nil
}

// Ledger owns the position table, keyed by owner and tick range.
type Ledger struct {
	positions map[string]*Info
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]*Info)}
}

func (l *Ledger) Clone() *Ledger {
	positions := make(map[string]*Info, len(l.positions))
	for k, v := range l.positions {
		positions[k] = v.Clone()
	}
	return &Ledger{positions: positions}
}

func key(owner string, lower, upper int) string {
	return fmt.Sprintf("%s:%d:%d", owner, lower, upper)
}

// Get returns the position for (owner, lower, upper), creating a zero
// entry if absent.
func (l *Ledger) Get(owner string, lower, upper int) *Info {
	k := key(owner, lower, upper)
	info, ok := l.positions[k]
	if !ok {
		info = newInfo()
		l.positions[k] = info
	}
	return info
}
