package position

import (
	"testing"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCreatesZeroEntry(t *testing.T) {
	l := NewLedger()
	pos := l.Get("alice", -60, 60)
	require.NotNil(t, pos)
	assert.True(t, pos.Liquidity.IsZero())

	// same key returns the same record
	pos.Liquidity = ui.NewInt(5)
	again := l.Get("alice", -60, 60)
	assert.Zero(t, again.Liquidity.Cmp(ui.NewInt(5)))

	// different owner, same range: distinct record
	other := l.Get("bob", -60, 60)
	assert.True(t, other.Liquidity.IsZero())
}

func TestUpdateRejectsEmptyPoke(t *testing.T) {
	l := NewLedger()
	pos := l.Get("alice", -60, 60)
	err := pos.Update(cons.Zero, cons.Zero, cons.Zero)
	assert.ErrorIs(t, err, ErrEmptyPoke)
}

func TestUpdateAccruesFees(t *testing.T) {
	pos := NewLedger().Get("alice", -60, 60)

	require.NoError(t, pos.Update(ui.NewInt(1000), cons.Zero, cons.Zero))
	assert.Zero(t, pos.Liquidity.Cmp(ui.NewInt(1000)))
	assert.True(t, pos.TokensOwed0.IsZero())

	// fee growth of 3 full units per unit of liquidity
	growth0 := new(ui.Int).Mul(cons.Q128, ui.NewInt(3))
	growth1 := new(ui.Int).Mul(cons.Q128, ui.NewInt(2))
	require.NoError(t, pos.Update(cons.Zero, growth0, growth1))
	assert.Zero(t, pos.TokensOwed0.Cmp(ui.NewInt(3000)))
	assert.Zero(t, pos.TokensOwed1.Cmp(ui.NewInt(2000)))

	// second poke with unchanged growth credits nothing
	require.NoError(t, pos.Update(cons.Zero, growth0, growth1))
	assert.Zero(t, pos.TokensOwed0.Cmp(ui.NewInt(3000)))
}

func TestUpdateAppliesDeltaAndFeesAtomically(t *testing.T) {
	pos := NewLedger().Get("alice", -60, 60)
	require.NoError(t, pos.Update(ui.NewInt(100), cons.Zero, cons.Zero))

	// fees accrue against the liquidity held before this update
	growth := cons.Q128.Clone()
	minus100 := new(ui.Int).Neg(ui.NewInt(100))
	require.NoError(t, pos.Update(minus100, growth, growth))
	assert.True(t, pos.Liquidity.IsZero())
	assert.Zero(t, pos.TokensOwed0.Cmp(ui.NewInt(100)))
	assert.Zero(t, pos.TokensOwed1.Cmp(ui.NewInt(100)))
}

func TestUpdateUnderflowRejected(t *testing.T) {
	pos := NewLedger().Get("alice", -60, 60)
	require.NoError(t, pos.Update(ui.NewInt(10), cons.Zero, cons.Zero))
	minus11 := new(ui.Int).Neg(ui.NewInt(11))
	err := pos.Update(minus11, cons.Zero, cons.Zero)
	assert.Error(t, err)
	// failed update leaves the position untouched
	assert.Zero(t, pos.Liquidity.Cmp(ui.NewInt(10)))
}

func TestFeeCreditRoundsDown(t *testing.T) {
	pos := NewLedger().Get("alice", -60, 60)
	require.NoError(t, pos.Update(ui.NewInt(3), cons.Zero, cons.Zero))

	// growth of 1/3 unit per liquidity: 3 * (Q128/3) / Q128 rounds to 0
	growth := new(ui.Int).Div(cons.Q128, ui.NewInt(3))
	require.NoError(t, pos.Update(cons.Zero, growth, growth))
	assert.True(t, pos.TokensOwed0.IsZero())
}
