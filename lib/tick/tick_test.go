package tick

import (
	"testing"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxLiquidityPerTick(t *testing.T) {
	tests := []struct {
		spacing int
		want    string
	}{
		{10, "1917569901783203986719870431555990"},
		{60, "11505743598341114571880798222544994"},
		{200, "38350317471085141830651933667504588"},
		// one tick per word-sized stretch of the whole domain
		{887272, "113427455640312821154458202477256070485"},
	}
	for _, tt := range tests {
		got := MaxLiquidityPerTick(tt.spacing)
		assert.Zero(t, got.Cmp(ui.MustFromDecimal(tt.want)), "spacing %d: got %v", tt.spacing, got)
	}
}

func TestUpdateFlipsOnActivationAndDeactivation(t *testing.T) {
	l := NewLedger()
	maxLiq := MaxLiquidityPerTick(60)

	flipped, err := l.Update(0, 0, ui.NewInt(100), cons.Zero, cons.Zero, cons.Zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	assert.True(t, flipped, "0 -> 100 must flip")

	flipped, err = l.Update(0, 0, ui.NewInt(50), cons.Zero, cons.Zero, cons.Zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	assert.False(t, flipped, "100 -> 150 must not flip")

	minus150 := new(ui.Int).Neg(ui.NewInt(150))
	flipped, err = l.Update(0, 0, minus150, cons.Zero, cons.Zero, cons.Zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	assert.True(t, flipped, "150 -> 0 must flip")
}

func TestUpdateCapAndUnderflow(t *testing.T) {
	l := NewLedger()
	cap := ui.NewInt(1000)

	_, err := l.Update(0, 0, ui.NewInt(1001), cons.Zero, cons.Zero, cons.Zero, 0, 0, false, cap)
	assert.ErrorIs(t, err, ErrLiquidityGrossOverflow)

	minusOne := new(ui.Int).Neg(ui.NewInt(1))
	_, err = l.Update(0, 0, minusOne, cons.Zero, cons.Zero, cons.Zero, 0, 0, false, cap)
	assert.Error(t, err, "removing from an empty tick must fail")
}

func TestUpdateSeedsOutsideBelowCurrentOnly(t *testing.T) {
	l := NewLedger()
	maxLiq := MaxLiquidityPerTick(1)
	global0 := ui.NewInt(77)
	global1 := ui.NewInt(88)
	spl := ui.NewInt(99)

	// tick at or below current: seeded with globals
	_, err := l.Update(-10, 0, ui.NewInt(1), global0, global1, spl, 42, 1000, false, maxLiq)
	require.NoError(t, err)
	info, ok := l.Get(-10)
	require.True(t, ok)
	assert.Zero(t, info.FeeGrowthOutside0X128.Cmp(global0))
	assert.Zero(t, info.FeeGrowthOutside1X128.Cmp(global1))
	assert.Zero(t, info.SecondsPerLiquidityOutsideX128.Cmp(spl))
	assert.Equal(t, int64(42), info.TickCumulativeOutside)
	assert.Equal(t, uint32(1000), info.SecondsOutside)
	assert.True(t, info.Initialized)

	// tick above current: outside fields stay zero
	_, err = l.Update(10, 0, ui.NewInt(1), global0, global1, spl, 42, 1000, false, maxLiq)
	require.NoError(t, err)
	info, ok = l.Get(10)
	require.True(t, ok)
	assert.True(t, info.FeeGrowthOutside0X128.IsZero())
	assert.True(t, info.Initialized)
}

func TestUpdateNetLiquidity(t *testing.T) {
	l := NewLedger()
	maxLiq := MaxLiquidityPerTick(1)

	// same tick as lower for one position, upper for another
	_, err := l.Update(2, 0, ui.NewInt(100), cons.Zero, cons.Zero, cons.Zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	_, err = l.Update(2, 0, ui.NewInt(30), cons.Zero, cons.Zero, cons.Zero, 0, 0, true, maxLiq)
	require.NoError(t, err)

	info, _ := l.Get(2)
	assert.Zero(t, info.LiquidityGross.Cmp(ui.NewInt(130)))
	assert.Zero(t, info.LiquidityNet.Cmp(ui.NewInt(70)), "net = 100 - 30")
}

func TestCrossFlipsOutside(t *testing.T) {
	l := NewLedger()
	maxLiq := MaxLiquidityPerTick(1)
	_, err := l.Update(5, 10, ui.NewInt(100), ui.NewInt(40), ui.NewInt(60), ui.NewInt(8), 100, 7, false, maxLiq)
	require.NoError(t, err)

	net := l.Cross(5, ui.NewInt(100), ui.NewInt(200), ui.NewInt(20), 150, 17)
	assert.Zero(t, net.Cmp(ui.NewInt(100)))

	info, _ := l.Get(5)
	assert.Zero(t, info.FeeGrowthOutside0X128.Cmp(ui.NewInt(60)), "100 - 40")
	assert.Zero(t, info.FeeGrowthOutside1X128.Cmp(ui.NewInt(140)), "200 - 60")
	assert.Zero(t, info.SecondsPerLiquidityOutsideX128.Cmp(ui.NewInt(12)))
	assert.Equal(t, int64(50), info.TickCumulativeOutside)
	assert.Equal(t, uint32(10), info.SecondsOutside)

	// crossing back restores the original frame
	l.Cross(5, ui.NewInt(100), ui.NewInt(200), ui.NewInt(20), 150, 17)
	info, _ = l.Get(5)
	assert.Zero(t, info.FeeGrowthOutside0X128.Cmp(ui.NewInt(40)))
	assert.Zero(t, info.FeeGrowthOutside1X128.Cmp(ui.NewInt(60)))
}

func TestGetFeeGrowthInside(t *testing.T) {
	l := NewLedger()
	global0 := ui.NewInt(15)
	global1 := ui.NewInt(15)

	// uninitialized boundaries, current inside: whole growth is inside
	inside0, inside1 := l.GetFeeGrowthInside(-2, 2, 0, global0, global1)
	assert.Zero(t, inside0.Cmp(global0))
	assert.Zero(t, inside1.Cmp(global1))

	// growth above the range is subtracted
	upper, _ := l.Get(2)
	upper.FeeGrowthOutside0X128 = ui.NewInt(3)
	upper.FeeGrowthOutside1X128 = ui.NewInt(4)
	inside0, inside1 = l.GetFeeGrowthInside(-2, 2, 0, global0, global1)
	assert.Zero(t, inside0.Cmp(ui.NewInt(12)))
	assert.Zero(t, inside1.Cmp(ui.NewInt(11)))

	// growth below the range is subtracted
	lower, _ := l.Get(-2)
	lower.FeeGrowthOutside0X128 = ui.NewInt(2)
	lower.FeeGrowthOutside1X128 = ui.NewInt(3)
	inside0, inside1 = l.GetFeeGrowthInside(-2, 2, 0, global0, global1)
	assert.Zero(t, inside0.Cmp(ui.NewInt(10)))
	assert.Zero(t, inside1.Cmp(ui.NewInt(8)))
}

// Accumulators wrap; differences must still come out right.
func TestGetFeeGrowthInsideWrapping(t *testing.T) {
	l := NewLedger()
	lowerInfo := l.getOrCreate(-2)
	upperInfo := l.getOrCreate(2)
	lowerInfo.FeeGrowthOutside0X128 = new(ui.Int).Sub(cons.MaxUint256, ui.NewInt(2))
	upperInfo.FeeGrowthOutside0X128 = new(ui.Int).Sub(cons.MaxUint256, ui.NewInt(1))

	inside0, _ := l.GetFeeGrowthInside(-2, 2, 0, ui.NewInt(5), cons.Zero)
	// 5 - (max-2) - (max-1) wraps to 10
	assert.Zero(t, inside0.Cmp(ui.NewInt(10)))
}

func TestClear(t *testing.T) {
	l := NewLedger()
	maxLiq := MaxLiquidityPerTick(1)
	_, err := l.Update(3, 0, ui.NewInt(1), cons.Zero, cons.Zero, cons.Zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	l.Clear(3)
	_, ok := l.Get(3)
	assert.False(t, ok)
}
