package oracle

import (
	"testing"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(5)
	assert.Equal(t, uint16(1), cardinality)
	assert.Equal(t, uint16(1), cardinalityNext)

	obs := o.At(0)
	assert.Equal(t, uint32(5), obs.BlockTimestamp)
	assert.True(t, obs.Initialized)
	assert.Zero(t, obs.TickCumulative)
	assert.True(t, obs.SecondsPerLiquidityCumulativeX128.IsZero())
}

func TestWriteAccumulates(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)

	// 10 seconds at tick 5, liquidity 4
	index, cardinality := o.Write(0, 10, 5, ui.NewInt(4), cardinality, cardinalityNext)
	assert.Equal(t, uint16(0), index, "single slot overwrites in place")
	assert.Equal(t, uint16(1), cardinality)

	obs := o.At(0)
	assert.Equal(t, int64(50), obs.TickCumulative)
	wantSPL := new(ui.Int).Lsh(ui.NewInt(10), 128)
	wantSPL.Div(wantSPL, ui.NewInt(4))
	assert.Zero(t, obs.SecondsPerLiquidityCumulativeX128.Cmp(wantSPL))
}

func TestWriteOncePerTimestamp(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(100)
	index, cardinality := o.Write(0, 100, 7, ui.NewInt(1), cardinality, cardinalityNext)
	assert.Equal(t, uint16(0), index)
	obs := o.At(0)
	assert.Zero(t, obs.TickCumulative, "same-timestamp write is a no-op")
}

func TestWriteZeroLiquidityCountsAsOne(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)
	o.Write(0, 8, 0, new(ui.Int), cardinality, cardinalityNext)
	obs := o.At(0)
	wantSPL := new(ui.Int).Lsh(ui.NewInt(8), 128)
	assert.Zero(t, obs.SecondsPerLiquidityCumulativeX128.Cmp(wantSPL))
}

func TestGrowAndRingAdvance(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)

	_, err := New().Grow(0, 5)
	assert.ErrorIs(t, err, ErrNotInitialized)

	cardinalityNext, err = o.Grow(cardinalityNext, 3)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), cardinalityNext)

	// shrinking is a no-op
	got, err := o.Grow(cardinalityNext, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), got)

	index := uint16(0)
	index, cardinality = o.Write(index, 1, 1, ui.NewInt(1), cardinality, cardinalityNext)
	assert.Equal(t, uint16(1), index)
	assert.Equal(t, uint16(3), cardinality, "cardinality bumps when reserved room exists")

	index, cardinality = o.Write(index, 2, 1, ui.NewInt(1), cardinality, cardinalityNext)
	index, cardinality = o.Write(index, 3, 1, ui.NewInt(1), cardinality, cardinalityNext)
	assert.Equal(t, uint16(0), index, "ring wraps to slot 0")
	assert.Equal(t, uint16(3), cardinality)
}

func TestObserveSingleCurrent(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)
	index, cardinality := o.Write(0, 10, 5, ui.NewInt(1), cardinality, cardinalityNext)

	// exact latest
	tc, _, err := o.ObserveSingle(10, 0, 5, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(50), tc)

	// stale latest is transformed forward
	tc, _, err = o.ObserveSingle(14, 0, 5, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(70), tc)
}

func TestObserveSingleInterpolates(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)
	cardinalityNext, err := o.Grow(cardinalityNext, 4)
	require.NoError(t, err)

	index := uint16(0)
	// tick 0 for 10s, then tick 10 for 10s
	index, cardinality = o.Write(index, 10, 0, ui.NewInt(1), cardinality, cardinalityNext)
	index, cardinality = o.Write(index, 20, 10, ui.NewInt(1), cardinality, cardinalityNext)

	// boundary hit: exact observation
	tc, _, err := o.ObserveSingle(20, 10, 10, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tc)

	// midpoint of the second interval: 0 + 10*5
	tc, _, err = o.ObserveSingle(20, 5, 10, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(50), tc)

	// full window
	tc, _, err = o.ObserveSingle(20, 20, 10, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tc)
}

func TestObserveFailsBeyondOldest(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(100)
	index, cardinality := o.Write(0, 110, 1, ui.NewInt(1), cardinality, cardinalityNext)

	// single-slot ring: only the entry at 110 is retained
	_, _, err := o.ObserveSingle(110, 20, 1, index, ui.NewInt(1), cardinality)
	assert.ErrorIs(t, err, ErrTargetTooOld)

	// batched form fails identically, never clamps
	_, _, err = o.Observe(110, []uint32{0, 20}, 1, index, ui.NewInt(1), cardinality)
	assert.ErrorIs(t, err, ErrTargetTooOld)
}

func TestObserveBatchOrder(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)
	cardinalityNext, err := o.Grow(cardinalityNext, 2)
	require.NoError(t, err)
	index, cardinality := o.Write(0, 10, 3, ui.NewInt(1), cardinality, cardinalityNext)

	tcs, spls, err := o.Observe(10, []uint32{0, 10}, 3, index, ui.NewInt(1), cardinality)
	require.NoError(t, err)
	require.Len(t, tcs, 2)
	require.Len(t, spls, 2)
	assert.Equal(t, int64(30), tcs[0])
	assert.Equal(t, int64(0), tcs[1])
}

func TestTimeWeightedAverageTick(t *testing.T) {
	o := New()
	cardinality, cardinalityNext := o.Initialize(0)
	cardinalityNext, err := o.Grow(cardinalityNext, 8)
	require.NoError(t, err)

	index := uint16(0)
	index, cardinality = o.Write(index, 100, -50, ui.NewInt(10), cardinality, cardinalityNext)
	index, cardinality = o.Write(index, 200, 150, ui.NewInt(10), cardinality, cardinalityNext)

	// average over [100, 200]: tick was 150 the whole interval
	tcs, _, err := o.Observe(200, []uint32{100, 0}, 150, index, ui.NewInt(10), cardinality)
	require.NoError(t, err)
	avg := (tcs[1] - tcs[0]) / 100
	assert.Equal(t, int64(150), avg)
}

func TestLTEWraparound(t *testing.T) {
	// time has wrapped: 5 is "now", 2^32-10 is in the recent past
	old := uint32(0xfffffff6)
	assert.True(t, lte(5, old, 3))
	assert.False(t, lte(5, 3, old))
	assert.True(t, lte(5, 3, 4))
	assert.True(t, lte(5, old, old))
}
