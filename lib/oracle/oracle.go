// Package oracle stores time-weighted accumulator snapshots in a growable
// ring buffer and answers historical queries by binary search and linear
// interpolation. Timestamps are 32-bit and comparisons are wraparound-safe;
// the cumulative fields overflow intentionally, so only differences between
// two readings carry meaning.
package oracle

import (
	"errors"

	ui "github.com/holiman/uint256"
)

var (
	// ErrTargetTooOld means the requested time predates the oldest
	// retained observation. Never silently clamped.
	ErrTargetTooOld = errors.New("oracle: target predates oldest observation")
	// ErrNotInitialized means the ring has no observations yet.
	ErrNotInitialized = errors.New("oracle: not initialized")
)

// Observation is one ring-buffer slot.
type Observation struct {
	BlockTimestamp uint32
	// tick * elapsed seconds, accumulated over the pool's life
	TickCumulative int64
	// elapsed seconds / in-range liquidity, Q128, accumulated
	SecondsPerLiquidityCumulativeX128 *ui.Int
	Initialized                       bool
}

func (o Observation) clone() Observation {
	c := o
	if o.SecondsPerLiquidityCumulativeX128 != nil {
		c.SecondsPerLiquidityCumulativeX128 = o.SecondsPerLiquidityCumulativeX128.Clone()
	}
	return c
}

// transform advances an observation to a later timestamp at a constant tick
// and liquidity. Both accumulators wrap.
func transform(last Observation, blockTimestamp uint32, tick int, liquidity *ui.Int) Observation {
	delta := blockTimestamp - last.BlockTimestamp

	liq := liquidity
	if liq.IsZero() {
		liq = one
	}
	splDelta := new(ui.Int).Lsh(ui.NewInt(uint64(delta)), 128)
	splDelta.Div(splDelta, liq)

	return Observation{
		BlockTimestamp:                    blockTimestamp,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: new(ui.Int).Add(last.SecondsPerLiquidityCumulativeX128, splDelta),
		Initialized:                       true,
	}
}

var one = ui.NewInt(1)

// Oracle owns the observation ring. Cardinality (slots in use) and
// cardinalityNext (slots allocated) are kept by the pool's slot0 and passed
// in, mirroring how the ring is driven by pool state.
type Oracle struct {
	observations []Observation
}

func New() *Oracle {
	return &Oracle{}
}

func (o *Oracle) Clone() *Oracle {
	obs := make([]Observation, len(o.observations))
	for i, ob := range o.observations {
		obs[i] = ob.clone()
	}
	return &Oracle{observations: obs}
}

// At returns a copy of the observation in a slot.
func (o *Oracle) At(index uint16) Observation {
	return o.observations[index].clone()
}

// Initialize writes the first slot and returns the initial cardinality and
// cardinalityNext, both 1.
func (o *Oracle) Initialize(time uint32) (cardinality, cardinalityNext uint16) {
	o.observations = []Observation{{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: new(ui.Int),
		Initialized:                       true,
	}}
	return 1, 1
}

// Write records a new observation, at most once per distinct timestamp.
// Cardinality grows by one when the ring is full and room has been reserved
// via Grow. Returns the updated index and cardinality.
func (o *Oracle) Write(index uint16, blockTimestamp uint32, tick int, liquidity *ui.Int, cardinality, cardinalityNext uint16) (indexUpdated, cardinalityUpdated uint16) {
	last := o.observations[index]
	if last.BlockTimestamp == blockTimestamp {
		return index, cardinality
	}

	if cardinalityNext > cardinality && index == cardinality-1 {
		cardinalityUpdated = cardinalityNext
	} else {
		cardinalityUpdated = cardinality
	}
	indexUpdated = (index + 1) % cardinalityUpdated
	o.observations[indexUpdated] = transform(last, blockTimestamp, tick, liquidity)
	return indexUpdated, cardinalityUpdated
}

// Grow reserves ring capacity up to next slots. No-op when next is not
// larger. New slots are pre-touched so the write that first uses them does
// not pay the allocation.
func (o *Oracle) Grow(current, next uint16) (uint16, error) {
	if len(o.observations) == 0 || current == 0 {
		return 0, ErrNotInitialized
	}
	if next <= current {
		return current, nil
	}
	for i := current; i < next; i++ {
		o.observations = append(o.observations, Observation{
			BlockTimestamp:                    1,
			SecondsPerLiquidityCumulativeX128: new(ui.Int),
		})
	}
	return next, nil
}

// lte is a wraparound-safe "a came at or before b", both relative to a
// current time that may itself have wrapped past either.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdj := uint64(a)
	if a <= time {
		aAdj += 1 << 32
	}
	bAdj := uint64(b)
	if b <= time {
		bAdj += 1 << 32
	}
	return aAdj <= bAdj
}

// binarySearch finds the two initialized observations bracketing the target
// timestamp. The ring is chronologically ordered modulo its length; the
// caller has already established that the target is within the retained
// window.
func (o *Oracle) binarySearch(time uint32, target uint32, index, cardinality uint16) (beforeOrAt, atOrAfter Observation) {
	l := (uint32(index) + 1) % uint32(cardinality) // oldest slot
	r := l + uint32(cardinality) - 1               // newest slot

	for {
		i := (l + r) / 2
		beforeOrAt = o.observations[i%uint32(cardinality)]

		// skip slots that are allocated but not yet written
		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}

		atOrAfter = o.observations[(i+1)%uint32(cardinality)]
		targetAtOrAfter := lte(time, beforeOrAt.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, atOrAfter.BlockTimestamp) {
			return beforeOrAt, atOrAfter
		}
		if !targetAtOrAfter {
			r = i - 1
		} else {
			l = i + 1
		}
	}
}

// getSurroundingObservations returns the observations at or before and at
// or after the target. If the target is at or after the newest observation
// the newest is transformed forward instead of searching.
func (o *Oracle) getSurroundingObservations(time, target uint32, tick int, index uint16, liquidity *ui.Int, cardinality uint16) (beforeOrAt, atOrAfter Observation, err error) {
	beforeOrAt = o.observations[index]

	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, Observation{}, nil
		}
		return beforeOrAt, transform(beforeOrAt, target, tick, liquidity), nil
	}

	// target is before the newest: the oldest must not be after it
	beforeOrAt = o.observations[(uint32(index)+1)%uint32(cardinality)]
	if !beforeOrAt.Initialized {
		beforeOrAt = o.observations[0]
	}
	if !lte(time, beforeOrAt.BlockTimestamp, target) {
		return Observation{}, Observation{}, ErrTargetTooOld
	}

	beforeOrAt, atOrAfter = o.binarySearch(time, target, index, cardinality)
	return beforeOrAt, atOrAfter, nil
}

// ObserveSingle returns the accumulator values as of secondsAgo before
// time. secondsAgo == 0 returns the current values, transforming the newest
// observation if it is stale; historic targets interpolate linearly between
// the bracketing observations.
func (o *Oracle) ObserveSingle(time uint32, secondsAgo uint32, tick int, index uint16, liquidity *ui.Int, cardinality uint16) (tickCumulative int64, secondsPerLiquidityCumulativeX128 *ui.Int, err error) {
	if cardinality == 0 || len(o.observations) == 0 {
		return 0, nil, ErrNotInitialized
	}

	if secondsAgo == 0 {
		last := o.observations[index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}

	target := time - secondsAgo
	beforeOrAt, atOrAfter, err := o.getSurroundingObservations(time, target, tick, index, liquidity, cardinality)
	if err != nil {
		return 0, nil, err
	}

	if target == beforeOrAt.BlockTimestamp {
		return beforeOrAt.TickCumulative, beforeOrAt.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}
	if target == atOrAfter.BlockTimestamp {
		return atOrAfter.TickCumulative, atOrAfter.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}

	obsDelta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
	targetDelta := target - beforeOrAt.BlockTimestamp

	tickCumulative = beforeOrAt.TickCumulative +
		(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(obsDelta)*int64(targetDelta)

	splDelta := new(ui.Int).Sub(atOrAfter.SecondsPerLiquidityCumulativeX128, beforeOrAt.SecondsPerLiquidityCumulativeX128)
	splDelta.Mul(splDelta, ui.NewInt(uint64(targetDelta)))
	splDelta.Div(splDelta, ui.NewInt(uint64(obsDelta)))
	secondsPerLiquidityCumulativeX128 = new(ui.Int).Add(beforeOrAt.SecondsPerLiquidityCumulativeX128, splDelta)
	return tickCumulative, secondsPerLiquidityCumulativeX128, nil
}

// Observe is the batched form of ObserveSingle, results in input order.
func (o *Oracle) Observe(time uint32, secondsAgos []uint32, tick int, index uint16, liquidity *ui.Int, cardinality uint16) ([]int64, []*ui.Int, error) {
	tickCumulatives := make([]int64, len(secondsAgos))
	secondsPerLiquidityCumulatives := make([]*ui.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		tc, spl, err := o.ObserveSingle(time, secondsAgo, tick, index, liquidity, cardinality)
		if err != nil {
			return nil, nil, err
		}
		tickCumulatives[i] = tc
		secondsPerLiquidityCumulatives[i] = spl
	}
	return tickCumulatives, secondsPerLiquidityCumulatives, nil
}
