// Package bitmap tracks initialized ticks in packed 256-bit words, one bit
// per tick spacing unit, so the swap loop can find the next active tick
// boundary with a single word scan.
package bitmap

import (
	"errors"
	"math/bits"

	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	ui "github.com/holiman/uint256"
)

var ErrTickMisaligned = errors.New("bitmap: tick not a multiple of tick spacing")

// Bitmap is a sparse map from word index to a 256-bit word. Bit b of word w
// is set iff compressed tick w*256+b is initialized.
type Bitmap struct {
	words map[int16]*ui.Int
}

func New() *Bitmap {
	return &Bitmap{words: make(map[int16]*ui.Int)}
}

func (b *Bitmap) Clone() *Bitmap {
	words := make(map[int16]*ui.Int, len(b.words))
	for k, v := range b.words {
		words[k] = v.Clone()
	}
	return &Bitmap{words: words}
}

// compress maps a tick to its spacing-normalized index, rounding toward
// negative infinity.
func compress(tick, tickSpacing int) int {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}
	return compressed
}

func position(compressed int) (wordPos int16, bitPos uint) {
	return int16(compressed >> 8), uint(compressed & 0xff)
}

func (b *Bitmap) word(wordPos int16) *ui.Int {
	if w, ok := b.words[wordPos]; ok {
		return w
	}
	return cons.Zero
}

// FlipTick toggles the initialized bit for tick. The tick must be aligned
// to the spacing; flips always pair one-to-one with ledger activation and
// deactivation events.
func (b *Bitmap) FlipTick(tick, tickSpacing int) error {
	if tick%tickSpacing != 0 {
		return ErrTickMisaligned
	}
	wordPos, bitPos := position(tick / tickSpacing)
	mask := new(ui.Int).Lsh(cons.One, bitPos)
	word, ok := b.words[wordPos]
	if !ok {
		word = new(ui.Int)
		b.words[wordPos] = word
	}
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b.words, wordPos)
	}
	return nil
}

// IsInitialized reports whether the aligned tick's bit is set.
func (b *Bitmap) IsInitialized(tick, tickSpacing int) bool {
	if tick%tickSpacing != 0 {
		return false
	}
	wordPos, bitPos := position(tick / tickSpacing)
	mask := new(ui.Int).Lsh(cons.One, bitPos)
	return !mask.And(mask, b.word(wordPos)).IsZero()
}

// NextInitializedTickWithinOneWord returns the next initialized tick at or
// toward the chosen side of tick, looking no further than the 256-tick word
// the search starts in. Searching left (lte) includes tick itself; searching
// right starts one compressed tick above it. When the word holds no set bit
// the word's boundary tick is returned with initialized == false so the
// caller can continue from there.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int, lte bool) (next int, initialized bool) {
	compressed := compress(tick, tickSpacing)

	if lte {
		wordPos, bitPos := position(compressed)
		// bits at or below bitPos
		mask := new(ui.Int).Lsh(cons.One, bitPos+1)
		mask.Sub(mask, cons.One)
		masked := new(ui.Int).And(b.word(wordPos), mask)

		if !masked.IsZero() {
			msb := uint(masked.BitLen() - 1)
			return (compressed - int(bitPos-msb)) * tickSpacing, true
		}
		return (compressed - int(bitPos)) * tickSpacing, false
	}

	compressed++
	wordPos, bitPos := position(compressed)
	// bits at or above bitPos
	mask := new(ui.Int).Lsh(cons.One, bitPos)
	mask.Sub(mask, cons.One)
	mask.Not(mask)
	masked := new(ui.Int).And(b.word(wordPos), mask)

	if !masked.IsZero() {
		lsb := leastSignificantBit(masked)
		return (compressed + int(lsb-bitPos)) * tickSpacing, true
	}
	return (compressed + int(255-bitPos)) * tickSpacing, false
}

func leastSignificantBit(x *ui.Int) uint {
	for i := 0; i < 4; i++ {
		if x[i] != 0 {
			return uint(i*64 + bits.TrailingZeros64(x[i]))
		}
	}
	return 0
}
