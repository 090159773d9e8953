package pool

import ui "github.com/holiman/uint256"

// MintCallback must transfer the owed token amounts to the pool before
// returning. data is the opaque payload given to Mint.
type MintCallback interface {
	MintCallback(amount0Owed, amount1Owed *ui.Int, data []byte) error
}

// SwapCallback must transfer the owed input token to the pool before
// returning. Deltas are signed from the pool's perspective: positive is
// owed to the pool, negative was already sent to the recipient.
type SwapCallback interface {
	SwapCallback(amount0Delta, amount1Delta *ui.Int, data []byte) error
}

// FlashCallback must return the borrowed amounts plus fees to the pool
// before returning.
type FlashCallback interface {
	FlashCallback(fee0, fee1 *ui.Int, data []byte) error
}
