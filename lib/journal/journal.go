// Package journal records every pool operation as an append-only event
// stream, for replay and offline analysis.
package journal

import "context"

// Event is one executed pool operation. Token amounts are signed decimal
// strings from the pool's perspective.
type Event struct {
	Seq       uint64 `json:"seq"`
	Timestamp uint32 `json:"timestamp"`
	Op        string `json:"op"`
	Pool      string `json:"pool"`
	Owner     string `json:"owner,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	TickLower int    `json:"tick_lower,omitempty"`
	TickUpper int    `json:"tick_upper,omitempty"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`

	// pool state after the operation
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int    `json:"tick"`
	Liquidity    string `json:"liquidity"`
}

// Operation names as they appear in the stream.
const (
	OpInitialize = "initialize"
	OpMint       = "mint"
	OpBurn       = "burn"
	OpCollect    = "collect"
	OpSwap       = "swap"
	OpFlash      = "flash"
)

// Storage is a sink for event batches.
type Storage interface {
	PutEventBatch(ctx context.Context, events []Event) error
}

// Multi fans batches out to several sinks, stopping at the first failure.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []Event) error {
	for _, s := range m {
		if err := s.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
