// Package scenario replays a recorded transaction trace against a pool and
// journals the outcome of every operation.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	ui "github.com/holiman/uint256"
)

// TransactionInput is the wire form of one trace entry. Amounts are decimal
// strings so traces survive any JSON number precision.
type TransactionInput struct {
	Type         string `json:"type"`
	Timestamp    uint32 `json:"timestamp"`
	Owner        string `json:"owner,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Amount0      string `json:"amount0,omitempty"`
	Amount1      string `json:"amount1,omitempty"`
	SqrtPriceX96 string `json:"sqrtPriceX96,omitempty"`
	TickLower    int    `json:"tickLower,omitempty"`
	TickUpper    int    `json:"tickUpper,omitempty"`
	ZeroForOne   bool   `json:"zeroForOne,omitempty"`
}

// Transaction is one parsed trace entry.
type Transaction struct {
	Type         string
	Timestamp    uint32
	Owner        string
	Recipient    string
	Amount       *ui.Int
	Amount0      *ui.Int
	Amount1      *ui.Int
	SqrtPriceX96 *ui.Int
	TickLower    int
	TickUpper    int
	ZeroForOne   bool
}

func parseAmount(s string) (*ui.Int, error) {
	if s == "" {
		return new(ui.Int), nil
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	v, err := ui.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

func (in TransactionInput) parse() (Transaction, error) {
	tx := Transaction{
		Type:       in.Type,
		Timestamp:  in.Timestamp,
		Owner:      in.Owner,
		Recipient:  in.Recipient,
		TickLower:  in.TickLower,
		TickUpper:  in.TickUpper,
		ZeroForOne: in.ZeroForOne,
	}
	var err error
	if tx.Amount, err = parseAmount(in.Amount); err != nil {
		return tx, fmt.Errorf("amount: %w", err)
	}
	if tx.Amount0, err = parseAmount(in.Amount0); err != nil {
		return tx, fmt.Errorf("amount0: %w", err)
	}
	if tx.Amount1, err = parseAmount(in.Amount1); err != nil {
		return tx, fmt.Errorf("amount1: %w", err)
	}
	if in.SqrtPriceX96 != "" {
		if tx.SqrtPriceX96, err = ui.FromDecimal(in.SqrtPriceX96); err != nil {
			return tx, fmt.Errorf("sqrtPriceX96: %w", err)
		}
	}
	return tx, nil
}

// Load reads a JSON array of trace entries.
func Load(path string) ([]Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var inputs []TransactionInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	txs := make([]Transaction, 0, len(inputs))
	for i, in := range inputs {
		tx, err := in.parse()
		if err != nil {
			return nil, fmt.Errorf("scenario entry %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
