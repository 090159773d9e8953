// Package token defines the external asset ledger the pool settles
// against. The engine needs only balance reads and transfers; both are
// fallible and always checked.
package token

import (
	"errors"
	"fmt"

	ui "github.com/holiman/uint256"
)

var ErrInsufficientBalance = errors.New("token: insufficient balance")

// Ledger is the pool's view of one asset's balances.
type Ledger interface {
	// BalanceOf returns the holder's balance.
	BalanceOf(holder string) (*ui.Int, error)
	// Transfer moves amount from one holder to another.
	Transfer(from, to string, amount *ui.Int) error
}

// MemLedger is an in-memory Ledger used by tests and the simulator.
type MemLedger struct {
	symbol   string
	balances map[string]*ui.Int
}

func NewMemLedger(symbol string) *MemLedger {
	return &MemLedger{symbol: symbol, balances: make(map[string]*ui.Int)}
}

func (m *MemLedger) Symbol() string { return m.symbol }

// Mint credits a holder out of thin air.
func (m *MemLedger) Mint(holder string, amount *ui.Int) {
	m.balances[holder] = new(ui.Int).Add(m.balance(holder), amount)
}

func (m *MemLedger) balance(holder string) *ui.Int {
	if b, ok := m.balances[holder]; ok {
		return b
	}
	return new(ui.Int)
}

func (m *MemLedger) BalanceOf(holder string) (*ui.Int, error) {
	return m.balance(holder).Clone(), nil
}

func (m *MemLedger) Transfer(from, to string, amount *ui.Int) error {
	fromBalance := m.balance(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %v, needs %v of %s", ErrInsufficientBalance, from, fromBalance, amount, m.symbol)
	}
	m.balances[from] = new(ui.Int).Sub(fromBalance, amount)
	m.balances[to] = new(ui.Int).Add(m.balance(to), amount)
	return nil
}
