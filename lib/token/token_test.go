package token

import (
	"testing"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLedgerTransfer(t *testing.T) {
	l := NewMemLedger("USDC")
	assert.Equal(t, "USDC", l.Symbol())

	l.Mint("alice", ui.NewInt(1000))

	require.NoError(t, l.Transfer("alice", "bob", ui.NewInt(400)))

	aliceBal, err := l.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, "600", aliceBal.Dec())

	bobBal, err := l.BalanceOf("bob")
	require.NoError(t, err)
	assert.Equal(t, "400", bobBal.Dec())
}

func TestMemLedgerInsufficientBalance(t *testing.T) {
	l := NewMemLedger("USDC")
	l.Mint("alice", ui.NewInt(100))

	err := l.Transfer("alice", "bob", ui.NewInt(101))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// the failed transfer moved nothing
	aliceBal, err2 := l.BalanceOf("alice")
	require.NoError(t, err2)
	assert.Equal(t, "100", aliceBal.Dec())

	// unknown holders have a zero balance
	carolBal, err3 := l.BalanceOf("carol")
	require.NoError(t, err3)
	assert.True(t, carolBal.IsZero())
}
