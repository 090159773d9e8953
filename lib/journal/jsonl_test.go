package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)

	first := []Event{
		{Seq: 1, Timestamp: 1000, Op: OpInitialize, Pool: "pool", Amount0: "0", Amount1: "0", SqrtPriceX96: "79228162514264337593543950336", Liquidity: "0"},
		{Seq: 2, Timestamp: 1000, Op: OpMint, Pool: "pool", Owner: "alice", TickLower: -600, TickUpper: 600, Amount0: "30000", Amount1: "30000", SqrtPriceX96: "79228162514264337593543950336", Liquidity: "1000000"},
	}
	require.NoError(t, s.PutEventBatch(context.Background(), first))

	second := []Event{
		{Seq: 3, Timestamp: 1010, Op: OpSwap, Pool: "pool", Recipient: "alice", Amount0: "1000", Amount1: "-996", SqrtPriceX96: "79228083434018769798876424670", Tick: -1, Liquidity: "1000000"},
	}
	require.NoError(t, s.PutEventBatch(context.Background(), second))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var got []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, got, 3)
	assert.Equal(t, OpInitialize, got[0].Op)
	assert.Equal(t, "alice", got[1].Owner)
	assert.Equal(t, "-996", got[2].Amount1)
	assert.Equal(t, uint64(3), got[2].Seq)
}

func TestJsonlStorageEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := NewJsonlStorage(path)
	require.NoError(t, s.PutEventBatch(context.Background(), nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file created for an empty batch")
}
