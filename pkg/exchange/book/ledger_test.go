package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ethbtc = Pair{Base: "ETH", Quote: "BTC"}

func mustOrder(t *testing.T, side Side, pair Pair, price, qty float64, ts, owner string) *Order {
	t.Helper()
	o, err := NewOrder(side, pair, price, qty, ts, owner)
	require.NoError(t, err)
	return o
}

func TestNewOrderRejectsNegatives(t *testing.T) {
	_, err := NewOrder(Ask, ethbtc, -1, 5, "t1", OwnerDataset)
	require.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewOrder(Bid, ethbtc, 1, -5, "t1", OwnerDataset)
	require.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewOrder(Ask, ethbtc, 0, 0, "t1", OwnerDataset)
	require.NoError(t, err)
}

func TestLedgerBoundaries(t *testing.T) {
	dogeusdt := Pair{Base: "DOGE", Quote: "USDT"}
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
		mustOrder(t, Bid, ethbtc, 9, 1, "t1", OwnerDataset),
		mustOrder(t, Ask, dogeusdt, 2, 1, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 11, 1, "t2", OwnerDataset),
		mustOrder(t, Bid, ethbtc, 8, 1, "t3", OwnerDataset),
	})

	assert.Equal(t, 3, l.Timestamps())
	assert.Equal(t, "t1", l.CurrentTimestamp())
	// Pair list is sorted for deterministic iteration.
	assert.Equal(t, []Pair{dogeusdt, ethbtc}, l.KnownPairs())

	asks := l.CurrentOrders(Ask, ethbtc)
	require.Len(t, asks, 1)
	assert.Equal(t, 10.0, asks[0].Price)

	bids := l.CurrentOrders(Bid, ethbtc)
	require.Len(t, bids, 1)
	assert.Equal(t, 9.0, bids[0].Price)
}

func TestLedgerAdvanceWraps(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 10, 1, "t2", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 10, 1, "t3", OwnerDataset),
	})

	assert.Equal(t, "t2", l.Advance())
	assert.Equal(t, "t3", l.Advance())
	// Past the end: wrap to the first boundary, no error.
	assert.Equal(t, "t1", l.Advance())
	assert.Equal(t, "t2", l.Advance())
}

func TestLedgerSingleTimestampWrapsToItself(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
	})
	assert.Equal(t, "t1", l.Advance())
	assert.Equal(t, "t1", l.Advance())
}

func TestLedgerEmpty(t *testing.T) {
	l := NewLedger(nil)
	assert.Equal(t, "", l.CurrentTimestamp())
	assert.Equal(t, "", l.Advance())
	assert.Empty(t, l.CurrentOrders(Ask, ethbtc))
	assert.Empty(t, l.KnownPairs())
}

func TestLedgerInsertVisibleAtCurrentTimestamp(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 11, 1, "t2", OwnerDataset),
	})

	live := mustOrder(t, Bid, ethbtc, 10, 1, "t1", OwnerBot)
	l.Insert(live)

	// Visible in the current block right away.
	bids := l.CurrentOrders(Bid, ethbtc)
	require.Len(t, bids, 1)
	assert.Same(t, live, bids[0])

	// Later boundaries shifted, not corrupted: t2 still holds its own order.
	assert.Equal(t, "t2", l.Advance())
	asks := l.CurrentOrders(Ask, ethbtc)
	require.Len(t, asks, 1)
	assert.Equal(t, 11.0, asks[0].Price)
	assert.Empty(t, l.CurrentOrders(Bid, ethbtc))

	// The inserted order is seen again once the loop wraps to t1.
	assert.Equal(t, "t1", l.Advance())
	require.Len(t, l.CurrentOrders(Bid, ethbtc), 1)
}

func TestLedgerInsertRegistersNewPair(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
	})

	dogeusdt := Pair{Base: "DOGE", Quote: "USDT"}
	l.Insert(mustOrder(t, Bid, dogeusdt, 2, 1, "t1", OwnerUser))

	assert.Equal(t, []Pair{dogeusdt, ethbtc}, l.KnownPairs())
}

func TestLedgerInsertAtLastTimestamp(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 10, 1, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 11, 1, "t2", OwnerDataset),
	})
	l.Advance()

	l.Insert(mustOrder(t, Bid, ethbtc, 11, 2, "t2", OwnerUser))
	require.Len(t, l.CurrentOrders(Bid, ethbtc), 1)
	assert.Equal(t, 3, l.Len())

	// Earlier boundary untouched.
	assert.Equal(t, "t1", l.Advance())
	require.Len(t, l.CurrentOrders(Ask, ethbtc), 1)
}
