package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerOf builds a single-timestamp ledger over the given orders.
func ledgerOf(orders ...*Order) *Ledger {
	return NewLedger(orders)
}

func TestMatchExactCross(t *testing.T) {
	ask := mustOrder(t, Ask, ethbtc, 100, 5, "t1", OwnerDataset)
	bid := mustOrder(t, Bid, ethbtc, 100, 5, "t1", OwnerDataset)
	l := ledgerOf(ask, bid)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, "t1", trades[0].Timestamp)
	assert.Equal(t, 0.0, ask.Quantity)
	assert.Equal(t, 0.0, bid.Quantity)
}

func TestMatchPartialCross(t *testing.T) {
	ask := mustOrder(t, Ask, ethbtc, 100, 5, "t1", OwnerDataset)
	bid := mustOrder(t, Bid, ethbtc, 110, 3, "t1", OwnerDataset)
	l := ledgerOf(ask, bid)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	require.Len(t, trades, 1)
	// Clearing price is the resting ask's price, not the bid's.
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 3.0, trades[0].Quantity)
	assert.Equal(t, 2.0, ask.Quantity)
	assert.Equal(t, 0.0, bid.Quantity)
}

func TestMatchNoCross(t *testing.T) {
	ask := mustOrder(t, Ask, ethbtc, 110, 5, "t1", OwnerDataset)
	bid := mustOrder(t, Bid, ethbtc, 100, 5, "t1", OwnerDataset)
	l := ledgerOf(ask, bid)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	assert.Empty(t, trades)
	assert.Equal(t, 5.0, ask.Quantity)
	assert.Equal(t, 5.0, bid.Quantity)
}

func TestMatchSettlementClass(t *testing.T) {
	tests := []struct {
		name     string
		askOwner string
		bidOwner string
		want     SettlementClass
	}{
		{"both historical", OwnerDataset, OwnerDataset, SettleNone},
		{"live bid", OwnerDataset, OwnerBot, SettleBid},
		{"live ask", OwnerBot, OwnerDataset, SettleAsk},
		{"both live, bid wins", OwnerUser, OwnerBot, SettleBid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledgerOf(
				mustOrder(t, Ask, ethbtc, 100, 5, "t1", tt.askOwner),
				mustOrder(t, Bid, ethbtc, 100, 5, "t1", tt.bidOwner),
			)
			trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)
			require.Len(t, trades, 1)
			assert.Equal(t, tt.want, trades[0].Class)
			assert.Equal(t, tt.want != SettleNone, trades[0].Live())
		})
	}
}

func TestMatchPriceTimePriority(t *testing.T) {
	// Cheapest ask clears first; equal prices keep encounter order.
	first := mustOrder(t, Ask, ethbtc, 100, 2, "t1", OwnerDataset)
	second := mustOrder(t, Ask, ethbtc, 100, 2, "t1", OwnerDataset)
	pricier := mustOrder(t, Ask, ethbtc, 105, 2, "t1", OwnerDataset)
	bid := mustOrder(t, Bid, ethbtc, 105, 5, "t1", OwnerDataset)
	l := ledgerOf(pricier, first, second, bid)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	require.Len(t, trades, 3)
	assert.Equal(t, []float64{100, 100, 105}, []float64{trades[0].Price, trades[1].Price, trades[2].Price})
	assert.Equal(t, 2.0, trades[0].Quantity)
	assert.Equal(t, 2.0, trades[1].Quantity)
	assert.Equal(t, 1.0, trades[2].Quantity)
	assert.Equal(t, 0.0, first.Quantity)
	assert.Equal(t, 0.0, second.Quantity)
	assert.Equal(t, 1.0, pricier.Quantity)
}

func TestMatchMultipleBidsAgainstOneAsk(t *testing.T) {
	ask := mustOrder(t, Ask, ethbtc, 100, 10, "t1", OwnerDataset)
	high := mustOrder(t, Bid, ethbtc, 110, 4, "t1", OwnerDataset)
	low := mustOrder(t, Bid, ethbtc, 101, 4, "t1", OwnerDataset)
	l := ledgerOf(ask, low, high)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	require.Len(t, trades, 2)
	// Best bid first.
	assert.Equal(t, 4.0, trades[0].Quantity)
	assert.Equal(t, 4.0, trades[1].Quantity)
	assert.Equal(t, 2.0, ask.Quantity)
	assert.Equal(t, 0.0, high.Quantity)
	assert.Equal(t, 0.0, low.Quantity)
}

func TestMatchConservation(t *testing.T) {
	asks := []*Order{
		mustOrder(t, Ask, ethbtc, 99, 3, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 100, 2.5, "t1", OwnerDataset),
		mustOrder(t, Ask, ethbtc, 104, 7, "t1", OwnerDataset),
	}
	bids := []*Order{
		mustOrder(t, Bid, ethbtc, 103, 4, "t1", OwnerDataset),
		mustOrder(t, Bid, ethbtc, 100, 1, "t1", OwnerDataset),
		mustOrder(t, Bid, ethbtc, 98, 9, "t1", OwnerDataset),
	}
	var askTotal, bidTotal float64
	for _, o := range asks {
		askTotal += o.Quantity
	}
	for _, o := range bids {
		bidTotal += o.Quantity
	}

	l := ledgerOf(append(append([]*Order{}, asks...), bids...)...)
	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)

	var matched float64
	for _, tr := range trades {
		assert.Greater(t, tr.Quantity, 0.0)
		matched += tr.Quantity
	}
	assert.LessOrEqual(t, matched, min(askTotal, bidTotal))

	for _, o := range append(asks, bids...) {
		assert.GreaterOrEqual(t, o.Quantity, -QuantityEpsilon, "no negative quantities after matching")
	}
}

func TestMatchCumulativeCarriesUnfilled(t *testing.T) {
	ask := mustOrder(t, Ask, ethbtc, 100, 5, "t1", OwnerDataset)
	bid := mustOrder(t, Bid, ethbtc, 102, 5, "t2", OwnerDataset)
	l := NewLedger([]*Order{ask, bid})
	m := NewMatcher(MatchCumulative)

	// t1: nothing to cross yet; the ask is merged into the carried book.
	trades := m.Match(l, ethbtc)
	assert.Empty(t, trades)
	carriedAsks, carriedBids := m.CarriedDepth(ethbtc)
	assert.Equal(t, 1, carriedAsks)
	assert.Equal(t, 0, carriedBids)

	// t2: the new bid crosses the carried ask from t1.
	l.Advance()
	trades = m.Match(l, ethbtc)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, "t2", trades[0].Timestamp)
	assert.Equal(t, 0.0, ask.Quantity)

	carriedAsks, carriedBids = m.CarriedDepth(ethbtc)
	assert.Equal(t, 0, carriedAsks)
	assert.Equal(t, 0, carriedBids)
}

func TestMatchCurrentOnlyDropsUnfilled(t *testing.T) {
	l := NewLedger([]*Order{
		mustOrder(t, Ask, ethbtc, 100, 5, "t1", OwnerDataset),
		mustOrder(t, Bid, ethbtc, 102, 5, "t2", OwnerDataset),
	})
	m := NewMatcher(MatchCurrentOnly)

	assert.Empty(t, m.Match(l, ethbtc))
	l.Advance()
	// Timestamp-isolated auctions: the t1 ask is gone.
	assert.Empty(t, m.Match(l, ethbtc))
}

func TestMatchDeterminism(t *testing.T) {
	build := func() *Ledger {
		return NewLedger([]*Order{
			mustOrder(t, Ask, ethbtc, 100, 3, "t1", OwnerDataset),
			mustOrder(t, Ask, ethbtc, 100, 2, "t1", OwnerDataset),
			mustOrder(t, Bid, ethbtc, 101, 4, "t1", OwnerDataset),
			mustOrder(t, Ask, ethbtc, 99, 1, "t2", OwnerDataset),
			mustOrder(t, Bid, ethbtc, 100, 3, "t2", OwnerDataset),
		})
	}

	run := func() []Trade {
		l := build()
		m := NewMatcher(MatchCumulative)
		var all []Trade
		for i := 0; i < l.Timestamps(); i++ {
			all = append(all, m.Match(l, ethbtc)...)
			l.Advance()
		}
		return all
	}

	assert.Equal(t, run(), run())
}

func TestMatchSkipsZeroedOrders(t *testing.T) {
	// Withdrawn pending orders have their quantity zeroed; matching must
	// discard them without producing a trade.
	zeroed := mustOrder(t, Bid, ethbtc, 105, 0, "t1", OwnerBot)
	ask := mustOrder(t, Ask, ethbtc, 100, 5, "t1", OwnerDataset)
	l := ledgerOf(ask, zeroed)

	trades := NewMatcher(MatchCurrentOnly).Match(l, ethbtc)
	assert.Empty(t, trades)
	assert.Equal(t, 5.0, ask.Quantity)
}
