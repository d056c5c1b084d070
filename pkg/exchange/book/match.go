package book

import "sort"

// MatchMode selects how a step's order views are crossed.
type MatchMode int8

const (
	// MatchCurrentOnly crosses only the current timestamp's asks and bids
	// against each other. Fast approximation; unfilled orders are dropped.
	MatchCurrentOnly MatchMode = iota
	// MatchCumulative also crosses still-unfilled orders carried over from
	// prior timestamps, modelling a persistent book. This is the realistic
	// mode for backtests.
	MatchCumulative
)

// ParseMatchMode maps a config string to a MatchMode.
func ParseMatchMode(s string) (MatchMode, bool) {
	switch s {
	case "current":
		return MatchCurrentOnly, true
	case "cumulative":
		return MatchCumulative, true
	default:
		return 0, false
	}
}

// Matcher crosses ask and bid views for one pair per step. In cumulative mode
// it owns the carried-over unfilled orders per pair.
type Matcher struct {
	mode      MatchMode
	carryAsks map[Pair][]*Order
	carryBids map[Pair][]*Order
}

func NewMatcher(mode MatchMode) *Matcher {
	return &Matcher{
		mode:      mode,
		carryAsks: make(map[Pair][]*Order),
		carryBids: make(map[Pair][]*Order),
	}
}

func (m *Matcher) Mode() MatchMode {
	return m.mode
}

// Match crosses the current timestamp's views for pair, decrementing order
// quantities in place. Trades are returned in match order, not price order.
func (m *Matcher) Match(l *Ledger, pair Pair) []Trade {
	asks := l.CurrentOrders(Ask, pair)
	bids := l.CurrentOrders(Bid, pair)
	ts := l.CurrentTimestamp()

	// Price-time priority: ties keep ledger encounter order (stable sort).
	sortAsc(asks)
	sortDesc(bids)

	var trades []Trade
	if m.mode == MatchCurrentOnly {
		crossLists(&asks, &bids, ts, &trades)
		return trades
	}

	// Cumulative: cross the carried book against the new opposite side, then
	// merge the new side in and sort once so the carried lists stay ordered
	// regardless of timestamp.
	carriedAsks := m.carryAsks[pair]
	carriedBids := m.carryBids[pair]

	crossLists(&carriedAsks, &bids, ts, &trades)
	crossLists(&asks, &carriedBids, ts, &trades)

	carriedAsks = append(carriedAsks, asks...)
	carriedBids = append(carriedBids, bids...)
	sortAsc(carriedAsks)
	sortDesc(carriedBids)

	m.carryAsks[pair] = carriedAsks
	m.carryBids[pair] = carriedBids
	return trades
}

// CarriedDepth returns the number of carried-over unfilled asks and bids for
// pair. Always zero in current-only mode.
func (m *Matcher) CarriedDepth(pair Pair) (asks, bids int) {
	return len(m.carryAsks[pair]), len(m.carryBids[pair])
}

func sortAsc(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Price < orders[j].Price })
}

func sortDesc(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Price > orders[j].Price })
}

// crossLists walks bids outer and asks inner over two price-sorted lists,
// producing trades and removing exhausted orders from both slices.
func crossLists(asks, bids *[]*Order, ts string, trades *[]Trade) {
	a, b := *asks, *bids
	i, j := 0, 0
	for i < len(b) {
		for j < len(a) {
			// Lists are sorted, so once the bid is below the ask no later
			// ask can match this bid either.
			if b[i].Price < a[j].Price {
				break
			}

			if t, ok := cross(a[j], b[i], ts); ok {
				*trades = append(*trades, t)
			}

			if a[j].Filled() {
				// Restart the ask scan for this bid: a new best ask may
				// now be eligible.
				a = append(a[:j], a[j+1:]...)
				j = 0
			} else {
				j++
			}

			if b[i].Filled() {
				// Next bid starts over from the best ask.
				b = append(b[:i], b[i+1:]...)
				j = 0
				if i >= len(b) {
					break
				}
			}
		}
		i++
		j = 0
	}
	*asks, *bids = a, b
}

// cross settles as much quantity as possible between one ask and one bid.
// The clearing price is the resting ask's price regardless of aggressor.
func cross(ask, bid *Order, ts string) (Trade, bool) {
	qty := min(ask.Quantity, bid.Quantity)
	if qty <= QuantityEpsilon {
		return Trade{}, false
	}

	class := SettleNone
	if bid.Live() {
		class = SettleBid
	} else if ask.Live() {
		class = SettleAsk
	}

	ask.Quantity -= qty
	bid.Quantity -= qty

	return Trade{
		Pair:      ask.Pair,
		Price:     ask.Price,
		Quantity:  qty,
		Timestamp: ts,
		Class:     class,
	}, true
}
