package book

import "sort"

// Ledger holds the full order set partitioned by timestamp. Orders are kept in
// one slice sorted ascending by timestamp (a precondition the feed enforces);
// boundaries records the index of the first order of each distinct timestamp
// in encounter order, so a step never rescans the whole set.
type Ledger struct {
	orders     []*Order
	boundaries []int
	pos        int // index into boundaries for the current timestamp
	pairs      []Pair
}

// NewLedger indexes a timestamp-sorted order sequence. The distinct pair list
// is sorted for deterministic per-step iteration.
func NewLedger(orders []*Order) *Ledger {
	l := &Ledger{orders: orders}

	seen := make(map[Pair]bool)
	last := ""
	for i, o := range orders {
		if i == 0 || o.Timestamp != last {
			l.boundaries = append(l.boundaries, i)
			last = o.Timestamp
		}
		if !seen[o.Pair] {
			seen[o.Pair] = true
			l.pairs = append(l.pairs, o.Pair)
		}
	}
	sort.Slice(l.pairs, func(i, j int) bool {
		return l.pairs[i].String() < l.pairs[j].String()
	})
	return l
}

// KnownPairs returns a copy of all trading pairs seen in the ledger.
func (l *Ledger) KnownPairs() []Pair {
	pairs := make([]Pair, len(l.pairs))
	copy(pairs, l.pairs)
	return pairs
}

// Len returns the total number of orders held, including inserted live orders.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// Timestamps returns the number of distinct timestamp boundaries.
func (l *Ledger) Timestamps() int {
	return len(l.boundaries)
}

// CurrentTimestamp returns the label of the current boundary, or the empty
// string for an empty ledger.
func (l *Ledger) CurrentTimestamp() string {
	if len(l.boundaries) == 0 {
		return ""
	}
	return l.orders[l.boundaries[l.pos]].Timestamp
}

// CurrentOrders returns all orders at the current boundary matching side and
// pair, in ledger order. Price sorting is the matching engine's job.
func (l *Ledger) CurrentOrders(side Side, pair Pair) []*Order {
	if len(l.boundaries) == 0 {
		return nil
	}
	var out []*Order
	for _, o := range l.orders[l.boundaries[l.pos]:l.blockEnd()] {
		if o.Side == side && o.Pair == pair {
			out = append(out, o)
		}
	}
	return out
}

// Advance moves to the next distinct timestamp, wrapping to the first boundary
// once the end is passed, and returns the new current label. Wrapping instead
// of erroring supports indefinite looped backtests; callers track loop
// completion by comparing against the first label they saw.
func (l *Ledger) Advance() string {
	if len(l.boundaries) == 0 {
		return ""
	}
	l.pos++
	if l.pos >= len(l.boundaries) {
		l.pos = 0
	}
	return l.CurrentTimestamp()
}

// Insert places a live order at the end of the current timestamp's block. It
// becomes visible on the next CurrentOrders call for this timestamp. Earlier
// boundaries are untouched; only the ones after the current position shift.
func (l *Ledger) Insert(o *Order) {
	l.registerPair(o.Pair)
	if len(l.boundaries) == 0 {
		l.orders = append(l.orders, o)
		l.boundaries = append(l.boundaries, 0)
		return
	}
	at := l.blockEnd()
	l.orders = append(l.orders, nil)
	copy(l.orders[at+1:], l.orders[at:])
	l.orders[at] = o
	for i := l.pos + 1; i < len(l.boundaries); i++ {
		l.boundaries[i]++
	}
}

// registerPair adds an unseen pair, keeping the sorted iteration order.
func (l *Ledger) registerPair(p Pair) {
	for _, known := range l.pairs {
		if known == p {
			return
		}
	}
	l.pairs = append(l.pairs, p)
	sort.Slice(l.pairs, func(i, j int) bool {
		return l.pairs[i].String() < l.pairs[j].String()
	})
}

// blockEnd returns the index one past the last order of the current timestamp.
func (l *Ledger) blockEnd() int {
	if l.pos+1 < len(l.boundaries) {
		return l.boundaries[l.pos+1]
	}
	return len(l.orders)
}
