package strategy

import (
	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
	"exsim/pkg/exchange/wallet"
)

// Bot owns one StdDev strategy per trading pair and runs them all against the
// shared wallet each step. The per-pair map is built once at startup and
// iterated in a fixed order so runs stay deterministic.
type Bot struct {
	wallet     *wallet.Wallet
	pairs      []book.Pair
	strategies map[book.Pair]*StdDev
	log        *zap.SugaredLogger
}

// NewBot builds a strategy for every pair with the same tuning.
func NewBot(w *wallet.Wallet, pairs []book.Pair, cfg Config, log *zap.SugaredLogger) *Bot {
	b := &Bot{
		wallet:     w,
		pairs:      pairs,
		strategies: make(map[book.Pair]*StdDev, len(pairs)),
		log:        log,
	}
	for _, p := range pairs {
		b.strategies[p] = NewStdDev(p, w, cfg, log)
		log.Infow("bot_trading_pair", "pair", p.String())
	}
	return b
}

// Strategy returns the strategy trading pair, or nil if the bot does not
// trade it.
func (b *Bot) Strategy(pair book.Pair) *StdDev {
	return b.strategies[pair]
}

// Pairs returns the pairs the bot trades, in iteration order.
func (b *Bot) Pairs() []book.Pair {
	return b.pairs
}

// ProcessTimestamp runs every strategy against the current timestamp's views:
// clean up pending orders, feed the fresh views into the statistics, then
// decide. Placed orders are returned for the driver to insert into the
// ledger; withdrawn ones for the record.
func (b *Bot) ProcessTimestamp(l *book.Ledger) (placed []*book.Order, withdrawn []book.Order) {
	for _, pair := range b.pairs {
		s := b.strategies[pair]

		withdrawn = append(withdrawn, s.CleanupPending()...)

		asks := l.CurrentOrders(book.Ask, pair)
		bids := l.CurrentOrders(book.Bid, pair)
		s.UpdateMetrics(asks, bids)

		if o := s.DecideAndTrade(); o != nil {
			placed = append(placed, o)
			b.log.Infow("order_placed",
				"timestamp", o.Timestamp,
				"side", o.Side.String(),
				"pair", pair.String(),
				"price", o.Price,
				"amount", o.Quantity,
			)
		}
	}
	return placed, withdrawn
}
