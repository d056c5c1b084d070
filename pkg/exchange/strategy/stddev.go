// Package strategy implements the mechanical trading side of the simulation:
// a per-pair rolling-statistics rule that enters on deviation-band reversals,
// and the bot that drives one such rule per trading pair.
package strategy

import (
	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
	"exsim/pkg/exchange/wallet"
)

// Config tunes a StdDev strategy instance.
type Config struct {
	// Window caps the observation windows, per side.
	Window int
	// MinObservations is the cold-start guard: no trading until the ask
	// window holds at least this many prices.
	MinObservations int
	// RiskFraction limits each trade to this share of the available
	// crossing opportunity.
	RiskFraction float64
}

// DefaultConfig mirrors the simulation's stock bot tuning.
func DefaultConfig() Config {
	return Config{Window: 300, MinObservations: 100, RiskFraction: 0.2}
}

// bestQuote remembers the best-priced new entry of one step, kept in small
// most-recent-first histories for reversal detection.
type bestQuote struct {
	price     float64
	quantity  float64
	timestamp string
}

// StdDev trades one pair on short-window price statistics. Entry requires a
// directional reversal on top of a one-sigma band crossing; acting on the
// band alone would trade into every extreme tick of a still-worsening trend.
type StdDev struct {
	pair   book.Pair
	wallet *wallet.Wallet
	cfg    Config
	log    *zap.SugaredLogger

	askWindow *window
	bidWindow *window
	askStats  Stats
	bidStats  Stats

	// Most-recent-first best prices of each step's fresh views.
	lowestAsks  []bestQuote
	highestBids []bestQuote

	pendingAsks []*book.Order
	pendingBids []*book.Order
}

// NewStdDev builds a strategy for pair, trading against w.
func NewStdDev(pair book.Pair, w *wallet.Wallet, cfg Config, log *zap.SugaredLogger) *StdDev {
	return &StdDev{
		pair:      pair,
		wallet:    w,
		cfg:       cfg,
		log:       log,
		askWindow: newWindow(cfg.Window),
		bidWindow: newWindow(cfg.Window),
	}
}

func (s *StdDev) Pair() book.Pair { return s.pair }

// AskStats returns the current ask-side rolling statistics.
func (s *StdDev) AskStats() Stats { return s.askStats }

// BidStats returns the current bid-side rolling statistics.
func (s *StdDev) BidStats() Stats { return s.bidStats }

// Observations returns the current ask-window fill level.
func (s *StdDev) Observations() int { return s.askWindow.size() }

// CleanupPending walks the pending orders placed in earlier steps. Filled
// ones are dropped silently. Ones the market has moved away from - an ask now
// above (ask mean - 1 sigma), a bid now below (bid mean + 1 sigma) - are
// withdrawn: their reserved funds are unlocked and a copy with the original
// remaining quantity is returned for the record, while the live order's
// quantity is zeroed so the matching engine discards it.
func (s *StdDev) CleanupPending() []book.Order {
	var withdrawn []book.Order

	keepAsks := s.pendingAsks[:0]
	for _, o := range s.pendingAsks {
		switch {
		case o.Filled():
		case o.Price > s.askStats.Mean-s.askStats.OneDev:
			if err := s.wallet.Unlock(s.pair.Base, o.Quantity); err != nil {
				// Funds-tracking desync; losing one cleanup step must not
				// halt the backtest.
				s.log.Warnw("unlock_failed", "pair", s.pair.String(), "asset", s.pair.Base, "amount", o.Quantity, "err", err)
			}
			withdrawn = append(withdrawn, *o)
			o.Quantity = 0
		default:
			keepAsks = append(keepAsks, o)
		}
	}
	s.pendingAsks = keepAsks

	keepBids := s.pendingBids[:0]
	for _, o := range s.pendingBids {
		switch {
		case o.Filled():
		case o.Price < s.bidStats.Mean+s.bidStats.OneDev:
			if err := s.wallet.Unlock(s.pair.Quote, o.Quantity*o.Price); err != nil {
				s.log.Warnw("unlock_failed", "pair", s.pair.String(), "asset", s.pair.Quote, "amount", o.Quantity*o.Price, "err", err)
			}
			withdrawn = append(withdrawn, *o)
			o.Quantity = 0
		default:
			keepBids = append(keepBids, o)
		}
	}
	s.pendingBids = keepBids

	return withdrawn
}

// UpdateMetrics feeds the step's fresh ask and bid views into the observation
// windows, recomputes the rolling statistics and records the best new price
// of each side for reversal detection.
func (s *StdDev) UpdateMetrics(asks, bids []*book.Order) {
	for _, o := range asks {
		s.askWindow.push(o.Price)
	}
	for _, o := range bids {
		s.bidWindow.push(o.Price)
	}
	s.askStats = s.askWindow.stats()
	s.bidStats = s.bidWindow.stats()

	if low := book.LowestPriced(asks); low != nil {
		s.lowestAsks = append([]bestQuote{{low.Price, low.Quantity, low.Timestamp}}, s.lowestAsks...)
		if len(s.lowestAsks) > historyLen {
			s.lowestAsks = s.lowestAsks[:historyLen]
		}
	}
	if high := book.HighestPriced(bids); high != nil {
		s.highestBids = append([]bestQuote{{high.Price, high.Quantity, high.Timestamp}}, s.highestBids...)
		if len(s.highestBids) > historyLen {
			s.highestBids = s.highestBids[:historyLen]
		}
	}
}

// historyLen bounds the best-price histories; signals only ever look at the
// latest two entries.
const historyLen = 8

// DecideAndTrade checks the entry signals and places at most one order,
// locking the funds it reserves. Bid is checked first; the signals are
// mutually exclusive per step. Returns the placed order, or nil.
func (s *StdDev) DecideAndTrade() *book.Order {
	if s.askWindow.size() < s.cfg.MinObservations {
		s.log.Debugw("cold_start", "pair", s.pair.String(), "observed", s.askWindow.size(), "need", s.cfg.MinObservations)
		return nil
	}

	baseFunds := s.wallet.BalanceOf(s.pair.Base)
	quoteFunds := s.wallet.BalanceOf(s.pair.Quote)

	if s.bidSignal() && quoteFunds > book.QuantityEpsilon {
		return s.placeBid(quoteFunds)
	}
	if s.askSignal() && baseFunds > book.QuantityEpsilon {
		return s.placeAsk(baseFunds)
	}
	return nil
}

// bidSignal: the lowest ask was falling and has now crossed below the
// one-sigma band - a local bottom.
func (s *StdDev) bidSignal() bool {
	if len(s.lowestAsks) < 2 {
		return false
	}
	return s.lowestAsks[1].price > s.lowestAsks[0].price &&
		s.lowestAsks[0].price <= s.askStats.Mean-s.askStats.OneDev
}

// askSignal: the highest bid was rising and has now crossed above the
// one-sigma band - a local top.
func (s *StdDev) askSignal() bool {
	if len(s.highestBids) < 2 {
		return false
	}
	return s.highestBids[1].price < s.highestBids[0].price &&
		s.highestBids[0].price >= s.bidStats.Mean+s.bidStats.OneDev
}

// placeBid buys at the lowest new ask's price, sized against available quote
// funds and risk-limited to the configured fraction of the opportunity.
func (s *StdDev) placeBid(quoteFunds float64) *book.Order {
	best := s.lowestAsks[0]
	amount := min(best.quantity, quoteFunds/best.price) * s.cfg.RiskFraction
	if amount <= book.QuantityEpsilon {
		return nil
	}

	o, err := book.NewOrder(book.Bid, s.pair, best.price, amount, best.timestamp, book.OwnerBot)
	if err != nil {
		s.log.Warnw("bid_rejected", "pair", s.pair.String(), "err", err)
		return nil
	}
	if err := s.wallet.Lock(s.pair.Quote, amount*best.price); err != nil {
		s.log.Warnw("lock_failed", "pair", s.pair.String(), "asset", s.pair.Quote, "amount", amount*best.price, "err", err)
		return nil
	}
	s.pendingBids = append(s.pendingBids, o)
	return o
}

// placeAsk sells at the highest new bid's price, sized against available base
// funds and risk-limited to the configured fraction of the opportunity.
func (s *StdDev) placeAsk(baseFunds float64) *book.Order {
	best := s.highestBids[0]
	amount := min(baseFunds, best.quantity) * s.cfg.RiskFraction
	if amount <= book.QuantityEpsilon {
		return nil
	}

	o, err := book.NewOrder(book.Ask, s.pair, best.price, amount, best.timestamp, book.OwnerBot)
	if err != nil {
		s.log.Warnw("ask_rejected", "pair", s.pair.String(), "err", err)
		return nil
	}
	if err := s.wallet.Lock(s.pair.Base, amount); err != nil {
		s.log.Warnw("lock_failed", "pair", s.pair.String(), "asset", s.pair.Base, "amount", amount, "err", err)
		return nil
	}
	s.pendingAsks = append(s.pendingAsks, o)
	return o
}

// PendingOrders returns the currently tracked, not yet fully matched orders.
func (s *StdDev) PendingOrders() (asks, bids []*book.Order) {
	return s.pendingAsks, s.pendingBids
}
