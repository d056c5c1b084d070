// Package sim is the backtest driver. It owns the order ledger, the matching
// engine, the wallet and the bot, and processes one timestamp at a time:
// match, settle, run the strategies, insert their orders, advance.
package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
	"exsim/pkg/exchange/strategy"
	"exsim/pkg/exchange/wallet"
)

// recentTradeCap bounds the per-pair trade history kept for observers.
const recentTradeCap = 100

// StepSummary describes what one simulated timestamp produced.
type StepSummary struct {
	Step       int     `json:"step"`
	Timestamp  string  `json:"timestamp"`
	Trades     int     `json:"trades"`
	LiveTrades int     `json:"liveTrades"`
	Placed     int     `json:"placed"`
	Withdrawn  int     `json:"withdrawn"`
	Volume     float64 `json:"volume"`
	Next       string  `json:"next"`
}

// Status is a point-in-time view of the whole run.
type Status struct {
	CurrentTimestamp string `json:"currentTimestamp"`
	FirstTimestamp   string `json:"firstTimestamp"`
	Steps            int    `json:"steps"`
	Trades           int    `json:"trades"`
	LiveTrades       int    `json:"liveTrades"`
	Placed           int    `json:"placed"`
	Withdrawn        int    `json:"withdrawn"`
	Orders           int    `json:"orders"`
	Timestamps       int    `json:"timestamps"`
}

// Simulation replays the ledger against the wallet and bot. All public
// methods are safe for concurrent use so the observation API can read while
// the run loop writes.
type Simulation struct {
	mu      sync.RWMutex
	ledger  *book.Ledger
	matcher *book.Matcher
	wallet  *wallet.Wallet
	bot     *strategy.Bot // nil in manual mode
	log     *zap.SugaredLogger

	tradeLog *TradeLog
	first    string
	steps    int
	trades   int
	live     int
	placed   int
	retired  int

	recent   map[book.Pair][]book.Trade
	observer func(StepSummary)
}

// New wires a simulation together. The bot may be nil for a manual,
// menu-driven session.
func New(l *book.Ledger, m *book.Matcher, w *wallet.Wallet, b *strategy.Bot, log *zap.SugaredLogger) *Simulation {
	s := &Simulation{
		ledger:   l,
		matcher:  m,
		wallet:   w,
		bot:      b,
		log:      log,
		tradeLog: NewTradeLog(),
		first:    l.CurrentTimestamp(),
		recent:   make(map[book.Pair][]book.Trade),
	}
	s.tradeLog.RecordInitialWallet(w)
	return s
}

func (s *Simulation) Ledger() *book.Ledger   { return s.ledger }
func (s *Simulation) Wallet() *wallet.Wallet { return s.wallet }
func (s *Simulation) TradeLog() *TradeLog    { return s.tradeLog }
func (s *Simulation) FirstTimestamp() string { return s.first }

// SetObserver registers a callback invoked after every step with its summary.
// Must be set before the run starts.
func (s *Simulation) SetObserver(fn func(StepSummary)) {
	s.observer = fn
}

// Step processes the current timestamp to completion and advances the ledger.
func (s *Simulation) Step() StepSummary {
	s.mu.Lock()

	sum := StepSummary{Timestamp: s.ledger.CurrentTimestamp()}

	// Matching first: cross every pair's views and apply live trades to the
	// wallet. A settle failure is a funds-tracking desync, logged and
	// survived rather than aborting the backtest.
	for _, pair := range s.ledger.KnownPairs() {
		trades := s.matcher.Match(s.ledger, pair)
		sum.Trades += len(trades)
		for _, t := range trades {
			sum.Volume += t.Quantity
			s.pushRecent(t)
			if !t.Live() {
				continue
			}
			sum.LiveTrades++
			if err := s.wallet.Settle(t); err != nil {
				s.log.Warnw("settle_failed", "pair", pair.String(), "class", t.Class.String(), "err", err)
				continue
			}
			s.tradeLog.RecordTrade(t)
			s.log.Infow("trade_settled",
				"timestamp", t.Timestamp,
				"pair", pair.String(),
				"class", t.Class.String(),
				"price", t.Price,
				"amount", t.Quantity,
			)
		}
	}

	// Then the strategies: clean up, observe the same views, maybe trade.
	if s.bot != nil {
		placed, withdrawn := s.bot.ProcessTimestamp(s.ledger)
		for _, w := range withdrawn {
			s.tradeLog.RecordWithdrawal(w)
		}
		for _, o := range placed {
			s.ledger.Insert(o)
			s.tradeLog.RecordOrder(*o)
		}
		sum.Placed = len(placed)
		sum.Withdrawn = len(withdrawn)
	}

	sum.Next = s.ledger.Advance()

	s.steps++
	sum.Step = s.steps
	s.trades += sum.Trades
	s.live += sum.LiveTrades
	s.placed += sum.Placed
	s.retired += sum.Withdrawn

	s.mu.Unlock()

	if s.observer != nil {
		s.observer(sum)
	}
	return sum
}

// Run executes steps timestamps, or one full loop over the dataset when
// steps <= 0 (stopping when the first timestamp comes around again).
func (s *Simulation) Run(ctx context.Context, steps int) error {
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if steps > 0 && i >= steps {
			return nil
		}
		sum := s.Step()
		if steps <= 0 && sum.Next == s.first {
			return nil
		}
	}
}

// InsertUserOrder places a manually entered order: the wallet must cover it,
// and the covering funds are locked until the order settles.
func (s *Simulation) InsertUserOrder(o *book.Order) error {
	if !s.wallet.CanFulfill(o) {
		return fmt.Errorf("cannot fulfill %s %s: %w", o.Side, o.Pair, wallet.ErrInsufficientFunds)
	}
	reserve := o.Quantity
	asset := o.Pair.Base
	if o.Side == book.Bid {
		reserve = o.Quantity * o.Price
		asset = o.Pair.Quote
	}
	if err := s.wallet.Lock(asset, reserve); err != nil {
		return err
	}

	s.mu.Lock()
	s.ledger.Insert(o)
	s.mu.Unlock()

	s.tradeLog.RecordOrder(*o)
	s.log.Infow("user_order_inserted", "side", o.Side.String(), "pair", o.Pair.String(), "price", o.Price, "amount", o.Quantity)
	return nil
}

// Status reports run counters and the current ledger position.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		CurrentTimestamp: s.ledger.CurrentTimestamp(),
		FirstTimestamp:   s.first,
		Steps:            s.steps,
		Trades:           s.trades,
		LiveTrades:       s.live,
		Placed:           s.placed,
		Withdrawn:        s.retired,
		Orders:           s.ledger.Len(),
		Timestamps:       s.ledger.Timestamps(),
	}
}

// CurrentView returns the current timestamp's ask and bid orders for pair,
// copied so observers never alias live ledger entries.
func (s *Simulation) CurrentView(pair book.Pair) (asks, bids []book.Order) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.ledger.CurrentOrders(book.Ask, pair) {
		asks = append(asks, *o)
	}
	for _, o := range s.ledger.CurrentOrders(book.Bid, pair) {
		bids = append(bids, *o)
	}
	return asks, bids
}

// RecentTrades returns up to n of the latest trades for pair, newest last.
func (s *Simulation) RecentTrades(pair book.Pair, n int) []book.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := s.recent[pair]
	if n > 0 && len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	out := make([]book.Trade, len(trades))
	copy(out, trades)
	return out
}

func (s *Simulation) pushRecent(t book.Trade) {
	trades := append(s.recent[t.Pair], t)
	if len(trades) > recentTradeCap {
		trades = trades[len(trades)-recentTradeCap:]
	}
	s.recent[t.Pair] = trades
}
