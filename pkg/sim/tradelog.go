package sim

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"exsim/pkg/exchange/book"
	"exsim/pkg/exchange/wallet"
)

// TradeLog accumulates the participant's activity - placements, settlements,
// withdrawals - as tab-columned text records and flushes them to a file at
// the end of the run, bracketed by the initial and final wallet snapshots.
type TradeLog struct {
	mu      sync.Mutex
	records []string
}

func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// RecordInitialWallet captures the wallet before any trading, so the end of
// the log can be compared against where the run started.
func (t *TradeLog) RecordInitialWallet(w *wallet.Wallet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, "Initial wallet:\n\n"+w.String())
}

// RecordOrder logs a placed live order.
func (t *TradeLog) RecordOrder(o book.Order) {
	var cols []string
	switch o.Side {
	case book.Ask:
		cols = []string{
			o.Timestamp,
			"Ask",
			o.Pair.String(),
			fmt.Sprintf("Offers: %.10f %s", o.Quantity, o.Pair.Base),
			fmt.Sprintf("Requests: %.10f %s/unit", o.Price, o.Pair.Quote),
		}
	default:
		cols = []string{
			o.Timestamp,
			"Bid",
			o.Pair.String(),
			fmt.Sprintf("Offers: %.10f %s/unit", o.Price, o.Pair.Quote),
			fmt.Sprintf("Requests: %.10f %s", o.Quantity, o.Pair.Base),
		}
	}
	t.add(cols)
}

// RecordTrade logs a settled trade from the participant's perspective.
func (t *TradeLog) RecordTrade(tr book.Trade) {
	var kind, outAsset, inAsset string
	var outAmount, inAmount float64

	switch tr.Class {
	case book.SettleAsk:
		kind = "Asksale"
		outAmount, outAsset = tr.Quantity, tr.Pair.Base
		inAmount, inAsset = tr.Quantity*tr.Price, tr.Pair.Quote
	case book.SettleBid:
		kind = "Bidsale"
		outAmount, outAsset = tr.Quantity*tr.Price, tr.Pair.Quote
		inAmount, inAsset = tr.Quantity, tr.Pair.Base
	default:
		return
	}

	t.add([]string{
		tr.Timestamp,
		kind,
		tr.Pair.String(),
		fmt.Sprintf("Paid %.10f %s", outAmount, outAsset),
		fmt.Sprintf("Received %.10f %s", inAmount, inAsset),
	})
}

// RecordWithdrawal logs a pending order withdrawn by strategy cleanup. The
// order is a copy taken before its quantity was zeroed.
func (t *TradeLog) RecordWithdrawal(o book.Order) {
	offered, requested := o.Pair.Base, o.Pair.Quote
	kind := "Ask withdrawn"
	if o.Side == book.Bid {
		offered, requested = o.Pair.Quote, o.Pair.Base
		kind = "Bid withdrawn"
	}
	t.add([]string{
		o.Timestamp,
		kind,
		o.Pair.String(),
		fmt.Sprintf("Offered: %.10f %s", o.Quantity, offered),
		"Requested: " + requested,
		fmt.Sprintf("at %.10f", o.Price),
	})
}

// Len returns the number of records accumulated so far.
func (t *TradeLog) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// WriteFile flushes the whole log to path, appending the final wallet state.
func (t *TradeLog) WriteFile(path string, w *wallet.Wallet) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	for _, r := range t.records {
		sb.WriteString(r)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n\nFinal wallet:\n\n")
	sb.WriteString(w.String())

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	return nil
}

// add pads each column to a fixed width so the log lines up when opened in an
// editor: narrow columns for kind and pair, wide for everything else.
func (t *TradeLog) add(cols []string) {
	for i, c := range cols {
		width := 27
		switch i {
		case 1:
			width = 14
		case 2:
			width = 11
		}
		if len(c) < width {
			c += strings.Repeat(" ", width-len(c))
		}
		cols[i] = c
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, strings.Join(cols, "\t"))
}
