// Package wallet tracks per-asset available and locked balances for the
// simulated participant. Lock, unlock and settle are the primitives the
// driver and strategy compose into place-order, withdraw-order and
// settle-trade workflows.
package wallet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"exsim/pkg/exchange/book"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientLockedFunds = errors.New("insufficient locked funds")
)

const (
	// minAmount rejects dust operations that only exist through float rounding.
	minAmount = 1e-9
	// tolerance absorbs accumulated float error when comparing balances.
	tolerance = 1e-6
)

// Balance is the available/locked amount pair for one asset.
type Balance struct {
	Available float64
	Locked    float64
}

// Wallet is safe for concurrent use. The mutex keeps CanFulfill-then-Lock
// observable as one step per asset, preserving the contract that Lock never
// fails after a successful sufficiency check.
type Wallet struct {
	mu       sync.Mutex
	balances map[string]*Balance
}

func New() *Wallet {
	return &Wallet{balances: make(map[string]*Balance)}
}

// entry lazily creates the asset's balance pair. Callers hold mu.
func (w *Wallet) entry(asset string) *Balance {
	b, ok := w.balances[asset]
	if !ok {
		b = &Balance{}
		w.balances[asset] = b
	}
	return b
}

// Deposit adds amount to the asset's available balance.
func (w *Wallet) Deposit(asset string, amount float64) error {
	if amount < minAmount {
		return fmt.Errorf("%w: deposit %v %s", ErrInvalidAmount, amount, asset)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entry(asset).Available += amount
	return nil
}

// Lock moves amount from available to locked, reserving it against a pending
// order. The sum of available and locked is unchanged.
func (w *Wallet) Lock(asset string, amount float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.entry(asset)
	if b.Available < amount-tolerance {
		return fmt.Errorf("%w: lock %v %s, have %v", ErrInsufficientFunds, amount, asset, b.Available)
	}
	b.Available -= amount
	b.Locked += amount
	return nil
}

// Unlock moves amount from locked back to available, releasing the
// reservation of a withdrawn or partially filled order.
func (w *Wallet) Unlock(asset string, amount float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.entry(asset)
	if b.Locked < amount-tolerance {
		return fmt.Errorf("%w: unlock %v %s, have %v locked", ErrInsufficientLockedFunds, amount, asset, b.Locked)
	}
	b.Locked -= amount
	b.Available += amount
	return nil
}

// Settle applies a trade to the wallet. For an ask settlement the base
// quantity leaves the locked balance and quantity*price arrives in quote; for
// a bid settlement quantity*price leaves locked quote and the base quantity
// arrives. Trades between two dataset orders settle nothing.
func (w *Wallet) Settle(t book.Trade) error {
	var outAsset, inAsset string
	var outAmount, inAmount float64

	switch t.Class {
	case book.SettleAsk:
		outAsset, outAmount = t.Pair.Base, t.Quantity
		inAsset, inAmount = t.Pair.Quote, t.Quantity*t.Price
	case book.SettleBid:
		outAsset, outAmount = t.Pair.Quote, t.Quantity*t.Price
		inAsset, inAmount = t.Pair.Base, t.Quantity
	default:
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.entry(outAsset)
	if out.Locked < outAmount-tolerance {
		return fmt.Errorf("%w: settle %v %s, have %v locked", ErrInsufficientLockedFunds, outAmount, outAsset, out.Locked)
	}
	out.Locked -= outAmount
	w.entry(inAsset).Available += inAmount
	return nil
}

// CanFulfill reports whether the available balance covers the order: the base
// quantity for an ask, quantity times price in quote for a bid.
func (w *Wallet) CanFulfill(o *book.Order) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch o.Side {
	case book.Ask:
		return w.entry(o.Pair.Base).Available >= o.Quantity
	case book.Bid:
		return w.entry(o.Pair.Quote).Available >= o.Quantity*o.Price
	default:
		return false
	}
}

// BalanceOf returns the available balance only. Sizing decisions deliberately
// run against available funds; callers needing the total add Locked themselves.
func (w *Wallet) BalanceOf(asset string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entry(asset).Available
}

// LockedOf returns the locked balance for asset.
func (w *Wallet) LockedOf(asset string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entry(asset).Locked
}

// Snapshot returns a copy of every asset's balance pair.
func (w *Wallet) Snapshot() map[string]Balance {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]Balance, len(w.balances))
	for asset, b := range w.balances {
		out[asset] = *b
	}
	return out
}

// String renders per-asset totals (available plus locked), one asset per line
// in sorted order.
func (w *Wallet) String() string {
	snap := w.Snapshot()
	assets := make([]string, 0, len(snap))
	for a := range snap {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	var sb strings.Builder
	for _, a := range assets {
		b := snap[a]
		fmt.Fprintf(&sb, "%s: %.10f\n", a, b.Available+b.Locked)
	}
	return sb.String()
}
