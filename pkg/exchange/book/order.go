package book

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known order owners. Dataset orders come from the historical feed and
// never touch the simulated wallet; bot and user orders are live participants.
const (
	OwnerDataset = "dataset"
	OwnerBot     = "bot"
	OwnerUser    = "simuser"
)

// QuantityEpsilon is the threshold below which a remaining quantity is
// considered zero. Matching runs on float64, so exact zero cannot be relied on.
const QuantityEpsilon = 1e-9

var ErrInvalidOrder = errors.New("invalid order")

// Side is the direction of an order: an ask sells the base asset, a bid buys it.
type Side int8

const (
	Ask Side = iota
	Bid
)

func (s Side) String() string {
	switch s {
	case Ask:
		return "ask"
	case Bid:
		return "bid"
	default:
		return "unknown"
	}
}

// ParseSide maps the feed's side column to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "ask":
		return Ask, nil
	case "bid":
		return Bid, nil
	default:
		return 0, fmt.Errorf("%w: side %q", ErrInvalidOrder, s)
	}
}

// Pair is a base/quote asset combination, e.g. base ETH quoted in BTC.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a "BASE/QUOTE" symbol.
func ParsePair(symbol string) (Pair, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return Pair{}, fmt.Errorf("%w: pair %q", ErrInvalidOrder, symbol)
	}
	return Pair{Base: base, Quote: quote}, nil
}

func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Order is a single entry in the order ledger. Identity fields are fixed at
// construction; only Quantity changes afterwards, and only downwards, through
// matching or withdrawal.
type Order struct {
	Side      Side
	Pair      Pair
	Price     float64
	Quantity  float64
	Timestamp string
	Owner     string
}

// NewOrder validates and builds an order. A negative price or quantity is
// rejected outright; the record is discarded, never half-built.
func NewOrder(side Side, pair Pair, price, quantity float64, timestamp, owner string) (*Order, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: negative price %v", ErrInvalidOrder, price)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: negative quantity %v", ErrInvalidOrder, quantity)
	}
	return &Order{
		Side:      side,
		Pair:      pair,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
		Owner:     owner,
	}, nil
}

// Live reports whether the order belongs to a simulated participant rather
// than the historical dataset.
func (o *Order) Live() bool {
	return o.Owner != OwnerDataset
}

// Filled reports whether the remaining quantity is effectively zero.
func (o *Order) Filled() bool {
	return o.Quantity <= QuantityEpsilon
}

// SettlementClass tells the wallet which side of a trade the simulated
// participant occupied. Trades between two dataset orders settle nothing.
type SettlementClass int8

const (
	SettleNone SettlementClass = iota
	SettleAsk
	SettleBid
)

func (c SettlementClass) String() string {
	switch c {
	case SettleAsk:
		return "asksale"
	case SettleBid:
		return "bidsale"
	default:
		return "none"
	}
}

// Trade is a settlement record produced by the matching engine. It is
// immutable once created.
type Trade struct {
	Pair      Pair
	Price     float64 // the resting ask's price at match time
	Quantity  float64
	Timestamp string
	Class     SettlementClass
}

// Live reports whether a simulated participant was on either side of the trade.
func (t Trade) Live() bool {
	return t.Class != SettleNone
}

// LowestPriced returns the entry with the lowest price, or nil for an empty set.
func LowestPriced(orders []*Order) *Order {
	var min *Order
	for _, o := range orders {
		if min == nil || o.Price < min.Price {
			min = o
		}
	}
	return min
}

// HighestPriced returns the entry with the highest price, or nil for an empty set.
func HighestPriced(orders []*Order) *Order {
	var max *Order
	for _, o := range orders {
		if max == nil || o.Price > max.Price {
			max = o
		}
	}
	return max
}
