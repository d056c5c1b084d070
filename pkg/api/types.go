package api

// API response types for REST endpoints and WebSocket messages. The server
// is strictly read-only: it observes the running backtest, it never mutates it.

// PairInfo describes one trading pair seen in the dataset.
type PairInfo struct {
	Symbol string `json:"symbol"` // e.g. "ETH/BTC"
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// OrderView is one order of the current timestamp's view.
type OrderView struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Owner    string  `json:"owner"`
}

// BookSnapshot is the current timestamp's ask and bid views for one pair.
type BookSnapshot struct {
	Symbol    string      `json:"symbol"`
	Timestamp string      `json:"timestamp"`
	Asks      []OrderView `json:"asks"`
	Bids      []OrderView `json:"bids"`
}

// TradeInfo is a recently produced trade.
type TradeInfo struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Timestamp string  `json:"timestamp"`
	Class     string  `json:"class"` // "asksale", "bidsale" or "none"
}

// BalanceInfo is one asset's wallet balance pair.
type BalanceInfo struct {
	Asset     string  `json:"asset"`
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
	Total     float64 `json:"total"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
