package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Data locates the historical order flow.
type Data struct {
	File string
}

// Match selects the matching engine mode: "current" or "cumulative".
type Match struct {
	Mode string
}

// Strategy tunes the rolling-statistics bot.
type Strategy struct {
	Window          int
	MinObservations int
	RiskFraction    float64
}

// Logging names the structured log and the trade activity log outputs.
type Logging struct {
	File      string
	TradeFile string
}

// API configures the read-only observation server.
type API struct {
	Enabled bool
	Addr    string
}

type Config struct {
	Data     Data
	Match    Match
	Strategy Strategy
	Logging  Logging
	API      API
	// Funds are the initial deposits granted to the wallet, per asset.
	Funds map[string]float64
}

func Default() Config {
	return Config{
		Data:  Data{File: "data/orders.csv"},
		Match: Match{Mode: "cumulative"},
		Strategy: Strategy{
			Window:          300,
			MinObservations: 100,
			RiskFraction:    0.2,
		},
		Logging: Logging{
			File:      "data/exsim.log",
			TradeFile: "data/bot_trade_log.txt",
		},
		API: API{Enabled: false, Addr: ":8090"},
		Funds: map[string]float64{
			"BTC":  0.1,
			"ETH":  10,
			"DOGE": 1000,
			"USDT": 100,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("DATA_FILE"); v != "" {
		cfg.Data.File = v
	}
	if v := os.Getenv("MATCH_MODE"); v != "" {
		cfg.Match.Mode = v
	}
	if v := os.Getenv("STRATEGY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Strategy.Window = n
		}
	}
	if v := os.Getenv("STRATEGY_MIN_OBSERVATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Strategy.MinObservations = n
		}
	}
	if v := os.Getenv("STRATEGY_RISK_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.Strategy.RiskFraction = f
		}
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("TRADE_LOG_FILE"); v != "" {
		cfg.Logging.TradeFile = v
	}
	if v := os.Getenv("API_ENABLED"); v != "" {
		cfg.API.Enabled = v == "true"
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("INITIAL_FUNDS"); v != "" {
		if funds := parseFunds(v); len(funds) > 0 {
			cfg.Funds = funds
		}
	}

	return cfg
}

// parseFunds parses "BTC:0.1,ETH:10" into per-asset deposits. Malformed
// entries are dropped.
func parseFunds(s string) map[string]float64 {
	funds := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		asset, amount, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(amount, 64)
		if err != nil || f <= 0 {
			continue
		}
		funds[asset] = f
	}
	return funds
}
