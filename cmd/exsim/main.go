package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"exsim/params"
	"exsim/pkg/api"
	"exsim/pkg/exchange/book"
	"exsim/pkg/exchange/strategy"
	"exsim/pkg/exchange/wallet"
	"exsim/pkg/feed"
	"exsim/pkg/sim"
	"exsim/pkg/util"
)

func main() {
	var (
		envPath  = flag.String("env", "", "path to .env file (default: .env in current directory)")
		dataFile = flag.String("data", "", "historical order CSV (overrides DATA_FILE)")
		mode     = flag.String("mode", "", "matching mode: current or cumulative (overrides MATCH_MODE)")
		auto     = flag.Bool("auto", false, "run the bot without the interactive menu")
		steps    = flag.Int("steps", 0, "number of timestamps to process in auto mode (0 = one full loop)")
		apiAddr  = flag.String("api", "", "serve the observation API on this address (overrides API_ADDR)")
	)
	flag.Parse()

	cfg := params.LoadFromEnv(*envPath)
	if *dataFile != "" {
		cfg.Data.File = *dataFile
	}
	if *mode != "" {
		cfg.Match.Mode = *mode
	}
	if *apiAddr != "" {
		cfg.API.Enabled = true
		cfg.API.Addr = *apiAddr
	}

	logger, err := util.NewLoggerWithFile(cfg.Logging.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	matchMode, ok := book.ParseMatchMode(cfg.Match.Mode)
	if !ok {
		sugar.Fatalw("bad_match_mode", "mode", cfg.Match.Mode)
	}

	orders, err := feed.ReadFile(cfg.Data.File, sugar)
	if err != nil {
		sugar.Fatalw("data_load_failed", "file", cfg.Data.File, "err", err)
	}
	ledger := book.NewLedger(orders)
	if ledger.Timestamps() == 0 {
		sugar.Fatalw("empty_dataset", "file", cfg.Data.File)
	}

	w := wallet.New()
	for asset, amount := range cfg.Funds {
		if err := w.Deposit(asset, amount); err != nil {
			sugar.Warnw("deposit_skipped", "asset", asset, "amount", amount, "err", err)
		}
	}

	var bot *strategy.Bot
	if *auto {
		bot = strategy.NewBot(w, ledger.KnownPairs(), strategy.Config{
			Window:          cfg.Strategy.Window,
			MinObservations: cfg.Strategy.MinObservations,
			RiskFraction:    cfg.Strategy.RiskFraction,
		}, sugar)
	}

	s := sim.New(ledger, book.NewMatcher(matchMode), w, bot, sugar)

	if cfg.API.Enabled {
		server := api.NewServer(s, sugar)
		s.SetObserver(server.PublishStep)
		go func() {
			if err := server.Start(cfg.API.Addr); err != nil {
				sugar.Errorw("api_stopped", "err", err)
			}
		}()
	}

	if *auto {
		runAuto(s, cfg, *steps, sugar)
		return
	}
	runMenu(s, sugar)
}

// runAuto replays the dataset with the bot and writes the activity log.
func runAuto(s *sim.Simulation, cfg params.Config, steps int, sugar *zap.SugaredLogger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx, steps); err != nil {
		sugar.Warnw("run_interrupted", "err", err)
	}

	status := s.Status()
	sugar.Infow("run_finished",
		"steps", status.Steps,
		"trades", status.Trades,
		"liveTrades", status.LiveTrades,
		"placed", status.Placed,
		"withdrawn", status.Withdrawn,
	)

	if err := s.TradeLog().WriteFile(cfg.Logging.TradeFile, s.Wallet()); err != nil {
		sugar.Errorw("trade_log_write_failed", "file", cfg.Logging.TradeFile, "err", err)
	} else {
		sugar.Infow("trade_log_written", "file", cfg.Logging.TradeFile)
	}

	fmt.Println("Final wallet:")
	fmt.Print(s.Wallet().String())
}

// runMenu is the interactive session: inspect the market, enter orders by
// hand, step the simulation one timestamp at a time.
func runMenu(s *sim.Simulation, sugar *zap.SugaredLogger) {
	in := bufio.NewScanner(os.Stdin)
	for {
		printMenu(s)
		if !in.Scan() {
			return
		}
		switch strings.TrimSpace(in.Text()) {
		case "1":
			fmt.Println("Help - your aim is to make money. Analyse the market and make bids and asks.")
		case "2":
			printMarketStats(s)
		case "3":
			enterOrder(s, in, book.Ask, sugar)
		case "4":
			enterOrder(s, in, book.Bid, sugar)
		case "5":
			fmt.Print(s.Wallet().String())
		case "6":
			sum := s.Step()
			fmt.Printf("Processed %s: %d trades (%d settled). Now at %s.\n",
				sum.Timestamp, sum.Trades, sum.LiveTrades, sum.Next)
		case "7":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Invalid choice. Choose 1-7.")
		}
	}
}

func printMenu(s *sim.Simulation) {
	fmt.Println("1: Print help")
	fmt.Println("2: Print exchange stats")
	fmt.Println("3: Make an ask")
	fmt.Println("4: Make a bid")
	fmt.Println("5: Print wallet")
	fmt.Println("6: Continue")
	fmt.Println("7: Exit")
	fmt.Println("=========================")
	fmt.Printf("Current time is: %s\n", s.Status().CurrentTimestamp)
	fmt.Println("Type in 1-7")
}

func printMarketStats(s *sim.Simulation) {
	for _, pair := range s.Ledger().KnownPairs() {
		asks, _ := s.CurrentView(pair)
		fmt.Printf("Pair: %s\n", pair)
		fmt.Printf("Asks seen: %d\n", len(asks))
		if len(asks) == 0 {
			continue
		}
		min, max := asks[0].Price, asks[0].Price
		for _, o := range asks[1:] {
			if o.Price < min {
				min = o.Price
			}
			if o.Price > max {
				max = o.Price
			}
		}
		fmt.Printf("Min ask: %v\nMax ask: %v\n", min, max)
	}
}

// enterOrder parses "pair, price, amount" (e.g. "ETH/BTC, 200, 0.5") and
// inserts a funds-checked user order at the current timestamp.
func enterOrder(s *sim.Simulation, in *bufio.Scanner, side book.Side, sugar *zap.SugaredLogger) {
	fmt.Printf("Make a %s - enter: pair, price, amount, e.g. ETH/BTC, 200, 0.5\n", side)
	if !in.Scan() {
		return
	}
	line := in.Text()

	tokens := strings.Split(line, ",")
	if len(tokens) != 3 {
		fmt.Printf("Bad input! %s\n", line)
		return
	}

	pair, err := book.ParsePair(strings.TrimSpace(tokens[0]))
	if err != nil {
		fmt.Printf("Bad input! %s\n", line)
		return
	}
	price, err1 := strconv.ParseFloat(strings.TrimSpace(tokens[1]), 64)
	amount, err2 := strconv.ParseFloat(strings.TrimSpace(tokens[2]), 64)
	if err1 != nil || err2 != nil {
		fmt.Printf("Bad input! %s\n", line)
		return
	}

	o, err := book.NewOrder(side, pair, price, amount, s.Status().CurrentTimestamp, book.OwnerUser)
	if err != nil {
		fmt.Printf("Bad input! %s\n", line)
		return
	}
	if err := s.InsertUserOrder(o); err != nil {
		fmt.Println("Insufficient funds.")
		sugar.Debugw("user_order_rejected", "err", err)
		return
	}
	fmt.Println("Wallet looks good.")
}
