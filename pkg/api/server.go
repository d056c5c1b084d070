// Package api exposes a read-only HTTP and WebSocket view of a running
// backtest: pairs, current book views, recent trades, wallet balances and
// run status. No endpoint mutates the simulation.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
	"exsim/pkg/sim"
)

// Server serves the observation API for one simulation.
type Server struct {
	sim    *sim.Simulation
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(s *sim.Simulation, log *zap.SugaredLogger) *Server {
	srv := &Server{
		sim:    s,
		router: mux.NewRouter(),
		hub:    NewHub(),
		log:    log,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/pairs", s.handleGetPairs).Methods("GET")
	api.HandleFunc("/pairs/{base}/{quote}/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/pairs/{base}/{quote}/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/wallet", s.handleGetWallet).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// PublishStep broadcasts a step summary to every connected client. Wire it
// as the simulation's observer.
func (s *Server) PublishStep(sum sim.StepSummary) {
	s.hub.Broadcast(sum)
}

// Start runs the hub and blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	pairs := s.sim.Ledger().KnownPairs()
	response := make([]PairInfo, len(pairs))
	for i, p := range pairs {
		response[i] = PairInfo{Symbol: p.String(), Base: p.Base, Quote: p.Quote}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	pair, ok := pairFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pair")
		return
	}

	asks, bids := s.sim.CurrentView(pair)
	snap := BookSnapshot{
		Symbol:    pair.String(),
		Timestamp: s.sim.Status().CurrentTimestamp,
		Asks:      toViews(asks),
		Bids:      toViews(bids),
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	pair, ok := pairFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pair")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades := s.sim.RecentTrades(pair, limit)
	response := make([]TradeInfo, len(trades))
	for i, t := range trades {
		response[i] = TradeInfo{
			Symbol:    t.Pair.String(),
			Price:     t.Price,
			Quantity:  t.Quantity,
			Timestamp: t.Timestamp,
			Class:     t.Class.String(),
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	snap := s.sim.Wallet().Snapshot()
	response := make([]BalanceInfo, 0, len(snap))
	for asset, b := range snap {
		response = append(response, BalanceInfo{
			Asset:     asset,
			Available: b.Available,
			Locked:    b.Locked,
			Total:     b.Available + b.Locked,
		})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].Asset < response[j].Asset })
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func pairFromRequest(r *http.Request) (book.Pair, bool) {
	vars := mux.Vars(r)
	base, quote := vars["base"], vars["quote"]
	if base == "" || quote == "" {
		return book.Pair{}, false
	}
	return book.Pair{Base: base, Quote: quote}, true
}

func toViews(orders []book.Order) []OrderView {
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = OrderView{Price: o.Price, Quantity: o.Quantity, Owner: o.Owner}
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
