package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"footpicks_go/internal/accumulator"
	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/oddscompare"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/prediction"
	"footpicks_go/internal/settlement"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const settleTimeout = 30 * time.Minute

// PredictionService is the read side of prediction.Service.
type PredictionService interface {
	Predictions(ctx context.Context) ([]prediction.MatchPrediction, error)
	Range(ctx context.Context, from, to time.Time) ([]prediction.MatchPrediction, error)
	Find(ctx context.Context, fixtureID int64) (*prediction.MatchPrediction, error)
}

// PicksReader returns the stored shortlist for a date.
type PicksReader interface {
	Picks(ctx context.Context, date string) ([]picks.Pick, error)
}

// Settler runs one settlement pass.
type Settler interface {
	Run(ctx context.Context) (settlement.Report, error)
}

// Config wires a Handler.
type Config struct {
	Predictions PredictionService
	Picks       PicksReader
	Bankroll    bankroll.Store
	Settler     Settler
	Accumulator accumulator.Options
	Now         func() time.Time
}

// Handler serves the JSON API.
type Handler struct {
	cfg      Config
	now      func() time.Time
	settling atomic.Bool
	wg       sync.WaitGroup
}

// NewHandler returns a Handler.
func NewHandler(cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{cfg: cfg, now: now}
}

// Routes returns the router for every endpoint.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")
	r.HandleFunc("/predictions", h.handlePredictions).Methods("GET")
	r.HandleFunc("/predictions/{id:[0-9]+}", h.handlePrediction).Methods("GET")
	r.HandleFunc("/picks/today", h.handlePicks).Methods("GET")
	r.HandleFunc("/accumulator", h.handleAccumulator).Methods("GET")
	r.HandleFunc("/odds/{id:[0-9]+}", h.handleOdds).Methods("GET")
	r.HandleFunc("/bankroll", h.handleBankroll).Methods("GET")
	r.HandleFunc("/bankroll", h.handleCreateEntry).Methods("POST")
	r.HandleFunc("/bankroll/settle", h.handleSettle).Methods("POST")
	return r
}

// Wait blocks until background settlement passes started by the API finish.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("api: request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictionsResponse struct {
	Predictions []prediction.MatchPrediction `json:"predictions"`
	Count       int                          `json:"count"`
	Message     string                       `json:"message,omitempty"`
}

func (h *Handler) handlePredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		preds []prediction.MatchPrediction
		err   error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := h.parseRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		preds, err = h.cfg.Predictions.Range(r.Context(), from, to)
	} else {
		preds, err = h.cfg.Predictions.Predictions(r.Context())
	}
	resp := predictionsResponse{Predictions: preds, Count: len(preds)}
	if err != nil {
		slog.Warn("api: predictions unavailable", "error", err)
		resp = predictionsResponse{Message: "predictions are unavailable right now"}
	}
	if resp.Predictions == nil {
		resp.Predictions = []prediction.MatchPrediction{}
		if resp.Message == "" {
			resp.Message = "no fixtures in range"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseRange reads YYYY-MM-DD bounds; a missing bound defaults to today.
func (h *Handler) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	from, to := today, today
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.DateOnly, fromStr); err != nil {
			return from, to, errors.New("from must be YYYY-MM-DD")
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.DateOnly, toStr); err != nil {
			return from, to, errors.New("to must be YYYY-MM-DD")
		}
	}
	if to.Before(from) {
		return from, to, errors.New("to is before from")
	}
	return from, to.Add(24*time.Hour - time.Second), nil
}

func fixtureID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (h *Handler) handlePrediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.cfg.Predictions.Find(r.Context(), fixtureID(r))
	switch {
	case errors.Is(err, prediction.ErrNotFound):
		writeError(w, http.StatusNotFound, "no prediction for that fixture")
	case err != nil:
		slog.Warn("api: prediction lookup failed", "fixture_id", fixtureID(r), "error", err)
		writeError(w, http.StatusNotFound, "predictions are unavailable right now")
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

type picksResponse struct {
	Date    string       `json:"date"`
	Picks   []picks.Pick `json:"picks"`
	Message string       `json:"message,omitempty"`
}

func (h *Handler) handlePicks(w http.ResponseWriter, r *http.Request) {
	date := picks.DateKey(h.now())
	if d := r.URL.Query().Get("date"); d != "" {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	ps, err := h.cfg.Picks.Picks(r.Context(), date)
	resp := picksResponse{Date: date, Picks: ps}
	if err != nil {
		slog.Warn("api: picks unavailable", "date", date, "error", err)
		resp.Picks, resp.Message = nil, "picks are unavailable right now"
	}
	if len(resp.Picks) == 0 {
		resp.Picks = []picks.Pick{}
		if resp.Message == "" {
			resp.Message = "no picks generated for " + date
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type accumulatorResponse struct {
	Accumulator *accumulator.Accumulator `json:"accumulator"`
	Message     string                   `json:"message,omitempty"`
}

func (h *Handler) handleAccumulator(w http.ResponseWriter, r *http.Request) {
	opts := h.cfg.Accumulator
	opts.Now = h.now()
	q := r.URL.Query()
	if v := q.Get("legs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "legs must be a positive integer")
			return
		}
		opts.TargetLegs = n
	}
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		opts.WindowDays = n
	}
	preds, err := h.cfg.Predictions.Predictions(r.Context())
	var resp accumulatorResponse
	if err != nil {
		slog.Warn("api: accumulator predictions unavailable", "error", err)
		resp.Message = "predictions are unavailable right now"
		preds = nil
	}
	resp.Accumulator = accumulator.Build(preds, opts)
	if len(resp.Accumulator.Legs) == 0 && resp.Message == "" {
		resp.Message = "no upcoming fixtures in the window"
	}
	writeJSON(w, http.StatusOK, resp)
}

type oddsResponse struct {
	FixtureID     int64               `json:"fixtureId"`
	Match         string              `json:"match"`
	Market        string              `json:"market"`
	Pick          string              `json:"pick"`
	CanonicalOdds float64             `json:"canonicalOdds"`
	Quotes        []oddscompare.Quote `json:"quotes"`
}

func (h *Handler) handleOdds(w http.ResponseWriter, r *http.Request) {
	id := fixtureID(r)
	p, err := h.cfg.Predictions.Find(r.Context(), id)
	if err != nil {
		if !errors.Is(err, prediction.ErrNotFound) {
			slog.Warn("api: odds lookup failed", "fixture_id", id, "error", err)
		}
		writeError(w, http.StatusNotFound, "no prediction for that fixture")
		return
	}
	m, ok := p.Top()
	if name := r.URL.Query().Get("market"); name != "" {
		m, ok = p.Market(name)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market")
		return
	}
	writeJSON(w, http.StatusOK, oddsResponse{
		FixtureID:     p.FixtureID,
		Match:         p.Label(),
		Market:        m.Market,
		Pick:          m.Pick,
		CanonicalOdds: m.Odds,
		Quotes:        oddscompare.Synthesize(m, nil),
	})
}

type bankrollResponse struct {
	Entries []bankroll.Entry `json:"entries"`
	Summary bankroll.Summary `json:"summary"`
	Message string           `json:"message,omitempty"`
}

func (h *Handler) handleBankroll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.cfg.Bankroll.Entries(r.Context())
	var resp bankrollResponse
	if err != nil {
		slog.Warn("api: bankroll unavailable", "error", err)
		resp.Message = "bankroll is unavailable right now"
		entries = nil
	}
	if entries == nil {
		entries = []bankroll.Entry{}
	}
	resp.Entries = entries
	resp.Summary = bankroll.Summarize(entries)
	writeJSON(w, http.StatusOK, resp)
}

type createEntryRequest struct {
	FixtureID  int64               `json:"fixtureId"`
	MatchLabel string              `json:"matchLabel"`
	Market     string              `json:"market"`
	Pick       string              `json:"pick"`
	Stake      decimal.NullDecimal `json:"stake"`
	Odds       decimal.NullDecimal `json:"odds"`
}

// handleCreateEntry logs a pending bet. With a fixture id the prediction fills in
// the teams and kickoff; when the pick matches the model's pick for the market the
// structured selection and model odds are carried too.
func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e := bankroll.Entry{
		FixtureID:  req.FixtureID,
		MatchLabel: req.MatchLabel,
		Market:     req.Market,
		Pick:       req.Pick,
		Stake:      req.Stake,
		Odds:       req.Odds,
	}
	if req.FixtureID != 0 {
		h.fillFromPrediction(r.Context(), &e)
	}
	entry, err := bankroll.NewEntry(e, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.cfg.Bankroll.CreateEntry(r.Context(), entry); err != nil {
		slog.Error("api: create bankroll entry", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save entry")
		return
	}
	slog.Info("api: bankroll entry created", "id", entry.ID, "fixture_id", entry.FixtureID, "market", entry.Market)
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) fillFromPrediction(ctx context.Context, e *bankroll.Entry) {
	p, err := h.cfg.Predictions.Find(ctx, e.FixtureID)
	if err != nil {
		slog.Info("api: no prediction for logged fixture", "fixture_id", e.FixtureID, "error", err)
		return
	}
	e.HomeTeam, e.AwayTeam = p.HomeTeam, p.AwayTeam
	if e.MatchLabel == "" {
		e.MatchLabel = p.Label()
	}
	kickoff := p.Kickoff
	e.Kickoff = &kickoff
	m, ok := p.Market(e.Market)
	if !ok {
		return
	}
	if e.Pick == "" {
		e.Pick = m.Pick
	}
	if e.Pick != m.Pick {
		return
	}
	sel := m.Selection
	e.Selection = &sel
	if !e.Odds.Valid {
		e.Odds = decimal.NewNullDecimal(decimal.NewFromFloat(m.Odds))
	}
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	if !h.settling.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "already running"})
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.settling.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()
		rep, err := h.cfg.Settler.Run(ctx)
		if err != nil {
			slog.Warn("api: settlement pass failed", "error", err)
			return
		}
		slog.Info("api: settlement pass done", "checked", rep.Checked, "won", rep.Won, "lost", rep.Lost,
			"void", rep.Void, "unresolvable", rep.Unresolvable)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
