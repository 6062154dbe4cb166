// Package api exposes wallet analysis over HTTP JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"degenjudge/internal/domain"
	"degenjudge/internal/logging"
	"degenjudge/internal/observability"
	"degenjudge/internal/solana"
	"degenjudge/internal/verdict"
)

// Analyzer runs the analysis pipeline for one wallet.
type Analyzer interface {
	AnalyzeWallet(ctx context.Context, address string) ([]domain.TokenTrade, error)
}

// TradesResponse is the body of the trades endpoint.
type TradesResponse struct {
	Address string              `json:"address"`
	Trades  []domain.TokenTrade `json:"trades"`
}

// VerdictResponse is the body of the verdict endpoint.
type VerdictResponse struct {
	Address string              `json:"address"`
	Trades  []domain.TokenTrade `json:"trades"`
	Summary verdict.Summary     `json:"summary"`
	Verdict verdict.Verdict     `json:"verdict"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server routes API requests.
type Server struct {
	analyzer Analyzer
	judge    verdict.Generator
	gatherer prometheus.Gatherer
	log      *logrus.Entry
	started  time.Time
}

// Option configures Server.
type Option func(*Server)

// WithGenerator enables the verdict endpoint.
func WithGenerator(g verdict.Generator) Option {
	return func(s *Server) {
		s.judge = g
	}
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = logging.Component(log, "api")
	}
}

// NewServer creates a Server backed by analyzer.
func NewServer(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		log:      logging.Component(nil, "api"),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/wallets/{address}/trades", s.handleTrades)
	mux.HandleFunc("GET /api/wallets/{address}/verdict", s.handleVerdict)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", observability.Handler(s.gatherer))
	}
	return mux
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	trades, ok := s.analyze(w, r, address)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TradesResponse{Address: address, Trades: trades})
}

func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	if s.judge == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: verdict.UnavailableMessage})
		return
	}
	address := r.PathValue("address")
	trades, ok := s.analyze(w, r, address)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, VerdictResponse{
		Address: address,
		Trades:  trades,
		Summary: verdict.Summarize(trades),
		Verdict: s.judge.Generate(r.Context(), trades),
	})
}

// analyze runs the pipeline and writes the error response itself on failure.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, address string) ([]domain.TokenTrade, bool) {
	trades, err := s.analyzer.AnalyzeWallet(r.Context(), address)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, solana.ErrInvalidAddress) {
			status = http.StatusBadRequest
		}
		s.log.WithFields(logrus.Fields{
			"address": address,
			"status":  status,
		}).WithError(err).Warn("analysis request failed")
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	if trades == nil {
		trades = []domain.TokenTrade{}
	}
	return trades, true
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
