package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tokenwatch/internal/market"
	"tokenwatch/internal/market/memorystore"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HistoryLoader is the read side of the snapshot store.
type HistoryLoader interface {
	Load() (market.History, error)
}

// PriceHistorian returns the recorded prices of one symbol.
type PriceHistorian interface {
	PriceHistory(symbol string) ([]market.PricePoint, error)
}

// Server exposes the collected market data as JSON over HTTP and WebSocket.
type Server struct {
	history  HistoryLoader
	prices   PriceHistorian
	reports  *memorystore.ReportStore
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
	checks   []healthCheck
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) bool
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck makes /healthz report 503 whenever check fails.
func WithHealthCheck(name string, check func(ctx context.Context) bool) Option {
	return func(s *Server) {
		s.checks = append(s.checks, healthCheck{name: name, check: check})
	}
}

func NewServer(history HistoryLoader, prices PriceHistorian, reports *memorystore.ReportStore, hub *Hub,
	logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		history: history,
		prices:  prices,
		reports: reports,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the dashboard API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("GET /api/movers", s.handleMovers)
	mux.HandleFunc("GET /api/history/{symbol}", s.handleHistory)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, hc := range s.checks {
		if !hc.check(ctx) {
			s.logger.Warn("health check failed", zap.String("check", hc.name))
			http.Error(w, hc.name+" unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	h, err := s.history.Load()
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, market.Summarize(h))
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tokens": s.reports.GetAll()})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	movers := s.reports.Movers()
	writeJSON(w, http.StatusOK, map[string]any{
		"top_gainers": nonNil(movers.TopGainers),
		"top_losers":  nonNil(movers.TopLosers),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	points, err := s.prices.PriceHistory(symbol)
	if err != nil {
		s.logger.Error("failed to load price history", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	if len(points) == 0 {
		writeError(w, http.StatusNotFound, "symbol not tracked: "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "points": points})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := s.hub.add(conn)
	go s.hub.serve(c)
}

func nonNil(q []market.TokenQuote) []market.TokenQuote {
	if q == nil {
		return []market.TokenQuote{}
	}
	return q
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
