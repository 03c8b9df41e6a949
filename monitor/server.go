// Package monitor serves a read-only JSON view of a training run and pushes
// generation updates over a websocket.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/evolution"
	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/simulation"
)

// Trainer is the part of a training run the monitor reads.
// *evolution.EvolutionEngine implements it.
type Trainer interface {
	Status() evolution.Status
	History() []evolution.GenerationStats
	BestEver() (*evolution.Individual, bool)
	Baseline() genome.Genome
	Stop()
}

// CardInfo is one entry of GET /api/cards.
type CardInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Value    int    `json:"value"`
	Count    int    `json:"count"`
	Effect   string `json:"effect,omitempty"`
}

// BestResponse is the body of GET /api/best.
type BestResponse struct {
	Genome  genome.Genome      `json:"genome"`
	Fitness float64            `json:"fitness"`
	Genes   map[string]float64 `json:"genes"`
}

// ShowcaseResponse is the body of GET /api/showcase: one recorded match of
// the best genome against the baseline, with replay and tension.
type ShowcaseResponse struct {
	Seed    uint64                `json:"seed"`
	Players []string              `json:"players"`
	Result  simulation.GameResult `json:"result"`
}

// Server is the monitor HTTP server.
type Server struct {
	trainer Trainer
	match   simulation.MatchConfig
	hub     *Hub
	logger  *zap.Logger
	router  chi.Router

	showcaseSeed atomic.Uint64
}

// NewServer builds the router. match configures showcase games; a nil
// logger discards log output.
func NewServer(trainer Trainer, match simulation.MatchConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		trainer: trainer,
		match:   match,
		hub:     NewHub(),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/cards", handleCards)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/best", s.handleBest)
	r.Get("/api/showcase", s.handleShowcase)
	r.Post("/api/stop", s.handleStop)
	r.Get("/ws", s.serveWS)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// OnGeneration publishes a finished generation and the new status. It has
// the signature of EvolutionEngine.OnGenerationComplete.
func (s *Server) OnGeneration(stats evolution.GenerationStats) {
	s.hub.Publish(MessageGeneration, stats)
	s.hub.Publish(MessageStatus, s.trainer.Status())
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx.Done())

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()
	s.logger.Info("monitor listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
	case err, ok := <-serverErrCh:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("monitor shutdown failed", zap.Error(err))
		return server.Close()
	}
	return nil
}

func handleCards(w http.ResponseWriter, r *http.Request) {
	kinds := engine.Catalog()
	cards := make([]CardInfo, len(kinds))
	for i, k := range kinds {
		cards[i] = CardInfo{
			Name:     k.Name,
			Category: k.Category.String(),
			Value:    k.Value,
			Count:    k.Count,
		}
		if k.Effect != engine.EffectNone {
			cards[i].Effect = k.Effect.String()
		}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trainer.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trainer.History())
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	best, ok := s.trainer.BestEver()
	if !ok {
		writeError(w, http.StatusNotFound, "no genome evaluated yet")
		return
	}
	writeJSON(w, http.StatusOK, BestResponse{
		Genome:  best.Genome,
		Fitness: best.Fitness,
		Genes:   best.Genome.GeneMap(),
	})
}

// handleShowcase plays the best genome against the baseline with replay
// recording. ?seed= fixes the match; otherwise each call uses the next seed.
func (s *Server) handleShowcase(w http.ResponseWriter, r *http.Request) {
	best, ok := s.trainer.BestEver()
	if !ok {
		writeError(w, http.StatusNotFound, "no genome evaluated yet")
		return
	}

	seed := s.showcaseSeed.Add(1)
	if raw := r.URL.Query().Get("seed"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid seed")
			return
		}
		seed = parsed
	}

	cfg := s.match
	cfg.PlayerCount = 2
	cfg.RecordReplay = true
	cfg.EnableLogging = true
	cfg.TrackTension = true
	baseline := s.trainer.Baseline()
	players := []genome.Genome{best.Genome, baseline}

	result, err := simulation.RunGame(players, cfg, seed)
	if err != nil {
		s.logger.Error("showcase game failed", zap.Uint64("seed", seed), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ShowcaseResponse{
		Seed:    seed,
		Players: []string{best.Genome.ID, baseline.ID},
		Result:  result,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.trainer.Stop()
	s.logger.Info("stop requested from monitor", zap.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, map[string]bool{"stopping": true})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{send: make(chan []byte, 16)}
	s.hub.register(c)

	c.sendJSON(wsMessage{Type: MessageStatus, Payload: mustMarshal(s.trainer.Status())})

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, c.send); err != nil {
			return
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.unregister(c)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_status":
			c.sendJSON(wsMessage{Type: MessageStatus, Payload: mustMarshal(s.trainer.Status())})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
