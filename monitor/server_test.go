package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalnine/seasalt/gosim/evolution"
	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/simulation"
)

type fakeTrainer struct {
	status  evolution.Status
	history []evolution.GenerationStats
	best     *evolution.Individual
	baseline genome.Genome
	stopped  atomic.Bool
}

func (f *fakeTrainer) Status() evolution.Status                { return f.status }
func (f *fakeTrainer) History() []evolution.GenerationStats    { return f.history }
func (f *fakeTrainer) Stop()                                   { f.stopped.Store(true) }
func (f *fakeTrainer) BestEver() (*evolution.Individual, bool) { return f.best, f.best != nil }
func (f *fakeTrainer) Baseline() genome.Genome                 { return f.baseline }

func newFakeTrainer() *fakeTrainer {
	return &fakeTrainer{
		status: evolution.Status{IsTraining: true, Generation: 3, TotalGenerations: 10, Progress: 0.3},
		history: []evolution.GenerationStats{
			{Generation: 1, MaxFitness: 40},
			{Generation: 2, MaxFitness: 55},
		},
		best: &evolution.Individual{
			Genome:    genome.DefaultGenome().WithID("champion"),
			Fitness:   55,
			Evaluated: true,
		},
		baseline: genome.BaselineGenome(),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(newFakeTrainer(), simulation.DefaultMatchConfig(), nil)

	rec := get(t, s.Handler(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}

func TestCards(t *testing.T) {
	s := NewServer(newFakeTrainer(), simulation.DefaultMatchConfig(), nil)

	rec := get(t, s.Handler(), "/api/cards")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var cards []CardInfo
	if err := json.NewDecoder(rec.Body).Decode(&cards); err != nil {
		t.Fatalf("Failed to decode cards: %v", err)
	}
	if len(cards) != 15 {
		t.Fatalf("Expected 15 card kinds, got %d", len(cards))
	}

	total := 0
	for _, c := range cards {
		total += c.Count
	}
	if total != 78 {
		t.Errorf("Expected 78 cards in the catalog, got %d", total)
	}
	if cards[0].Name != "Fish" || cards[0].Category != "pair_effect" || cards[0].Effect != "draw_blind" {
		t.Errorf("Unexpected first card: %+v", cards[0])
	}
	if last := cards[len(cards)-1]; last.Name != "Mermaid" || last.Effect != "" {
		t.Errorf("Expected Mermaid without effect last, got %+v", last)
	}
}

func TestStatusAndHistory(t *testing.T) {
	trainer := newFakeTrainer()
	s := NewServer(trainer, simulation.DefaultMatchConfig(), nil)

	var status evolution.Status
	if err := json.NewDecoder(get(t, s.Handler(), "/api/status").Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Generation != 3 || !status.IsTraining {
		t.Errorf("Expected training at generation 3, got %+v", status)
	}

	var history []evolution.GenerationStats
	if err := json.NewDecoder(get(t, s.Handler(), "/api/history").Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(history) != 2 || history[1].MaxFitness != 55 {
		t.Errorf("Expected 2 history entries ending at 55, got %+v", history)
	}
}

func TestBest(t *testing.T) {
	trainer := newFakeTrainer()
	s := NewServer(trainer, simulation.DefaultMatchConfig(), nil)

	rec := get(t, s.Handler(), "/api/best")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var best BestResponse
	if err := json.NewDecoder(rec.Body).Decode(&best); err != nil {
		t.Fatalf("Failed to decode best: %v", err)
	}
	if best.Genome.ID != "champion" || best.Fitness != 55 {
		t.Errorf("Expected champion at 55, got %s at %f", best.Genome.ID, best.Fitness)
	}
	if len(best.Genes) != int(genome.NumGenes) {
		t.Errorf("Expected %d genes, got %d", genome.NumGenes, len(best.Genes))
	}

	trainer.best = nil
	if rec := get(t, s.Handler(), "/api/best"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any evaluation, got %d", rec.Code)
	}
}

func TestShowcase(t *testing.T) {
	s := NewServer(newFakeTrainer(), simulation.DefaultMatchConfig(), nil)

	decode := func(path string) ShowcaseResponse {
		rec := get(t, s.Handler(), path)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp ShowcaseResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode showcase: %v", err)
		}
		return resp
	}

	a := decode("/api/showcase?seed=7")
	b := decode("/api/showcase?seed=7")
	if a.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", a.Seed)
	}
	if len(a.Result.Replay) == 0 {
		t.Error("Showcase should record a replay")
	}
	if a.Result.Tension == nil {
		t.Error("Showcase should track tension")
	}
	if !reflect.DeepEqual(a.Result.Scores, b.Result.Scores) || a.Result.Actions != b.Result.Actions {
		t.Error("Same seed should replay the same game")
	}
	if a.Players[0] != "champion" || a.Players[1] != genome.BaselineID {
		t.Errorf("Expected champion against baseline, got %v", a.Players)
	}

	if rec := get(t, s.Handler(), "/api/showcase?seed=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad seed, got %d", rec.Code)
	}
}

func TestStop(t *testing.T) {
	trainer := newFakeTrainer()
	s := NewServer(trainer, simulation.DefaultMatchConfig(), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stop", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
	if !trainer.stopped.Load() {
		t.Error("Stop was not forwarded to the trainer")
	}

	if rec := get(t, s.Handler(), "/api/stop"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read websocket message: %v", err)
	}
	return msg
}

func TestWebsocketBroadcast(t *testing.T) {
	s := NewServer(newFakeTrainer(), simulation.DefaultMatchConfig(), nil)
	done := make(chan struct{})
	defer close(done)
	go s.Hub().Run(done)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != MessageStatus {
		t.Fatalf("Expected initial status message, got %q", msg.Type)
	}

	// Registration happens before the initial status is sent.
	s.OnGeneration(evolution.GenerationStats{Generation: 4, MaxFitness: 60})

	msg := readMessage(t, conn)
	if msg.Type != MessageGeneration {
		t.Fatalf("Expected generation message, got %q", msg.Type)
	}
	var stats evolution.GenerationStats
	if err := json.Unmarshal(msg.Payload, &stats); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if stats.Generation != 4 || stats.MaxFitness != 60 {
		t.Errorf("Expected generation 4 at 60, got %d at %f", stats.Generation, stats.MaxFitness)
	}
	if msg := readMessage(t, conn); msg.Type != MessageStatus {
		t.Errorf("Expected status after generation, got %q", msg.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "request_status"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageStatus {
		t.Errorf("Expected status reply, got %q", msg.Type)
	}
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 100; i++ {
		hub.Publish(MessageStatus, i) // past the buffer, messages are dropped
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", hub.ClientCount())
	}
}
