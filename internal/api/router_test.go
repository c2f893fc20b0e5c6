package api_test

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cellarena/internal/api"
	"cellarena/internal/config"
	"cellarena/internal/game"
)

func testEngine() *game.Engine {
	world := config.Default()
	world.FoodCount = 3
	world.MaxPlayers = 2
	world.Obstacles = nil
	return game.NewEngine(world, rand.New(rand.NewSource(1)))
}

func newTestRouter(t *testing.T, engine *game.Engine) http.Handler {
	t.Helper()
	cfg := api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, CleanupInterval: time.Minute}
	return api.NewRouter(api.RouterConfig{
		Engine:          engine,
		RateLimitConfig: &cfg,
		DisableLogging:  true,
	})
}

func TestHealthEndpointReportsPlayerAndFoodCounts(t *testing.T) {
	engine := testEngine()
	router := newTestRouter(t, engine)

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Players int    `json:"players"`
		Food    int    `json:"food"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Fatalf("expected status healthy, got %q", body.Status)
	}
	if body.Players != 0 {
		t.Fatalf("expected 0 players before any join, got %d", body.Players)
	}
	if body.Food != 3 {
		t.Fatalf("expected 3 food, got %d", body.Food)
	}
}

func TestGetStateEndpointReturnsSnapshot(t *testing.T) {
	engine := testEngine()
	router := newTestRouter(t, engine)

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Food) != 0 {
		// Snapshot is only populated after the engine has ticked at least
		// once; prior to that AcquireRead returns a zero-value slot.
		t.Logf("snapshot already has %d food entries", len(snap.Food))
	}
}

func TestHealthEndpointRejectsOverRateLimit(t *testing.T) {
	engine := testEngine()
	cfg := api.RateLimitConfig{RequestsPerSecond: 0.0001, Burst: 1, CleanupInterval: time.Minute}
	router := api.NewRouter(api.RouterConfig{
		Engine:          engine,
		RateLimitConfig: &cfg,
		DisableLogging:  true,
	})

	ts := httptest.NewServer(router)
	defer ts.Close()

	first, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", first.StatusCode)
	}

	second, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	defer second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate-limited, got %d", second.StatusCode)
	}
}
