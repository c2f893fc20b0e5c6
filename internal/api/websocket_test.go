package api_test

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cellarena/internal/api"
	"cellarena/internal/config"
	"cellarena/internal/game"

	"github.com/gorilla/websocket"
)

func TestWebSocketJoinCommandSpawnsPlayer(t *testing.T) {
	world := config.Default()
	world.FoodCount = 0
	world.MaxPlayers = 2
	world.TickRate = 50
	world.Obstacles = nil

	engine := game.NewEngine(world, rand.New(rand.NewSource(1)))
	hub := api.NewWebSocketHub(engine)
	engine.Start()
	defer engine.Stop()

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	join := map[string]string{"type": "join_game", "name": "Rex"}
	payload, _ := json.Marshal(join)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)

	sawJoinedEvent := false
	for !sawJoinedEvent {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if envelope.Type == "player_joined" {
			sawJoinedEvent = true
		}
		if time.Now().After(deadline) {
			break
		}
	}

	if !sawJoinedEvent {
		t.Fatal("expected a player_joined event over the socket")
	}
	if engine.Store().PlayerCount() != 1 {
		t.Fatalf("expected 1 player in the store, got %d", engine.Store().PlayerCount())
	}
}

func TestWebSocketClientCountTracksConnections(t *testing.T) {
	world := config.Default()
	world.FoodCount = 0
	world.Obstacles = nil

	engine := game.NewEngine(world, rand.New(rand.NewSource(1)))
	hub := api.NewWebSocketHub(engine)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now()
	for hub.ClientCount() != 1 && time.Now().Before(deadline.Add(time.Second)) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", hub.ClientCount())
	}

	conn.Close()

	for hub.ClientCount() != 0 && time.Now().Before(deadline.Add(2*time.Second)) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 connected clients after close, got %d", hub.ClientCount())
	}
}
