package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"cellarena/internal/game"
	"cellarena/internal/game/spatial"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal caps total concurrent connections server-wide.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps concurrent connections from one address.
	MaxWSConnectionsPerIP = 10

	// outboundQueueCapacity is K from the broadcast layer's bounded,
	// drop-oldest per-client outbound queue.
	outboundQueueCapacity = 5
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// inboundMessage is the wire shape of a client-submitted command.
type inboundMessage struct {
	Type string  `json:"type"`
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// wsClient tracks one connection: its socket, its bounded outbound queue,
// and a notify channel so the write pump doesn't busy-poll the queue.
type wsClient struct {
	connID string
	conn   *websocket.Conn
	ip     string
	out    *spatial.DropOldestQueue[[]byte]
	notify chan struct{}
}

func (c *wsClient) enqueue(payload []byte) {
	c.out.Push(payload)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// WebSocketHub owns every live connection and bridges it to the tick
// driver: inbound messages become Commands on the engine's intake queue,
// and every tick's snapshot (plus one-shot events) fan out to clients.
type WebSocketHub struct {
	engine *game.Engine

	mu      sync.RWMutex
	clients map[string]*wsClient

	wsLimiter *WebSocketRateLimiter
	nextConn  uint64
}

// NewWebSocketHub creates a hub wired to the given engine. It registers
// itself as the engine's event and tick handler, so constructing the hub
// is enough to start receiving callbacks once the engine starts ticking.
func NewWebSocketHub(engine *game.Engine) *WebSocketHub {
	h := &WebSocketHub{
		engine:    engine,
		clients:   make(map[string]*wsClient),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	engine.SetTickHandler(h.onTick)
	engine.SetEventHandler(h.onEvent)
	return h
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) onTick(snap *game.Snapshot) {
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		*game.Snapshot
	}{Type: "game_state", Snapshot: snap})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(payload)
	}
	UpdatePlayerCount(len(snap.Players))
	UpdateFoodCount(len(snap.Food))
}

func (h *WebSocketHub) onEvent(evt game.Event) {
	if evt.Type == game.EventPlayerDied {
		payload, err := json.Marshal(struct {
			Type     string `json:"type"`
			PlayerID string `json:"playerId"`
		}{Type: evt.Type.String(), PlayerID: evt.PlayerID})
		if err != nil {
			return
		}
		h.mu.RLock()
		defer h.mu.RUnlock()
		for _, c := range h.clients {
			c.enqueue(payload)
		}
		return
	}

	// player_joined: deliver the joining player's own spawn state, only to
	// the connection that owns it.
	p, ok := h.engine.Store().Player(evt.PlayerID)
	if !ok {
		return
	}
	snap := game.PlayerSnapshot{
		ID:     p.ID,
		Name:   p.Name,
		X:      p.X,
		Y:      p.Y,
		Mass:   p.Mass,
		Radius: p.Radius(h.engine.Store().World().PlayerRadiusMultiplier),
		Color:  p.Color,
	}
	payload, err := json.Marshal(struct {
		Type     string             `json:"type"`
		PlayerID string             `json:"playerId"`
		Player   game.PlayerSnapshot `json:"player"`
	}{Type: evt.Type.String(), PlayerID: evt.PlayerID, Player: snap})
	if err != nil {
		return
	}

	connID := h.engine.Registry().ConnFor(evt.PlayerID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		c.enqueue(payload)
	}
}

// HandleWebSocket upgrades the connection, registers it with the session
// registry, and starts its read and write pumps.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= MaxWSConnectionsTotal {
		log.Printf("WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	connID := "c" + itoa(atomic.AddUint64(&h.nextConn, 1))
	client := &wsClient{
		connID: connID,
		conn:   conn,
		ip:     ip,
		out:    spatial.NewDropOldestQueue[[]byte](outboundQueueCapacity),
		notify: make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.clients[connID] = client
	h.mu.Unlock()
	h.engine.Registry().OnConnect(connID)
	UpdateWSConnections(h.ClientCount())

	go h.writePump(client)
	h.readPump(client)
}

func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.disconnect(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("dropping malformed message from %s: %v", c.connID, err)
			continue
		}

		cmd, ok := toCommand(c.connID, msg)
		if !ok {
			log.Printf("dropping unknown command %q from %s", msg.Type, c.connID)
			continue
		}
		if !h.engine.SubmitCommand(cmd) {
			log.Printf("command queue full, dropping %s from %s", msg.Type, c.connID)
		}
	}
}

func toCommand(connID string, msg inboundMessage) (game.Command, bool) {
	switch msg.Type {
	case "join_game":
		return game.Command{Type: game.CmdJoin, ConnID: connID, Name: msg.Name}, true
	case "respawn":
		return game.Command{Type: game.CmdRespawn, ConnID: connID}, true
	case "player_move":
		return game.Command{Type: game.CmdMove, ConnID: connID, TargetX: msg.X, TargetY: msg.Y}, true
	case "player_boost":
		return game.Command{Type: game.CmdBoost, ConnID: connID}, true
	default:
		return game.Command{}, false
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	var reportedDrops uint64
	for range c.notify {
		for {
			payload, ok := c.out.TryPop()
			if !ok {
				break
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			IncrementWSMessagesOut()
		}
		for dropped := c.out.Dropped(); reportedDrops < dropped; reportedDrops++ {
			IncrementWSMessagesDropped()
		}
	}
}

func (h *WebSocketHub) disconnect(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c.connID)
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)

	// The store and leaderboard are only safe to mutate from the tick
	// goroutine, so removal is a command like any other client intent. The
	// player ID is captured here, before the registry forgets the
	// connection, since CmdDisconnect carries it rather than looking it up
	// again once drained.
	playerID := h.engine.Registry().PlayerFor(c.connID)
	disconnectCmd := game.Command{Type: game.CmdDisconnect, ConnID: c.connID, PlayerID: playerID}
	if !h.engine.SubmitCommand(disconnectCmd) {
		log.Printf("command queue full, dropping disconnect cleanup for %s", c.connID)
	}

	close(c.notify)
	c.conn.Close()
	UpdateWSConnections(h.ClientCount())
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
