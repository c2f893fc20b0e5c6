package game

import (
	"log"

	"cellarena/internal/config"
)

// CommandType is the kind of client intent accepted from a connection.
type CommandType uint8

const (
	CmdJoin CommandType = iota
	CmdRespawn
	CmdMove
	CmdBoost
	CmdDisconnect
)

// Command is one validated-at-parse-time client intent, tagged with the
// connection it arrived on. The tick driver drains these in FIFO order
// (per-client order preserved, cross-client order is receipt order) and
// applies them before the next Step call.
type Command struct {
	Type     CommandType
	ConnID   string
	Name     string // CmdJoin: requested display name, sanitized on apply
	TargetX  float64
	TargetY  float64
	PlayerID string // CmdDisconnect: the player bound to ConnID at disconnect time
}

// Apply mutates the store according to the command, using registry to
// resolve ConnID to a player. It is called once per drained command,
// between ticks, never concurrently with a Step call.
func Apply(store *Store, registry *SessionRegistry, world config.World, cmd Command) *Event {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(store, registry, world, cmd)
	case CmdRespawn:
		return applyRespawn(store, registry, world, cmd)
	case CmdMove:
		applyMove(store, registry, world, cmd)
	case CmdBoost:
		applyBoost(store, registry, cmd)
	}
	return nil
}

func applyJoin(store *Store, registry *SessionRegistry, world config.World, cmd Command) *Event {
	if registry.PlayerFor(cmd.ConnID) != "" {
		return nil // already joined on this connection
	}
	if store.PlayerCount() >= world.MaxPlayers {
		log.Printf("join from %s refused: admission cap %d reached", cmd.ConnID, world.MaxPlayers)
		return nil // admission cap reached; no event is emitted
	}

	p := store.SpawnPlayer(cmd.Name)
	registry.Bind(cmd.ConnID, p.ID)
	registry.BindName(cmd.ConnID, p.Name)
	return &Event{Type: EventPlayerJoined, PlayerID: p.ID}
}

func applyRespawn(store *Store, registry *SessionRegistry, world config.World, cmd Command) *Event {
	name := registry.NameFor(cmd.ConnID)
	if name == "" {
		return nil // never joined on this connection
	}
	// A death unbinds the connection's player ID (PlayerFor returns "") but
	// keeps the name, so an un-bound connection with a name is exactly the
	// respawn-eligible state. If somehow still bound, the player is alive.
	if id := registry.PlayerFor(cmd.ConnID); id != "" {
		if _, alive := store.Player(id); alive {
			return nil // respawn only valid once dead
		}
	}
	if store.PlayerCount() >= world.MaxPlayers {
		log.Printf("respawn from %s refused: admission cap %d reached", cmd.ConnID, world.MaxPlayers)
		return nil
	}

	p := store.SpawnPlayer(name)
	registry.Bind(cmd.ConnID, p.ID)
	return &Event{Type: EventPlayerJoined, PlayerID: p.ID}
}

func applyMove(store *Store, registry *SessionRegistry, world config.World, cmd Command) {
	id := registry.PlayerFor(cmd.ConnID)
	if id == "" {
		return
	}
	p, ok := store.Player(id)
	if !ok {
		return
	}
	p.TargetX = clamp(cmd.TargetX, 0, world.MapWidth)
	p.TargetY = clamp(cmd.TargetY, 0, world.MapHeight)
}

func applyBoost(store *Store, registry *SessionRegistry, cmd Command) {
	id := registry.PlayerFor(cmd.ConnID)
	if id == "" {
		return
	}
	if p, ok := store.Player(id); ok {
		p.ActivateBoost()
	}
}
