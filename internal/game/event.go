package game

// EventType classifies a one-shot notification layered on top of the
// per-tick snapshot. These are never persisted: the arena has no
// cross-session history to replay.
type EventType uint8

const (
	EventPlayerJoined EventType = iota
	EventPlayerDied
)

// String returns the wire name used in the JSON "type" field.
func (t EventType) String() string {
	switch t {
	case EventPlayerJoined:
		return "player_joined"
	case EventPlayerDied:
		return "player_died"
	default:
		return "unknown"
	}
}

// Event carries a one-shot notification alongside its delivery scope.
// PlayerJoined is delivered only to the connection that owns PlayerID;
// PlayerDied is fanned out to every connected client.
type Event struct {
	Type     EventType
	PlayerID string // recipient for PlayerJoined, victim for PlayerDied
}
