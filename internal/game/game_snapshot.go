package game

import (
	"math"
	"sync/atomic"
	"time"
)

// PlayerSnapshot is an immutable, wire-shaped copy of one alive player.
type PlayerSnapshot struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// FoodSnapshot is an immutable, wire-shaped copy of one food pellet.
type FoodSnapshot struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// ObstacleSnapshot is an immutable, wire-shaped copy of one static obstacle.
// Obstacles never move, but the broadcast layer still ships them so a
// freshly-joined client can render the map without a second request.
type ObstacleSnapshot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LeaderRow is one ranked row of the broadcast leaderboard.
type LeaderRow struct {
	Name string  `json:"name"`
	Mass float64 `json:"mass"`
}

// Snapshot is a complete immutable world state for one tick, ready to
// marshal onto the wire. All slices are pre-allocated and reused across
// ticks to avoid per-tick garbage.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"-"`

	Players     []PlayerSnapshot   `json:"players"`
	Food        []FoodSnapshot     `json:"food"`
	Obstacles   []ObstacleSnapshot `json:"obstacles"`
	Leaderboard []LeaderRow        `json:"leaderboard"`
}

const leaderboardSize = 10

// SnapshotPool triple-buffers Snapshot values so the tick driver (producer)
// and the broadcast layer (consumer) never block on each other: the
// producer always writes into a slot the consumer isn't currently reading.
type SnapshotPool struct {
	snapshots [3]Snapshot
	writeIdx  uint32 // atomic
	readIdx   uint32 // atomic
	sequence  uint64 // atomic
}

// NewSnapshotPool pre-allocates the three buffer slots with capacity for
// maxPlayers players and maxFood pellets, so steady-state operation never
// grows a slice mid-tick.
func NewSnapshotPool(maxPlayers, maxFood int) *SnapshotPool {
	pool := &SnapshotPool{}
	for i := range pool.snapshots {
		pool.snapshots[i] = Snapshot{
			Players: make([]PlayerSnapshot, 0, maxPlayers),
			Food:    make([]FoodSnapshot, 0, maxFood),
		}
	}
	return pool
}

// AcquireWrite returns the next write slot with slices reset but capacity
// preserved. Producer-only: call once per tick from the tick driver.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Players = snap.Players[:0]
	snap.Food = snap.Food[:0]
	snap.Obstacles = snap.Obstacles[:0]
	snap.Leaderboard = snap.Leaderboard[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the most recently acquired write slot visible to
// readers. Producer-only: call after the snapshot is fully populated.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot. Consumer-only; safe
// to call concurrently with AcquireWrite/PublishWrite from the tick driver.
func (p *SnapshotPool) AcquireRead() *Snapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// BuildSnapshot populates a write slot from the current store state and a
// leaderboard, applying the top-N cap to the leaderboard section.
func BuildSnapshot(snap *Snapshot, store *Store, lb *Leaderboard, tick uint64) {
	snap.Tick = tick

	for _, p := range store.Players() {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			X:      p.X,
			Y:      p.Y,
			Mass:   p.Mass,
			Radius: p.Radius(store.World().PlayerRadiusMultiplier),
			Color:  p.Color,
		})
	}

	for _, f := range store.FoodItems() {
		snap.Food = append(snap.Food, FoodSnapshot{
			ID:     f.ID,
			X:      math.Round(f.X),
			Y:      math.Round(f.Y),
			Radius: f.Radius,
			Color:  f.Color,
		})
	}

	for _, o := range store.Obstacles() {
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{
			X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
		})
	}

	for _, entry := range lb.Top(leaderboardSize) {
		p, ok := store.Player(entry.PlayerID)
		if !ok {
			continue
		}
		snap.Leaderboard = append(snap.Leaderboard, LeaderRow{Name: p.Name, Mass: entry.Mass})
	}
}
