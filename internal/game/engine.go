package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"cellarena/internal/config"
	"cellarena/internal/game/spatial"
)

// commandQueueCapacity bounds the inbound command queue. It is sized well
// above any plausible per-tick arrival rate; a full queue means commands
// are arriving faster than the tick driver can drain them, at which point
// SubmitCommand starts rejecting new commands rather than growing without
// bound.
const commandQueueCapacity = 4096

// maxDeltaTicks caps a single Step's dt to this many nominal ticks, so a
// stalled process (GC pause, debugger, scheduler contention) resumes at
// normal speed instead of fast-forwarding the simulation through the gap.
const maxDeltaTicks = 4

// Engine is the tick driver: it owns the authoritative store, drains
// pending commands, advances the simulation at a fixed rate, and produces
// one snapshot per tick for the broadcast layer to fan out.
type Engine struct {
	world config.World

	store       *Store
	registry    *SessionRegistry
	leaderboard *Leaderboard
	snapshots   *SnapshotPool
	commands    *spatial.LockFreeQueue[Command]

	mu       sync.Mutex
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64
	lastTick  time.Time

	onEvent    func(Event)
	onTick     func(*Snapshot)
	onStepTime func(time.Duration)
}

// NewEngine builds a tick driver for the given world, with its own
// deterministic entity store seeded at the steady-state food population.
func NewEngine(world config.World, rng *rand.Rand) *Engine {
	return &Engine{
		world:       world,
		store:       NewStore(world, rng),
		registry:    NewSessionRegistry(),
		leaderboard: NewLeaderboard(),
		snapshots:   NewSnapshotPool(world.MaxPlayers, world.FoodCount),
		commands:    spatial.NewLockFreeQueue[Command](commandQueueCapacity),
		stopChan:    make(chan struct{}),
	}
}

// Store exposes the entity store for read-only inspection (health check,
// debug endpoint).
func (e *Engine) Store() *Store { return e.store }

// Registry exposes the session registry for the connection layer.
func (e *Engine) Registry() *SessionRegistry { return e.registry }

// SetEventHandler registers the callback invoked once per emitted Event,
// from the tick goroutine. The handler must not block.
func (e *Engine) SetEventHandler(fn func(Event)) { e.onEvent = fn }

// SetTickHandler registers the callback invoked once per tick with the
// freshly published snapshot, from the tick goroutine. The handler must
// not block or retain the pointer past the call.
func (e *Engine) SetTickHandler(fn func(*Snapshot)) { e.onTick = fn }

// SetStepTimeHandler registers the callback invoked once per tick with the
// wall-clock time Step itself took, for observability.
func (e *Engine) SetStepTimeHandler(fn func(time.Duration)) { e.onStepTime = fn }

// SubmitCommand enqueues a command for processing on the next tick.
// Returns false if the inbound queue is full; the caller should treat this
// as backpressure rather than retrying synchronously.
func (e *Engine) SubmitCommand(cmd Command) bool {
	return e.commands.TryPush(cmd)
}

// Snapshot returns the most recently published snapshot.
func (e *Engine) Snapshot() *Snapshot { return e.snapshots.AcquireRead() }

// Start begins the fixed-rate tick loop in its own goroutine. Calling
// Start on an already-running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.mu.Unlock()

	period := time.Second / time.Duration(e.world.TickRate)
	e.ticker = time.NewTicker(period)

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("tick driver started at %d ticks/sec", e.world.TickRate)
}

// Stop halts the tick loop. Safe to call on an already-stopped engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("tick driver stopped")
}

// tick drains pending commands, advances the simulation by one step, and
// publishes a fresh snapshot. It runs on the single tick goroutine, so the
// store never needs its own lock: all mutation happens here.
func (e *Engine) tick() {
	now := time.Now()
	nominal := time.Second / time.Duration(e.world.TickRate)
	dt := now.Sub(e.lastTick)
	if cap := nominal * maxDeltaTicks; dt > cap {
		dt = cap
	}
	e.lastTick = now

	e.drainCommands()

	stepStart := time.Now()
	deaths := Step(e.store, dt.Seconds())
	if e.onStepTime != nil {
		e.onStepTime(time.Since(stepStart))
	}
	for _, death := range deaths {
		e.leaderboard.Remove(death.VictimID)
		connID := e.registry.ConnFor(death.VictimID)
		e.registry.Unbind(connID)
		e.emit(Event{Type: EventPlayerDied, PlayerID: death.VictimID})
	}

	for _, p := range e.store.Players() {
		e.leaderboard.UpdateMass(p.ID, p.Mass)
	}

	e.tickCount++
	snap := e.snapshots.AcquireWrite()
	BuildSnapshot(snap, e.store, e.leaderboard, e.tickCount)
	e.snapshots.PublishWrite()

	if e.onTick != nil {
		e.onTick(snap)
	}
}

func (e *Engine) drainCommands() {
	for {
		cmd, ok := e.commands.TryPop()
		if !ok {
			return
		}
		if cmd.Type == CmdDisconnect {
			e.applyDisconnect(cmd)
			continue
		}
		if evt := Apply(e.store, e.registry, e.world, cmd); evt != nil {
			e.emit(*evt)
		}
	}
}

// applyDisconnect removes the connection's player from the store and
// leaderboard, and lets the registry forget the connection entirely. It
// runs on the tick goroutine like every other store mutation, since the
// player ID was resolved and carried on the command at disconnect time,
// before the registry's own record of it could be unbound by a concurrent
// death or overwritten by a rejoin.
func (e *Engine) applyDisconnect(cmd Command) {
	if cmd.PlayerID != "" {
		if p, ok := e.store.Player(cmd.PlayerID); ok {
			e.store.RemovePlayer(p)
			e.leaderboard.Remove(cmd.PlayerID)
		}
	}
	e.registry.OnDisconnect(cmd.ConnID)
}

func (e *Engine) emit(evt Event) {
	if e.onEvent != nil {
		e.onEvent(evt)
	}
}
