package game

import (
	"math"
	"sort"

	"cellarena/internal/config"
	"cellarena/internal/game/spatial"
)

// DeathEvent records a player eaten during a Step call, for the broadcast
// layer to turn into a player_died message.
type DeathEvent struct {
	VictimID string
}

// Step advances the world by dt seconds, in the exact order the simulation
// contract specifies: motion integration, map clamping, obstacle
// resolution, spatial index update, player-eats-food, player-eats-player,
// food replenishment. It is a pure function of (store, dt) — no network
// I/O, no wall-clock reads, no goroutines — so it is safe to call directly
// from tests.
func Step(store *Store, dt float64) []DeathEvent {
	world := store.World()
	players := store.Players() // sorted by ID ascending

	integrateMotion(players, world.PlayerBaseSpeed, world.SpeedMassExponent, dt)
	clampToMap(players, world)
	resolveObstacles(players, world)
	updateSpatialIndex(store, players)

	resolveFoodEats(store, players)
	deaths := resolvePlayerEats(store, players, world.EatMassRatio)

	store.Replenish()

	return deaths
}

func integrateMotion(players []*Player, baseSpeed, massExponent, dt float64) {
	for _, p := range players {
		dx := p.TargetX - p.X
		dy := p.TargetY - p.Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < moveEpsilon {
			if p.BoostRemaining > 0 {
				p.BoostRemaining -= dt
				if p.BoostRemaining < 0 {
					p.BoostRemaining = 0
				}
			}
			continue
		}

		speed := p.Speed(baseSpeed, massExponent)
		if p.BoostRemaining > 0 {
			speed *= boostMultiplier
			p.BoostRemaining -= dt
			if p.BoostRemaining < 0 {
				p.BoostRemaining = 0
			}
		}

		step := speed * dt
		if step > dist {
			step = dist
		}
		p.X += dx / dist * step
		p.Y += dy / dist * step
	}
}

func clampToMap(players []*Player, world config.World) {
	for _, p := range players {
		r := p.Radius(world.PlayerRadiusMultiplier)
		p.X = clamp(p.X, r, world.MapWidth-r)
		p.Y = clamp(p.Y, r, world.MapHeight-r)
	}
}

func resolveObstacles(players []*Player, world config.World) {
	for _, p := range players {
		r := p.Radius(world.PlayerRadiusMultiplier)
		for _, o := range world.Obstacles {
			resolveObstacle(p, o, r)
		}
	}
}

func resolveObstacle(p *Player, o config.Obstacle, radius float64) {
	left, right := o.X, o.X+o.Width
	top, bottom := o.Y, o.Y+o.Height

	closestX := clamp(p.X, left, right)
	closestY := clamp(p.Y, top, bottom)
	dx, dy := p.X-closestX, p.Y-closestY
	distSq := dx*dx + dy*dy

	if distSq >= radius*radius {
		return
	}

	dist := math.Sqrt(distSq)
	if dist > 1e-9 {
		nx, ny := dx/dist, dy/dist
		p.X = closestX + nx*radius
		p.Y = closestY + ny*radius
		return
	}

	// Center lies inside (or exactly on the boundary of) the obstacle: push
	// out along the axis of minimum penetration.
	penLeft := p.X - left
	penRight := right - p.X
	penTop := p.Y - top
	penBottom := bottom - p.Y

	min := penLeft
	axis := 0
	if penRight < min {
		min = penRight
		axis = 1
	}
	if penTop < min {
		min = penTop
		axis = 2
	}
	if penBottom < min {
		min = penBottom
		axis = 3
	}

	switch axis {
	case 0:
		p.X = left - radius
	case 1:
		p.X = right + radius
	case 2:
		p.Y = top - radius
	case 3:
		p.Y = bottom + radius
	}
}

func updateSpatialIndex(store *Store, players []*Player) {
	for _, p := range players {
		// Grid.Move finds the player's previous cell through its cached cell
		// key, so passing the current position as both old and new still
		// relocates the entry when the player crossed a cell boundary, and
		// is a no-op when it did not.
		store.Grid().Move(p.ID, spatial.KindPlayer, p.X, p.Y, p.X, p.Y)
	}
}

func resolveFoodEats(store *Store, players []*Player) {
	world := store.World()
	for _, p := range players {
		radius := p.Radius(world.PlayerRadiusMultiplier)
		for _, ref := range store.Grid().Query(p.X, p.Y, radius) {
			if ref.Kind != spatial.KindFood {
				continue
			}
			f, ok := store.FoodByID(ref.ID)
			if !ok {
				continue
			}
			dx, dy := f.X-p.X, f.Y-p.Y
			if math.Sqrt(dx*dx+dy*dy) >= radius {
				continue
			}
			p.Mass += f.Mass
			store.RemoveFood(f)
		}
	}
}

func resolvePlayerEats(store *Store, players []*Player, eatMassRatio float64) []DeathEvent {
	eaten := make(map[string]bool)
	ate := make(map[string]bool)
	var deaths []DeathEvent

	world := store.World()

	for _, p := range players {
		if eaten[p.ID] || ate[p.ID] {
			continue
		}
		radius := p.Radius(world.PlayerRadiusMultiplier)

		for _, ref := range store.Grid().Query(p.X, p.Y, radius) {
			if ref.Kind != spatial.KindPlayer || ref.ID == p.ID {
				continue
			}
			if eaten[ref.ID] || eaten[p.ID] || ate[ref.ID] {
				continue // ref already ate this tick: it can't also be eaten
			}
			other, ok := store.Player(ref.ID)
			if !ok {
				continue
			}

			dx, dy := other.X-p.X, other.Y-p.Y
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= radius {
				continue // outside p's radius: not p's turn to eat this pair
			}
			if p.Mass == other.Mass {
				continue // tie: no eat
			}
			if p.Mass < other.Mass {
				continue // other is larger; handled on other's own turn
			}
			if p.Mass < eatMassRatio*other.Mass {
				continue // ratio insufficient
			}

			p.Mass += other.Mass
			eaten[other.ID] = true
			ate[p.ID] = true
			store.RemovePlayer(other)
			deaths = append(deaths, DeathEvent{VictimID: other.ID})
			break
		}
	}

	sort.Slice(deaths, func(i, j int) bool { return deaths[i].VictimID < deaths[j].VictimID })
	return deaths
}
