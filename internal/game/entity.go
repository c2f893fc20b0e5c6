package game

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"

	"cellarena/internal/config"
	"cellarena/internal/game/spatial"
)

// Food is a static-mass pellet that grows whichever player eats it.
type Food struct {
	ID     string
	X, Y   float64
	Mass   float64
	Radius float64
	Color  string
}

var foodColors = []string{"#2ecc71", "#f1c40f", "#e67e22", "#1abc9c", "#ff6b81"}

// Store owns the three authoritative entity collections — players, food,
// obstacles — and the spatial index that mirrors their positions. A position
// changes either through MovePlayer or, inside Step, by direct assignment
// followed by a Grid.Move before the index is queried, so the index/store
// bijection invariant holds at every tick boundary.
type Store struct {
	world config.World

	players map[string]*Player
	food    map[string]*Food

	grid *spatial.Grid

	nextPlayerID uint64
	nextFoodID   uint64

	rng *rand.Rand
}

// NewStore creates a store for the given world and seeds the steady-state
// food population at bootstrap.
func NewStore(world config.World, rng *rand.Rand) *Store {
	s := &Store{
		world:   world,
		players: make(map[string]*Player),
		food:    make(map[string]*Food),
		grid: spatial.NewGrid(world.MapWidth, world.MapHeight, world.SpatialCellSize,
			world.MaxPlayers+world.FoodCount),
		rng: rng,
	}
	for len(s.food) < world.FoodCount {
		s.spawnFood()
	}
	return s
}

// Grid exposes the spatial index for the simulation step.
func (s *Store) Grid() *spatial.Grid { return s.grid }

// World returns the immutable world configuration this store was built for.
func (s *Store) World() config.World { return s.world }

// PlayerCount returns the number of alive players.
func (s *Store) PlayerCount() int { return len(s.players) }

// FoodCount returns the current food population.
func (s *Store) FoodCount() int { return len(s.food) }

// Player looks up a player by identifier.
func (s *Store) Player(id string) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Players returns alive players sorted by identifier ascending, the
// iteration order the simulation step's determinism contract requires.
func (s *Store) Players() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FoodByID looks up a food pellet by identifier.
func (s *Store) FoodByID(id string) (*Food, bool) {
	f, ok := s.food[id]
	return f, ok
}

// FoodItems returns all food pellets in unspecified order.
func (s *Store) FoodItems() []*Food {
	out := make([]*Food, 0, len(s.food))
	for _, f := range s.food {
		out = append(out, f)
	}
	return out
}

// Obstacles returns the static obstacle list.
func (s *Store) Obstacles() []config.Obstacle { return s.world.Obstacles }

func (s *Store) nextPlayerIDString() string {
	n := atomic.AddUint64(&s.nextPlayerID, 1)
	return fmt.Sprintf("p%02d", n)
}

func (s *Store) nextFoodIDString() string {
	n := atomic.AddUint64(&s.nextFoodID, 1)
	return fmt.Sprintf("f%04d", n)
}

// spawnAttempts bounds the rejection-sampling loop used to place new
// players away from obstacles and other players.
const spawnAttempts = 20

// SpawnPlayer creates and inserts a new alive player with a non-colliding
// spawn point, found by rejection sampling. It does not check the
// admission cap and never returns nil; callers check admission before
// calling this.
func (s *Store) SpawnPlayer(name string) *Player {
	id := s.nextPlayerIDString()

	x, y := s.findSpawnPoint(s.world.PlayerStartMass)

	p := &Player{
		ID:      id,
		Name:    SanitizeName(name),
		Color:   ColorForID(id),
		X:       x,
		Y:       y,
		TargetX: x,
		TargetY: y,
		Mass:    s.world.PlayerStartMass,
		Alive:   true,
	}

	s.players[id] = p
	s.grid.Insert(id, spatial.KindPlayer, x, y)
	return p
}

// findSpawnPoint rejection-samples a point in the map interior at least
// the candidate's radius away from every obstacle and every existing alive
// player's radius, giving up after spawnAttempts and returning the last
// candidate tried.
func (s *Store) findSpawnPoint(startMass float64) (float64, float64) {
	radius := s.world.PlayerRadiusMultiplier * math.Sqrt(startMass)

	var x, y float64
	for attempt := 0; attempt < spawnAttempts; attempt++ {
		x = radius + s.rng.Float64()*(s.world.MapWidth-2*radius)
		y = radius + s.rng.Float64()*(s.world.MapHeight-2*radius)

		if s.collidesWithObstacle(x, y, radius) {
			continue
		}
		if s.collidesWithPlayer(x, y, radius) {
			continue
		}
		return x, y
	}
	return x, y
}

func (s *Store) collidesWithObstacle(x, y, radius float64) bool {
	for _, o := range s.world.Obstacles {
		closestX := clamp(x, o.X, o.X+o.Width)
		closestY := clamp(y, o.Y, o.Y+o.Height)
		dx, dy := x-closestX, y-closestY
		if dx*dx+dy*dy < radius*radius {
			return true
		}
	}
	return false
}

func (s *Store) collidesWithPlayer(x, y, radius float64) bool {
	for _, ref := range s.grid.Query(x, y, radius+s.world.PlayerRadiusMultiplier*math.Sqrt(s.world.PlayerStartMass)*4) {
		if ref.Kind != spatial.KindPlayer {
			continue
		}
		other, ok := s.players[ref.ID]
		if !ok {
			continue
		}
		dx, dy := x-other.X, y-other.Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < radius+other.Radius(s.world.PlayerRadiusMultiplier) {
			return true
		}
	}
	return false
}

// RemovePlayer destroys a player and removes it from the index.
func (s *Store) RemovePlayer(p *Player) {
	delete(s.players, p.ID)
	s.grid.Remove(p.ID, spatial.KindPlayer, p.X, p.Y)
}

// MovePlayer updates a player's position and keeps the spatial index in
// sync. Call this instead of mutating p.X/p.Y directly.
func (s *Store) MovePlayer(p *Player, newX, newY float64) {
	oldX, oldY := p.X, p.Y
	p.X, p.Y = newX, newY
	s.grid.Move(p.ID, spatial.KindPlayer, oldX, oldY, newX, newY)
}

// spawnFood places one pellet at a uniformly random map position. No
// obstacle rejection: food may sit inside safe zones.
func (s *Store) spawnFood() *Food {
	id := s.nextFoodIDString()
	x := s.rng.Float64() * s.world.MapWidth
	y := s.rng.Float64() * s.world.MapHeight

	f := &Food{
		ID:     id,
		X:      x,
		Y:      y,
		Mass:   s.world.FoodMass,
		Radius: s.world.FoodRadius,
		Color:  foodColors[len(s.food)%len(foodColors)],
	}
	s.food[id] = f
	s.grid.Insert(id, spatial.KindFood, x, y)
	return f
}

// RemoveFood destroys a pellet and removes it from the index.
func (s *Store) RemoveFood(f *Food) {
	delete(s.food, f.ID)
	s.grid.Remove(f.ID, spatial.KindFood, f.X, f.Y)
}

// Replenish tops the food population back up to FoodCount.
func (s *Store) Replenish() {
	for len(s.food) < s.world.FoodCount {
		s.spawnFood()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
