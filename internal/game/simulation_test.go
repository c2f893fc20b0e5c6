package game

import (
	"math"
	"math/rand"
	"testing"

	"cellarena/internal/config"
	"cellarena/internal/game/spatial"
)

func emptyWorld() config.World {
	w := config.Default()
	w.FoodCount = 0
	w.Obstacles = nil
	return w
}

func newTestStore(world config.World) *Store {
	return NewStore(world, rand.New(rand.NewSource(1)))
}

func placePlayer(store *Store, id string, x, y, mass float64) *Player {
	p := &Player{ID: id, Name: id, Color: "#fff", X: x, Y: y, TargetX: x, TargetY: y, Mass: mass, Alive: true}
	store.players[id] = p
	store.grid.Insert(id, spatial.KindPlayer, x, y)
	return p
}

func TestStepPlayerEatsFoodGrowsMass(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	p := placePlayer(store, "p01", 1000, 1000, 10)
	p.TargetX, p.TargetY = 1005, 1000

	store.food["f01"] = &Food{ID: "f01", X: 1005, Y: 1000, Mass: 1, Radius: 5}
	store.grid.Insert("f01", spatial.KindFood, 1005, 1000)

	for i := 0; i < 2; i++ {
		Step(store, 1.0/float64(world.TickRate))
	}

	if p.Mass != 11 {
		t.Fatalf("expected mass 11 after eating pellet, got %v", p.Mass)
	}
	if _, ok := store.FoodByID("f01"); ok {
		t.Fatal("expected pellet to be removed after being eaten")
	}
}

func TestStepLargerPlayerEatsSmallerAboveRatio(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	a := placePlayer(store, "p01", 500, 500, 100)
	placePlayer(store, "p02", 510, 500, 80)

	deaths := Step(store, 1.0/float64(world.TickRate))

	if len(deaths) != 1 || deaths[0].VictimID != "p02" {
		t.Fatalf("expected p02 eaten, got %+v", deaths)
	}
	if a.Mass != 180 {
		t.Fatalf("expected winner mass 180, got %v", a.Mass)
	}
	if _, ok := store.Player("p02"); ok {
		t.Fatal("expected p02 removed from store")
	}
}

func TestStepEatRefusedBelowMassRatio(t *testing.T) {
	world := emptyWorld()
	world.EatMassRatio = 1.5
	store := newTestStore(world)
	a := placePlayer(store, "p01", 500, 500, 100)
	placePlayer(store, "p02", 505, 500, 80) // 100 < 1.5*80

	deaths := Step(store, 1.0/float64(world.TickRate))

	if len(deaths) != 0 {
		t.Fatalf("expected no eats below ratio, got %+v", deaths)
	}
	if a.Mass != 100 {
		t.Fatalf("expected unchanged mass, got %v", a.Mass)
	}
	if _, ok := store.Player("p02"); !ok {
		t.Fatal("expected p02 to survive")
	}
}

func TestStepObstacleBlocksMovement(t *testing.T) {
	world := emptyWorld()
	world.Obstacles = []config.Obstacle{{X: 400, Y: 400, Width: 200, Height: 200}}
	store := newTestStore(world)
	p := placePlayer(store, "p01", 395, 500, 10)
	p.TargetX, p.TargetY = 500, 500

	for i := 0; i < 10; i++ {
		Step(store, 1.0/float64(world.TickRate))
	}

	r := p.Radius(world.PlayerRadiusMultiplier)
	if p.X+r > 400+1e-6 {
		t.Fatalf("expected player kept out of obstacle, x=%v radius=%v", p.X, r)
	}
}

func TestStepLeaderboardOrderingMatchesMassDescending(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	placePlayer(store, "p01", 100, 100, 50)
	placePlayer(store, "p02", 200, 200, 90)
	placePlayer(store, "p03", 300, 300, 70)

	lb := NewLeaderboard()
	for _, p := range store.Players() {
		lb.UpdateMass(p.ID, p.Mass)
	}

	top := lb.Top(3)
	want := []string{"p02", "p03", "p01"}
	for i, id := range want {
		if top[i].PlayerID != id {
			t.Errorf("rank %d: expected %s, got %s", i+1, id, top[i].PlayerID)
		}
	}
}

func TestStepAdmissionCapRejectsJoinOverMax(t *testing.T) {
	world := emptyWorld()
	world.MaxPlayers = 1
	store := newTestStore(world)
	registry := NewSessionRegistry()
	registry.OnConnect("c1")
	registry.OnConnect("c2")

	Apply(store, registry, world, Command{Type: CmdJoin, ConnID: "c1", Name: "A"})
	Apply(store, registry, world, Command{Type: CmdJoin, ConnID: "c2", Name: "B"})

	if store.PlayerCount() != 1 {
		t.Fatalf("expected admission cap to hold at 1, got %d", store.PlayerCount())
	}
}

func TestStepDeterministicOrderingNoDoubleEatPerTick(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	// Three players in a line, each able to eat the next: only one eat
	// per tick per player should occur, with no cycles.
	placePlayer(store, "p01", 500, 500, 100)
	placePlayer(store, "p02", 505, 500, 90)
	placePlayer(store, "p03", 510, 500, 80)

	deaths := Step(store, 1.0/float64(world.TickRate))

	if len(deaths) > 2 {
		t.Fatalf("expected at most 2 eats resolved this tick, got %d", len(deaths))
	}
	seen := make(map[string]bool)
	for _, d := range deaths {
		if seen[d.VictimID] {
			t.Fatalf("victim %s eaten twice in one tick", d.VictimID)
		}
		seen[d.VictimID] = true
	}
}

func TestStepPlayerThatAteCannotBeEatenSameTick(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	// p1 eats p2 on its own turn; p3 is large enough to eat p1 too, but p1
	// already ate this tick and must survive to the end of it.
	p3 := placePlayer(store, "p03", 520, 500, 200)
	p1 := placePlayer(store, "p01", 510, 500, 50)
	placePlayer(store, "p02", 505, 500, 10)
	p3.TargetX, p3.TargetY = p3.X, p3.Y
	p1.TargetX, p1.TargetY = p1.X, p1.Y

	deaths := Step(store, 1.0/float64(world.TickRate))

	for _, d := range deaths {
		if d.VictimID == "p01" {
			t.Fatalf("p01 ate this tick and must not also be eaten, deaths=%+v", deaths)
		}
	}
	if _, ok := store.Player("p01"); !ok {
		t.Fatal("expected p01 to survive the tick it ate in")
	}
}

func TestStepBoostWindowExpiresAfterDuration(t *testing.T) {
	world := emptyWorld()
	store := newTestStore(world)
	p := placePlayer(store, "p01", 1000, 1000, 10)
	p.TargetX, p.TargetY = 1000, 2000 // far target so motion never "arrives"
	p.ActivateBoost()

	dt := 1.0 / float64(world.TickRate)
	ticksToExpire := int(math.Ceil(boostDuration/dt)) + 1
	for i := 0; i < ticksToExpire; i++ {
		Step(store, dt)
	}

	if p.IsBoosting() {
		t.Fatal("expected boost window to have expired")
	}
}

func TestStepBoostCannotRetriggerWhileActive(t *testing.T) {
	p := &Player{ID: "p01", Mass: 10}
	p.ActivateBoost()
	remaining := p.BoostRemaining
	p.ActivateBoost()

	if p.BoostRemaining != remaining {
		t.Fatalf("expected boost retrigger to be a no-op, remaining changed from %v to %v", remaining, p.BoostRemaining)
	}
}

func TestStepFoodReplenishesToSteadyState(t *testing.T) {
	world := config.Default()
	world.FoodCount = 20
	world.Obstacles = nil
	store := newTestStore(world)

	// One large player centered on the map (radius ~949 px, still inside the
	// map bounds) eats every pellet within its radius in a single step;
	// replenishment must bring the population back to FoodCount.
	const startMass = 400000
	p := placePlayer(store, "p01", world.MapWidth/2, world.MapHeight/2, startMass)
	p.TargetX, p.TargetY = p.X, p.Y

	Step(store, 1.0/float64(world.TickRate))

	if p.Mass == startMass {
		t.Fatal("expected the player to eat at least one pellet")
	}
	if store.FoodCount() != world.FoodCount {
		t.Fatalf("expected food replenished to %d, got %d", world.FoodCount, store.FoodCount())
	}
}
