package game

import (
	"math/rand"
	"testing"

	"cellarena/internal/config"
)

func testStoreWorld() config.World {
	w := config.Default()
	w.FoodCount = 10
	w.MaxPlayers = 5
	w.Obstacles = nil
	return w
}

func TestNewStoreSeedsSteadyStateFood(t *testing.T) {
	store := NewStore(testStoreWorld(), rand.New(rand.NewSource(1)))
	if store.FoodCount() != 10 {
		t.Fatalf("expected 10 food pellets at bootstrap, got %d", store.FoodCount())
	}
}

func TestSpawnPlayerInsertsIntoStoreAndGrid(t *testing.T) {
	store := NewStore(testStoreWorld(), rand.New(rand.NewSource(1)))
	p := store.SpawnPlayer("Rex")
	if p == nil {
		t.Fatal("expected a spawned player")
	}
	if got, ok := store.Player(p.ID); !ok || got != p {
		t.Fatal("spawned player not retrievable by ID")
	}

	refs := store.Grid().Query(p.X, p.Y, 1)
	found := false
	for _, ref := range refs {
		if ref.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("spawned player not present in spatial index")
	}
}

func TestRemovePlayerDropsFromStoreAndGrid(t *testing.T) {
	store := NewStore(testStoreWorld(), rand.New(rand.NewSource(1)))
	p := store.SpawnPlayer("Rex")
	store.RemovePlayer(p)

	if _, ok := store.Player(p.ID); ok {
		t.Fatal("removed player still retrievable")
	}
	for _, ref := range store.Grid().Query(p.X, p.Y, 1) {
		if ref.ID == p.ID {
			t.Fatal("removed player still present in spatial index")
		}
	}
}

func TestMovePlayerUpdatesGridPosition(t *testing.T) {
	store := NewStore(testStoreWorld(), rand.New(rand.NewSource(1)))
	p := store.SpawnPlayer("Rex")
	oldX, oldY := p.X, p.Y

	newX, newY := oldX+500, oldY+500
	if newX > store.World().MapWidth {
		newX = oldX - 500
	}
	if newY > store.World().MapHeight {
		newY = oldY - 500
	}
	store.MovePlayer(p, newX, newY)

	if p.X != newX || p.Y != newY {
		t.Fatal("player position not updated")
	}
	refs := store.Grid().Query(newX, newY, 1)
	found := false
	for _, ref := range refs {
		if ref.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("moved player not discoverable at new position")
	}
}

func TestReplenishRestoresFoodCount(t *testing.T) {
	store := NewStore(testStoreWorld(), rand.New(rand.NewSource(1)))
	for _, f := range store.FoodItems()[:3] {
		store.RemoveFood(f)
	}
	if store.FoodCount() != 7 {
		t.Fatalf("expected 7 after removing 3, got %d", store.FoodCount())
	}
	store.Replenish()
	if store.FoodCount() != 10 {
		t.Fatalf("expected replenish to restore 10, got %d", store.FoodCount())
	}
}

func TestSpawnPlayerAvoidsObstacles(t *testing.T) {
	world := testStoreWorld()
	world.Obstacles = []config.Obstacle{
		{X: 0, Y: 0, Width: world.MapWidth, Height: world.MapHeight * 0.5},
	}
	store := NewStore(world, rand.New(rand.NewSource(1)))
	p := store.SpawnPlayer("Rex")

	if store.collidesWithObstacle(p.X, p.Y, p.Radius(world.PlayerRadiusMultiplier)) {
		t.Fatalf("player spawned inside the obstacle band at (%v,%v)", p.X, p.Y)
	}
}
