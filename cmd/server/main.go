package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cellarena/internal/api"
	"cellarena/internal/config"
	"cellarena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	} else {
		log.Println("loaded environment from ../.env")
	}

	log.Println("================================")
	log.Println(" CELL ARENA SERVER")
	log.Println("================================")

	world := config.Default()
	serverCfg := config.ServerFromEnv()

	log.Printf("world: %dx%d map, %d tick/s, %d player cap, %d food",
		int(world.MapWidth), int(world.MapHeight), world.TickRate, world.MaxPlayers, world.FoodCount)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := game.NewEngine(world, rng)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine)

	engine.Start()
	log.Println("simulation started")

	go func() {
		log.Printf("API server listening on %s", serverCfg.Addr)
		if err := server.Start(serverCfg.Addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down")
	engine.Stop()
	if err := server.Stop(context.Background()); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("goodbye")
}
