package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rrt-planner/internal/config"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/server"
	"rrt-planner/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// run returns instead of exiting so the deferred store close always runs.
func run(configPath string) error {
	log.Println("========================================")
	log.Println("🚀 RRT Motion Planner Server")
	log.Println("========================================")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var st *store.Store
	if cfg.Store.Driver != "" {
		st, err = store.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Printf("⚠️  Failed to close run store: %v\n", err)
			}
		}()
		log.Printf("✅ Run store ready (%s)\n", cfg.Store.Driver)
	} else {
		log.Println("ℹ️  Run store disabled")
	}

	opts := cfg.PlannerOptions()
	opts.RecordTree = false
	srv := server.New(server.Config{
		Defaults:      opts,
		Store:         st,
		AllowOrigins:  cfg.Server.AllowOrigins,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
		AccessLog:     true,
		MaxAttempts:   cfg.Server.MaxAttempts,
		MaxIterations: cfg.Server.MaxIterations,
		MaxTimeBudget: cfg.Server.MaxTimeBudget,
	})

	// Try to preload the workspace from the configured obstacles file
	log.Println("Checking for obstacles file...")
	if obs, err := cfg.LoadObstacles(); err == nil {
		ws, err := cfg.BuildWorkspace(obs)
		if err != nil {
			log.Printf("⚠️  Obstacles file rejected: %v\n", err)
		} else {
			srv.SetWorkspace(ws)
			b := ws.Bounds()
			log.Printf("✅ Loaded workspace from %s\n", cfg.Workspace.ObstaclesFile)
			log.Printf("   Obstacles: %d (radius %.2f)\n", ws.NumObstacles(), cfg.Workspace.ObstacleRadius)
			log.Printf("   Bounds: (%.2f, %.2f) to (%.2f, %.2f)\n", b.MinX, b.MinY, b.MaxX, b.MaxY)
		}
	} else {
		log.Printf("ℹ️  No workspace loaded (%v)\n", err)
		log.Println("   Call POST /workspace to set one")
	}
	log.Println("")

	// session results go through the standard logger
	planner.SetLogger(slog.Default())

	log.Printf("Server starting on %s\n", cfg.Server.Addr)
	log.Println("")
	log.Println("Endpoints:")
	log.Println("  POST /workspace          - Set obstacles and bounds")
	log.Println("  GET  /workspace          - Get obstacles as GeoJSON")
	log.Println("  POST /route              - Compute route with start and end points")
	log.Println("  GET  /route/:id/geojson  - Get a stored route as GeoJSON")
	log.Println("  GET  /runs               - List recent planning runs")
	log.Println("  GET  /health             - Check server status")
	log.Println("")
	log.Printf("CORS enabled for origins: %s\n", cfg.Server.AllowOrigins)
	log.Printf("Route limits: %d attempts, %d iterations, %v budget\n",
		cfg.Server.MaxAttempts, cfg.Server.MaxIterations, cfg.Server.MaxTimeBudget)
	log.Println("========================================")
	log.Println("")

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("🛑 Shutting down...")
		_ = srv.Shutdown()
	}()

	return srv.Listen(cfg.Server.Addr)
}
