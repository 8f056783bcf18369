// Command tribesim runs the tribal society simulation and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/talgya/tribesim/internal/api"
	"github.com/talgya/tribesim/internal/config"
	"github.com/talgya/tribesim/internal/engine"
	"github.com/talgya/tribesim/internal/persistence"
	"github.com/talgya/tribesim/internal/world"
)

const cameraSetting = "camera"

func main() {
	cfg, err := config.Load(envOr("TRIBESIM_CONFIG", "tribesim.yaml"), ".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("tribesim starting",
		"world", fmt.Sprintf("%dx%d", cfg.World.Width, cfg.World.Height),
		"max_tribes", cfg.Sim.MaxTribes,
		"db", cfg.DB.Driver,
	)

	// ── Database ──────────────────────────────────────────────────────
	if cfg.DB.Driver == persistence.DriverSQLite {
		if dir := filepath.Dir(cfg.DB.DSN); dir != "." {
			os.MkdirAll(dir, 0755)
		}
	}
	db, err := persistence.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// ── Simulation ────────────────────────────────────────────────────
	opts := engine.DefaultOptions()
	opts.MaxTribes = cfg.Sim.MaxTribes
	opts.Interval = cfg.Sim.TickInterval
	opts.EventTTL = cfg.Sim.EventTTL
	opts.ReportEvery = cfg.Sim.ReportEvery
	opts.AutoResolveAI = cfg.Sim.AutoResolveAI
	opts.Seed = cfg.World.Seed

	sim, err := buildSimulation(cfg, db, opts)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	var cam engine.Camera
	if err := db.GetSetting(cameraSetting, &cam); err == nil {
		sim.Camera = cam
	}

	speed, err := engine.ParseSpeed(cfg.Sim.StartSpeed)
	if err != nil {
		slog.Error("invalid start speed", "error", err)
		os.Exit(1)
	}
	sim.Engine.SetSpeed(speed)

	// Fires on the first tick and then every AutosaveEvery ticks (ticks 1, 1+N, ...).
	autosave := rate.Sometimes{Every: cfg.Sim.AutosaveEvery}
	sim.AfterStep = func(tick uint64) {
		autosave.Do(func() {
			if _, err := db.AutoSave(sim.Snapshot()); err != nil {
				slog.Error("autosave failed", "tick", tick, "error", err)
				return
			}
			sim.MarkSaved()
		})
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	var apiServer *api.Server
	if cfg.API.Port > 0 {
		if cfg.API.AdminKey == "" {
			slog.Warn("TRIBESIM_ADMIN_KEY not set, POST /api/v1/command is disabled")
		}
		apiServer = &api.Server{
			Sim:         sim,
			DB:          db,
			Port:        cfg.API.Port,
			AdminKey:    cfg.API.AdminKey,
			CORSOrigins: cfg.API.CORSOrigins,
		}
		if cfg.API.RatePerSec > 0 {
			apiServer.Limiter = api.NewRateLimiter(cfg.API.RatePerSec, cfg.API.Burst)
		}
		apiServer.Start()
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := sim.Status()
	fmt.Printf("\n%d tribes on a %dx%d world, tick %d, speed %s.\n",
		st.Tribes, sim.World.Width, sim.World.Height, st.Tick, st.SpeedName)
	if apiServer != nil {
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}
	fmt.Println("Running... (Ctrl+C to stop)")

	sim.Engine.Run(ctx, cfg.Sim.FrameInterval)
	slog.Info("shutting down")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("api shutdown failed", "error", err)
		}
		cancel()
	}

	// Final save on shutdown.
	sim.Engine.Mu.Lock()
	if _, err := db.AutoSave(sim.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	cam = sim.Camera
	sim.Engine.Mu.Unlock()
	if err := db.SetSetting(cameraSetting, cam); err != nil {
		slog.Error("saving camera failed", "error", err)
	}

	fmt.Println("Simulation stopped. State saved.")
}

// buildSimulation resumes from the autosave slot when allowed and present, and
// otherwise generates a fresh world and populates it.
func buildSimulation(cfg config.Config, db *persistence.DB, opts engine.Options) (*engine.Simulation, error) {
	if cfg.Sim.ResumeAutosave {
		snap, err := db.GetAutoSave()
		if err == nil && snap.World == nil {
			err = fmt.Errorf("%w: autosave has no world", engine.ErrCorruptSave)
		}
		switch {
		case err == nil:
			sim := engine.NewSimulation(snap.World, opts)
			if err := sim.Restore(snap); err != nil {
				return nil, fmt.Errorf("restore autosave: %w", err)
			}
			slog.Info("autosave restored", "tick", sim.Tick, "tribes", len(sim.LiveTribes()))
			return sim, nil
		case errors.Is(err, persistence.ErrNoSave):
			slog.Info("no autosave found, starting a new world")
		case errors.Is(err, engine.ErrCorruptSave):
			slog.Warn("autosave unreadable, starting a new world", "error", err)
		default:
			return nil, err
		}
	}

	noise, err := world.ParseNoiseKind(cfg.World.Noise)
	if err != nil {
		return nil, err
	}
	gen := world.DefaultGenConfig()
	gen.Width = cfg.World.Width
	gen.Height = cfg.World.Height
	gen.Seed = cfg.World.Seed
	gen.Noise = noise

	slog.Info("generating world...", "noise", noise)
	w := world.Generate(gen)
	counts := world.TerrainCounts(w)
	for _, t := range world.AllTileTypes {
		slog.Info("terrain", "type", t, "count", counts[t])
	}

	sim := engine.NewSimulation(w, opts)
	sim.Init(nil)
	if p := sim.Player(); p != nil {
		slog.Info("player tribe placed", "name", p.Name, "at", p.Position, "population", p.Population)
	} else {
		slog.Warn("no room for the player tribe")
	}
	return sim, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
