// Package api serves the simulation over HTTP.
// GET endpoints are public (read-only observation).
// POST /api/v1/command requires a bearer token (the control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"github.com/talgya/tribesim/internal/engine"
	"github.com/talgya/tribesim/internal/persistence"
	"github.com/talgya/tribesim/internal/tech"
	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

// Store is the slice of persistence the API needs.
type Store interface {
	QuickSave(snap *engine.Snapshot) (persistence.Save, error)
	GetQuickSave() (*engine.Snapshot, error)
	ListSaves() ([]persistence.Save, error)
}

// Server serves the simulation state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	DB          Store // nil disables save commands
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string
	Limiter     *RateLimiter // nil = unlimited

	srv  *http.Server
	stop chan struct{}
}

// Handler builds the routed, CORS-wrapped, rate-limited handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/tribes", s.handleTribes)
	mux.HandleFunc("GET /api/v1/tribes/{id}", s.handleTribeDetail)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/tech", s.handleTech)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/saves", s.handleSaves)

	mux.HandleFunc("POST /api/v1/command", s.adminOnly(s.handleCommand))

	var h http.Handler = mux
	if s.Limiter != nil {
		h = s.Limiter.Middleware(h)
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(h)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if s.Limiter != nil {
		s.stop = make(chan struct{})
		go s.pruneLimiter()
	}
}

// pruneLimiter forgets idle clients once a minute.
func (s *Server) pruneLimiter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if n := s.Limiter.Prune(now); n > 0 {
				slog.Debug("rate limiter pruned", "clients", n)
			}
		}
	}
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if s.stop != nil {
		close(s.stop)
	}
	return s.srv.Shutdown(ctx)
}

// lock holds the frame loop off while a handler reads or mutates the simulation.
func (s *Server) lock() func() {
	s.Sim.Engine.Mu.Lock()
	return s.Sim.Engine.Mu.Unlock
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	defer s.lock()()

	writeJSON(w, map[string]any{
		"name":   "tribesim",
		"seed":   s.Sim.Seed(),
		"width":  s.Sim.World.Width,
		"height": s.Sim.World.Height,
		"status": s.Sim.Status(),
		"camera": s.Sim.Camera,
	})
}

type tribeSummary struct {
	ID         int                        `json:"id"`
	Name       string                     `json:"name"`
	Color      string                     `json:"color"`
	IsPlayer   bool                       `json:"is_player"`
	Population int                        `json:"population"`
	Position   world.Pos                  `json:"position"`
	State      tribes.State               `json:"state"`
	Resources  map[world.ResourceType]int `json:"resources"`
}

func summarize(t *tribes.Tribe) tribeSummary {
	res := make(map[world.ResourceType]int, len(t.Resources))
	for k, v := range t.Resources {
		res[k] = v
	}
	return tribeSummary{
		ID:         t.ID,
		Name:       t.Name,
		Color:      t.Color,
		IsPlayer:   t.IsPlayer,
		Population: t.Population,
		Position:   t.Position,
		State:      t.State,
		Resources:  res,
	}
}

// handleTribes lists living tribes in id order. Optional filters: state, limit.
func (s *Server) handleTribes(w http.ResponseWriter, r *http.Request) {
	limit := 500
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	state := tribes.State(r.URL.Query().Get("state"))

	defer s.lock()()
	out := make([]tribeSummary, 0)
	for _, t := range s.Sim.LiveTribes() {
		if state != "" && t.State != state {
			continue
		}
		out = append(out, summarize(t))
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleTribeDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid tribe id", http.StatusBadRequest)
		return
	}

	defer s.lock()()
	t, ok := s.Sim.Tribes[id]
	if !ok {
		http.Error(w, "tribe not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t.Export())
}

// handleEvents returns pending events, or with log=1 the most recent entries of the
// rolling event log.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	defer s.lock()()
	if r.URL.Query().Get("log") == "" {
		writeJSON(w, s.Sim.PendingEvents())
		return
	}

	events := s.Sim.Events
	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

// handleTech lists the catalog, the techs of one era, or what one tribe can research.
func (s *Server) handleTech(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if era := q.Get("era"); era != "" {
		writeJSON(w, tech.ByEra(tech.Era(era)))
		return
	}
	if idStr := q.Get("tribe"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			http.Error(w, "invalid tribe id", http.StatusBadRequest)
			return
		}
		defer s.lock()()
		avail, ok := s.Sim.AvailableTechs(id)
		if !ok {
			http.Error(w, "tribe not found", http.StatusNotFound)
			return
		}
		writeJSON(w, avail)
		return
	}
	writeJSON(w, tech.All())
}

// handleMap returns the terrain as one glyph string per row, plus tribe markers.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	type marker struct {
		ID    int       `json:"id"`
		Pos   world.Pos `json:"pos"`
		Color string    `json:"color"`
	}

	defer s.lock()()
	wd := s.Sim.World
	rows := make([]string, wd.Height)
	buf := make([]rune, wd.Width)
	for y := 0; y < wd.Height; y++ {
		for x := 0; x < wd.Width; x++ {
			buf[x] = wd.Tiles[y][x].Type.Glyph()
		}
		rows[y] = string(buf)
	}

	markers := make([]marker, 0, len(s.Sim.Tribes))
	for _, t := range s.Sim.LiveTribes() {
		markers = append(markers, marker{ID: t.ID, Pos: t.Position, Color: t.Color})
	}

	writeJSON(w, map[string]any{
		"width":  wd.Width,
		"height": wd.Height,
		"rows":   rows,
		"tribes": markers,
	})
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	saves, err := s.DB.ListSaves()
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "list saves failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, saves)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
