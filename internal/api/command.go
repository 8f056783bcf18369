package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/talgya/tribesim/internal/engine"
	"github.com/talgya/tribesim/internal/persistence"
	"github.com/talgya/tribesim/internal/world"
)

// Command types accepted by POST /api/v1/command.
const (
	CmdSelect      = "select"
	CmdMove        = "move"
	CmdSettle      = "settle"
	CmdGather      = "gather"
	CmdResearch    = "research"
	CmdResolve     = "resolve"
	CmdPause       = "pause"
	CmdResume      = "resume"
	CmdTogglePause = "toggle_pause"
	CmdSpeed       = "speed"
	CmdQuickSave   = "quicksave"
	CmdQuickLoad   = "quickload"
)

// CommandRequest is the body of POST /api/v1/command. Which fields matter depends
// on Type.
type CommandRequest struct {
	Type     string `json:"type"`
	TribeID  int    `json:"tribe_id,omitempty"`
	DX       int    `json:"dx,omitempty"`
	DY       int    `json:"dy,omitempty"`
	Resource string `json:"resource,omitempty"`
	Tech     string `json:"tech,omitempty"`
	EventID  string `json:"event_id,omitempty"`
	Choice   *int   `json:"choice,omitempty"`
	Speed    string `json:"speed,omitempty"`
}

// CommandResponse reports whether the command applied. A command that is valid
// but cannot apply (moving into water, say) answers 200 with OK false.
type CommandResponse struct {
	OK     bool          `json:"ok"`
	Amount int           `json:"amount,omitempty"` // Gathered units
	Status engine.Status `json:"status"`
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no TRIBESIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	defer s.lock()()
	sim := s.Sim
	resp := CommandResponse{}

	switch req.Type {
	case CmdSelect:
		resp.OK = sim.SelectTribe(req.TribeID)
	case CmdMove:
		resp.OK = sim.MoveSelected(req.DX, req.DY)
	case CmdSettle:
		resp.OK = sim.SettleSelected()
	case CmdGather:
		res, ok := world.ParseResource(req.Resource)
		if !ok {
			http.Error(w, "unknown resource", http.StatusBadRequest)
			return
		}
		resp.Amount = sim.GatherSelected(res)
		resp.OK = resp.Amount > 0
	case CmdResearch:
		resp.OK = sim.ResearchSelected(req.Tech)
	case CmdResolve:
		resp.OK = sim.ResolveEvent(req.EventID, req.Choice)
	case CmdPause:
		sim.Engine.Pause()
		resp.OK = true
	case CmdResume:
		sim.Engine.Resume()
		resp.OK = true
	case CmdTogglePause:
		sim.Engine.TogglePause()
		resp.OK = true
	case CmdSpeed:
		speed, err := engine.ParseSpeed(req.Speed)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp.OK = sim.Engine.SetSpeed(speed)
	case CmdQuickSave:
		if !s.quickSave(w) {
			return
		}
		resp.OK = true
	case CmdQuickLoad:
		if !s.quickLoad(w) {
			return
		}
		resp.OK = true
	default:
		http.Error(w, "unknown command type", http.StatusBadRequest)
		return
	}

	slog.Debug("command handled", "type", req.Type, "ok", resp.OK)
	resp.Status = sim.Status()
	writeJSON(w, resp)
}

// quickSave and quickLoad write the HTTP error themselves and report success.

func (s *Server) quickSave(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return false
	}
	if _, err := s.DB.QuickSave(s.Sim.Snapshot()); err != nil {
		slog.Error("quick save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return false
	}
	s.Sim.MarkSaved()
	return true
}

func (s *Server) quickLoad(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return false
	}
	snap, err := s.DB.GetQuickSave()
	if errors.Is(err, persistence.ErrNoSave) {
		http.Error(w, "no quick save", http.StatusNotFound)
		return false
	}
	if err == nil {
		err = s.Sim.Restore(snap)
	}
	if errors.Is(err, engine.ErrCorruptSave) {
		slog.Warn("quick save rejected", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return false
	}
	if err != nil {
		slog.Error("quick load failed", "error", err)
		http.Error(w, "load failed", http.StatusInternalServerError)
		return false
	}
	return true
}
