package engine

import (
	"log/slog"

	"github.com/talgya/tribesim/internal/events"
	"github.com/talgya/tribesim/internal/tech"
	"github.com/talgya/tribesim/internal/world"
)

// Commands are advisory: each validates first and reports false without touching
// state when it cannot apply.

// SelectTribe moves the selection cursor to an existing tribe.
func (s *Simulation) SelectTribe(id int) bool {
	if _, ok := s.Tribes[id]; !ok {
		return false
	}
	s.SelectedID = &id
	return true
}

// MoveSelected steps the selected tribe by (dx, dy). Only single orthogonal or
// diagonal steps are accepted.
func (s *Simulation) MoveSelected(dx, dy int) bool {
	t := s.Selected()
	if t == nil {
		return false
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return false
	}
	moved, enc := t.Move(s.World, world.Pos{X: dx, Y: dy}, s.ai)
	if enc != nil {
		slog.Info("tribes met", "tribe", t.ID, "other", enc.OtherID, "relation_delta", enc.Delta)
	}
	return moved
}

// SettleSelected settles the selected tribe where it stands.
func (s *Simulation) SettleSelected() bool {
	t := s.Selected()
	if t == nil {
		return false
	}
	if !t.Settle(s.World) {
		return false
	}
	slog.Info("tribe settled", "tick", s.Tick, "tribe", t.ID, "at", t.Position)
	return true
}

// GatherSelected harvests resource r for the selected tribe and returns the amount.
func (s *Simulation) GatherSelected(r world.ResourceType) int {
	t := s.Selected()
	if t == nil {
		return 0
	}
	return t.Gather(s.World, r)
}

// ResearchSelected discovers techID for the selected tribe when its prerequisites
// are met and the tribe can pay for it. The cost is deducted.
func (s *Simulation) ResearchSelected(techID string) bool {
	t := s.Selected()
	if t == nil {
		return false
	}
	tc, ok := tech.Get(techID)
	if !ok || !tech.CanResearch(t.Techs, techID) || !tc.Cost.Affordable(t.Resources) {
		return false
	}
	tc.Cost.Deduct(t.Resources)
	t.DiscoverTech(techID)
	slog.Info("tech researched", "tick", s.Tick, "tribe", t.ID, "tech", techID)
	return true
}

// AvailableTechs lists what tribe id could research next.
func (s *Simulation) AvailableTechs(id int) ([]tech.Tech, bool) {
	t, ok := s.Tribes[id]
	if !ok {
		return nil, false
	}
	return tech.Available(t.Techs), true
}

// ResolveEvent resolves a pending event, applying the chosen option's effects to
// the tribes that still exist. choice may be nil to dismiss.
func (s *Simulation) ResolveEvent(id string, choice *int) bool {
	effects, ok := s.gen.Resolve(id, choice)
	if !ok {
		return false
	}
	applied := events.Apply(effects, s.lookup)
	slog.Info("event resolved", "id", id, "effects", len(effects), "applied", applied)
	return true
}
