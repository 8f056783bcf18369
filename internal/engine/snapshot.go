package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/tribesim/internal/entropy"
	"github.com/talgya/tribesim/internal/events"
	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

// ErrCorruptSave is matched by every Restore validation failure.
var ErrCorruptSave = errors.New("corrupt save")

// SnapshotError names the part of a snapshot that failed validation.
type SnapshotError struct {
	Field string
	Err   error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("corrupt save: %s: %v", e.Field, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// Is makes every SnapshotError match ErrCorruptSave.
func (e *SnapshotError) Is(target error) bool { return target == ErrCorruptSave }

func corrupt(field string, format string, args ...any) error {
	return &SnapshotError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Snapshot is the full serializable game state.
type Snapshot struct {
	World      *world.World    `json:"world"`
	Tribes     []tribes.Export `json:"tribes"` // Ordered by id
	Events     []*events.Event `json:"events"` // Pending only
	PlayerID   *int            `json:"player_tribe_id"`
	SelectedID *int            `json:"selected_tribe_id,omitempty"`
	Tick       uint64          `json:"tick"`
	Paused     bool            `json:"paused"`
	Speed      Speed           `json:"speed"`
	LastSave   time.Time       `json:"last_save"`
	Camera     Camera          `json:"camera"`
	Seed       int64           `json:"seed"`
	NextID     int             `json:"next_tribe_id"`
}

// Snapshot captures the current state. The world grid is shared, not copied, so
// encode the snapshot before the simulation advances again.
func (s *Simulation) Snapshot() *Snapshot {
	snap := &Snapshot{
		World:    s.World,
		Tribes:   make([]tribes.Export, 0, len(s.Tribes)),
		Events:   s.gen.Pending(),
		PlayerID: copyID(s.PlayerID),
		Tick:     s.Tick,
		Paused:   s.Engine.Paused(),
		Speed:    s.Engine.Speed,
		LastSave: s.LastSave,
		Camera:   s.Camera,
		Seed:     s.seed,
		NextID:   s.nextID,
	}
	snap.SelectedID = copyID(s.SelectedID)
	for _, t := range s.LiveTribes() {
		snap.Tribes = append(snap.Tribes, t.Export())
	}
	return snap
}

// Restore replaces the simulation state with snap after validating it. On error
// the simulation is left untouched.
func (s *Simulation) Restore(snap *Snapshot) error {
	if snap == nil {
		return corrupt("snapshot", "missing")
	}
	if snap.World == nil {
		return corrupt("world", "missing")
	}
	if err := snap.World.Validate(); err != nil {
		return &SnapshotError{Field: "world", Err: err}
	}
	if !snap.Speed.Valid() {
		return corrupt("speed", "unknown speed %d", int(snap.Speed))
	}

	restored := make(map[int]*tribes.Tribe, len(snap.Tribes))
	maxID := snap.NextID
	for i, e := range snap.Tribes {
		t, err := tribes.Import(e)
		if err != nil {
			return &SnapshotError{Field: fmt.Sprintf("tribes[%d]", i), Err: err}
		}
		if _, dup := restored[t.ID]; dup {
			return corrupt(fmt.Sprintf("tribes[%d]", i), "duplicate id %d", t.ID)
		}
		if !snap.World.InBounds(t.Position) {
			return corrupt(fmt.Sprintf("tribes[%d]", i), "position %s off the map", t.Position)
		}
		if t.HomeTile != nil && !snap.World.InBounds(*t.HomeTile) {
			return corrupt(fmt.Sprintf("tribes[%d]", i), "home %s off the map", *t.HomeTile)
		}
		restored[t.ID] = t
		maxID = max(maxID, t.ID)
	}
	if snap.PlayerID != nil {
		if _, ok := restored[*snap.PlayerID]; !ok {
			return corrupt("player_tribe_id", "no tribe %d", *snap.PlayerID)
		}
	}
	for i, ev := range snap.Events {
		if ev == nil || ev.ID == "" {
			return corrupt(fmt.Sprintf("events[%d]", i), "missing id")
		}
	}

	s.World = snap.World
	s.Tribes = restored
	s.PlayerID = copyID(snap.PlayerID)
	s.SelectedID = nil
	if snap.SelectedID != nil {
		if _, ok := restored[*snap.SelectedID]; ok {
			s.SelectedID = copyID(snap.SelectedID)
		}
	}
	s.Tick = snap.Tick
	s.LastSave = snap.LastSave
	s.Camera = snap.Camera
	if s.Camera.Zoom <= 0 {
		s.Camera.Zoom = 1
	}
	if snap.Seed != 0 {
		s.seed = snap.Seed
	}
	s.nextID = maxID
	s.Engine.Speed = snap.Speed
	if snap.Paused {
		s.Engine.Speed = SpeedPaused
	}
	s.Engine.lastTick = s.opts.Now()
	s.reseed()
	s.gen.Reseed(s.stream(entropy.StreamEvents))
	s.gen.Restore(snap.Events)
	s.Events = append([]*events.Event(nil), snap.Events...)

	slog.Info("game restored", "tick", s.Tick, "tribes", len(s.Tribes), "pending_events", len(snap.Events))
	return nil
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
