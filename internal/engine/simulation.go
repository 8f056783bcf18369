// Simulation ties together the world, the tribes and the event generator and
// advances them one tick at a time.
package engine

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tribesim/internal/entropy"
	"github.com/talgya/tribesim/internal/events"
	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

// Options tunes a Simulation.
type Options struct {
	MaxTribes     int
	Interval      time.Duration // Base tick interval at normal speed
	EventTTL      time.Duration
	LogLimit      int    // Rolling event log length
	ReportEvery   uint64 // Ticks between tick reports, 0 = never
	AutoResolveAI bool   // Resolve AI tribes' events with their first choice on arrival

	// Seed for tribe placement, AI and events. 0 reuses the world seed.
	Seed int64
	Now  func() time.Time
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{
		MaxTribes:     500,
		Interval:      DefaultInterval,
		EventTTL:      events.DefaultTTL,
		LogLimit:      1000,
		ReportEvery:   100,
		AutoResolveAI: true,
		Now:           time.Now,
	}
}

// Camera is the view descriptor handed to renderers.
type Camera struct {
	X    int     `json:"x"`
	Y    int     `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Camera offsets that center a 100x75 view on the player.
const (
	cameraOffsetX = 50
	cameraOffsetY = 37
)

// Simulation holds the complete game state.
type Simulation struct {
	World      *world.World
	Tribes     map[int]*tribes.Tribe
	Events     []*events.Event // Rolling log, newest last
	PlayerID   *int
	SelectedID *int
	Tick       uint64
	LastSave   time.Time
	Camera     Camera

	Engine *Engine
	// AfterStep runs at the end of every tick, inside the tick.
	AfterStep func(tick uint64)

	opts   Options
	seed   int64
	nextID int
	gen    *events.Generator
	tribe  *rand.Rand // placement, names, colors
	ai     *rand.Rand // AI decisions and encounters
}

// NewSimulation creates a simulation over w with no tribes. Call Init to populate it.
func NewSimulation(w *world.World, opts Options) *Simulation {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LogLimit <= 0 {
		opts.LogLimit = 1000
	}
	seed := opts.Seed
	if seed == 0 {
		seed = w.Seed
	}

	s := &Simulation{
		World:    w,
		Tribes:   make(map[int]*tribes.Tribe),
		LastSave: opts.Now(),
		Camera:   Camera{Zoom: 1},
		opts:     opts,
		seed:     seed,
	}
	s.Engine = NewEngine(opts.Interval, s.Step)
	s.Engine.Now = opts.Now
	s.reseed()
	s.gen = events.NewGenerator(s.stream(entropy.StreamEvents))
	s.gen.Now = opts.Now
	if opts.EventTTL > 0 {
		s.gen.TTL = opts.EventTTL
	}
	return s
}

// stream derives a named generator from the seed and the current tick, so a
// restored game continues with fresh but reproducible sequences.
func (s *Simulation) stream(name string) *rand.Rand {
	return rand.New(rand.NewSource(entropy.Derive(s.seed+int64(s.Tick), name)))
}

func (s *Simulation) reseed() {
	s.tribe = s.stream(entropy.StreamTribes)
	s.ai = s.stream(entropy.StreamAI)
}

// Seed returns the seed the simulation's streams derive from.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// playerCandidates is how many random spawns compete for the player's start
// when none is given.
const playerCandidates = 5

// Init places up to MaxTribes tribes. The first is the player's, at playerStart if
// given. Positions that are impassable or already taken are rejected; a tribe that
// finds no place within world.SpawnAttempts draws is skipped.
func (s *Simulation) Init(playerStart *world.Pos) {
	occupied := make(map[world.Pos]bool)

	for i := 0; i < s.opts.MaxTribes; i++ {
		isPlayer := i == 0

		var pos world.Pos
		var ok bool
		switch {
		case isPlayer && playerStart != nil:
			pos = *playerStart
			ok = s.World.Passable(pos) && !occupied[pos]
		case isPlayer:
			pos, ok = s.playerSpawn(occupied)
		default:
			pos, ok = s.World.RandomSpawn(s.tribe, occupied)
		}
		if !ok {
			slog.Debug("tribe placement skipped", "slot", i)
			continue
		}
		occupied[pos] = true

		s.nextID++
		id := tribes.Identity{
			ID:       s.nextID,
			Name:     tribes.NewName(s.tribe),
			IsPlayer: isPlayer,
			Color:    tribes.PlayerColor,
		}
		if !isPlayer {
			id.Color = tribes.RandomColor(s.tribe)
		}
		t := tribes.New(id, pos, s.tribe)
		s.Tribes[id.ID] = t

		if isPlayer {
			pid := id.ID
			s.PlayerID = &pid
			sel := id.ID
			s.SelectedID = &sel
			s.Camera.X = pos.X - cameraOffsetX
			s.Camera.Y = pos.Y - cameraOffsetY
		}
	}

	slog.Info("tribes placed", "requested", s.opts.MaxTribes, "placed", len(s.Tribes), "player", s.PlayerID != nil)
}

// playerSpawn draws a few random spawns and keeps the one with the best start.
func (s *Simulation) playerSpawn(occupied map[world.Pos]bool) (world.Pos, bool) {
	var best world.Pos
	bestScore := -1.0
	for i := 0; i < playerCandidates; i++ {
		p, ok := s.World.RandomSpawn(s.tribe, occupied)
		if !ok {
			continue
		}
		if score := s.World.SpawnScore(p); score > bestScore {
			best, bestScore = p, score
		}
	}
	return best, bestScore >= 0
}

// Step advances the simulation by exactly one tick.
func (s *Simulation) Step() {
	s.Tick++

	ids := s.tribeIDs()
	for _, id := range ids {
		t := s.Tribes[id]
		if !t.Alive() {
			continue
		}
		t.Tick(s.World, s.ai)
		if tile := s.World.Tile(t.Position); tile != nil {
			tile.SetOwner(t.ID)
		}
	}

	s.sweepExtinct()

	created := s.gen.GenerateTick(s.LiveTribes())
	for _, ev := range created {
		events.Apply(ev.Immediate, s.lookup)
		if s.opts.AutoResolveAI && !s.isPlayer(ev.TribeID) {
			first := 0
			effects, _ := s.gen.Resolve(ev.ID, &first)
			events.Apply(effects, s.lookup)
		}
	}
	// Event effects can wipe out a tribe too.
	s.sweepExtinct()
	s.appendEvents(created)

	if s.opts.ReportEvery > 0 && s.Tick%s.opts.ReportEvery == 0 {
		s.report()
	}
	if s.AfterStep != nil {
		s.AfterStep(s.Tick)
	}
}

func (s *Simulation) sweepExtinct() {
	for _, id := range s.tribeIDs() {
		if !s.Tribes[id].Alive() {
			s.removeTribe(id)
		}
	}
}

func (s *Simulation) removeTribe(id int) {
	t := s.Tribes[id]
	delete(s.Tribes, id)
	s.World.ClearOwner(id)
	if s.PlayerID != nil && *s.PlayerID == id {
		s.PlayerID = nil
	}
	if s.SelectedID != nil && *s.SelectedID == id {
		s.SelectedID = nil
	}
	slog.Info("tribe extinct", "tick", s.Tick, "id", id, "name", t.Name, "player", t.IsPlayer)
}

func (s *Simulation) appendEvents(evs []*events.Event) {
	s.Events = append(s.Events, evs...)
	if over := len(s.Events) - s.opts.LogLimit; over > 0 {
		s.Events = append(s.Events[:0:0], s.Events[over:]...)
	}
}

func (s *Simulation) report() {
	pop := 0
	for _, t := range s.Tribes {
		pop += t.Population
	}
	slog.Info("tick report",
		"tick", humanize.Comma(int64(s.Tick)),
		"tribes", len(s.Tribes),
		"population", humanize.Comma(int64(pop)),
		"pending_events", len(s.gen.Pending()),
	)
}

func (s *Simulation) lookup(id int) *tribes.Tribe {
	return s.Tribes[id]
}

func (s *Simulation) isPlayer(id int) bool {
	return s.PlayerID != nil && *s.PlayerID == id
}

func (s *Simulation) tribeIDs() []int {
	ids := make([]int, 0, len(s.Tribes))
	for id := range s.Tribes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LiveTribes returns the tribes in id order.
func (s *Simulation) LiveTribes() []*tribes.Tribe {
	ids := s.tribeIDs()
	out := make([]*tribes.Tribe, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Tribes[id])
	}
	return out
}

// Player returns the player's tribe, or nil when there is none or it died out.
func (s *Simulation) Player() *tribes.Tribe {
	if s.PlayerID == nil {
		return nil
	}
	return s.Tribes[*s.PlayerID]
}

// Selected returns the selected tribe, or nil.
func (s *Simulation) Selected() *tribes.Tribe {
	if s.SelectedID == nil {
		return nil
	}
	return s.Tribes[*s.SelectedID]
}

// PendingEvents returns the unresolved events.
func (s *Simulation) PendingEvents() []*events.Event {
	return s.gen.Pending()
}

// Status is the summary a UI shows in its top bar.
type Status struct {
	Tick             uint64 `json:"tick"`
	PlayerPopulation int    `json:"player_population"`
	Tribes           int    `json:"tribes"`
	Paused           bool   `json:"paused"`
	Speed            Speed  `json:"speed"`
	SpeedName        string `json:"speed_name"`
	PendingEvents    int    `json:"pending_events"`
}

// Status returns the current summary.
func (s *Simulation) Status() Status {
	st := Status{
		Tick:          s.Tick,
		Tribes:        len(s.Tribes),
		Paused:        s.Engine.Paused(),
		Speed:         s.Engine.Speed,
		SpeedName:     s.Engine.Speed.String(),
		PendingEvents: len(s.gen.Pending()),
	}
	if p := s.Player(); p != nil {
		st.PlayerPopulation = p.Population
	}
	return st
}

// MarkSaved stamps the last-save time.
func (s *Simulation) MarkSaved() {
	s.LastSave = s.opts.Now()
}
