// Package tribes provides the tribe entity: demographics, stockpiles, diplomacy and
// the per-tick rules each tribe applies to itself.
package tribes

import (
	"math/rand"

	"github.com/talgya/tribesim/internal/world"
)

// Demographic and action tuning.
const (
	BirthRate           = 0.002 // Share of population born per tick when fed
	DeathRate           = 0.001 // Baseline share dying per tick
	StarvationRate      = 0.005 // Share lost on a tick without enough food
	FoodConsumption     = 1     // Food per head per tick
	BirthFoodThreshold  = 50    // Births only when the food stock exceeds this
	SettleMinPopulation = 30
	ExpandPopulation    = 300 // A settled tribe this large starts expanding
	GatherShare         = 0.5 // Units gathered per head

	GatherCooldown  = 5
	MoveCooldown    = 2
	ExploreCooldown = 3

	MinStartPopulation = 10
	MaxStartPopulation = 500
	StartFood          = 100

	MinRelation = -100
	MaxRelation = 100
)

// State is a tribe's position in its life cycle.
type State string

const (
	StateNomadic   State = "nomadic"   // Wandering, not yet settled
	StateSettling  State = "settling"  // Has a home tile
	StateExpanding State = "expanding" // Settled and grown past ExpandPopulation
	StateAtWar     State = "at_war"    // Received a war declaration
	StateAlliance  State = "alliance"  // Accepted an alliance
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateNomadic, StateSettling, StateExpanding, StateAtWar, StateAlliance:
		return true
	}
	return false
}

// Action records what a tribe did most recently.
type Action string

const (
	ActionNone    Action = ""
	ActionMove    Action = "move"
	ActionGather  Action = "gather"
	ActionExplore Action = "explore"
)

// Identity is fixed at creation.
type Identity struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsPlayer bool   `json:"is_player"`
	Color    string `json:"color"`
}

// Tribe is one society's mutable state.
type Tribe struct {
	Identity

	Population int                        `json:"population"` // 0 = extinct
	Position   world.Pos                  `json:"position"`
	Resources  map[world.ResourceType]int `json:"resources"`
	State      State                      `json:"state"`

	// Affinity toward other tribes by id, clamped to [MinRelation, MaxRelation].
	// Absent entries read as 0.
	Relations map[int]int `json:"-"`

	// Discovered technology ids; only ever grows.
	Techs map[string]bool `json:"-"`

	ActionCooldown int        `json:"action_cooldown"`
	LastAction     Action     `json:"last_action,omitempty"`
	HomeTile       *world.Pos `json:"home_tile,omitempty"`
}

// New creates a nomadic tribe at pos with a random starting population.
func New(id Identity, pos world.Pos, rng *rand.Rand) *Tribe {
	t := blank(id, pos)
	t.Population = rng.Intn(MaxStartPopulation-MinStartPopulation) + MinStartPopulation
	return t
}

func blank(id Identity, pos world.Pos) *Tribe {
	return &Tribe{
		Identity: id,
		Position: pos,
		Resources: map[world.ResourceType]int{
			world.ResourceFood:  StartFood,
			world.ResourceWood:  0,
			world.ResourceStone: 0,
			world.ResourceMetal: 0,
		},
		State:     StateNomadic,
		Relations: make(map[int]int),
		Techs:     make(map[string]bool),
	}
}

// Alive reports whether the tribe still has people.
func (t *Tribe) Alive() bool {
	return t.Population > 0
}

// Relation returns the affinity toward other, 0 when unknown.
func (t *Tribe) Relation(other int) int {
	return t.Relations[other]
}

// AddRelation shifts the affinity toward other by delta, clamped to the valid range.
func (t *Tribe) AddRelation(other, delta int) {
	t.Relations[other] = clamp(t.Relations[other]+delta, MinRelation, MaxRelation)
}

// DiscoverTech adds id to the discovered set. Prerequisites and cost are the
// caller's concern.
func (t *Tribe) DiscoverTech(id string) {
	t.Techs[id] = true
}

// HasTech reports whether id has been discovered.
func (t *Tribe) HasTech(id string) bool {
	return t.Techs[id]
}

// AddResource adjusts a stockpile, never below zero.
func (t *Tribe) AddResource(r world.ResourceType, delta int) {
	v := t.Resources[r] + delta
	if v < 0 {
		v = 0
	}
	t.Resources[r] = v
}

// AddPopulation adjusts the population, never below zero.
func (t *Tribe) AddPopulation(delta int) {
	t.Population += delta
	if t.Population < 0 {
		t.Population = 0
	}
}

// SetState moves the tribe into s. Nomadic tribes stay nomadic: diplomatic
// states only apply once a tribe has a home.
func (t *Tribe) SetState(s State) bool {
	if !s.Valid() || t.State == StateNomadic || t.State == s {
		return false
	}
	t.State = s
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
