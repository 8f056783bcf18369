// Package events generates stochastic narrative events for tribes and tracks them
// until they are resolved or expire. Choice effects are plain data applied against
// the live tribe collection at resolution time.
package events

import (
	"time"

	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

// Kind is an event archetype.
type Kind string

const (
	KindHarvest   Kind = "harvest"
	KindDisease   Kind = "disease"
	KindDiscovery Kind = "discovery"
	KindBirthBoom Kind = "birth_boom"
	KindDrought   Kind = "drought"
	KindRaid      Kind = "raid"
	KindAlliance  Kind = "alliance"
	KindWar       Kind = "war"
)

// Priorities, 1 (trivial) to 10 (critical).
const (
	PriorityNeutral = 5
	PriorityNotable = 6
	PriorityHarmful = 7
	PriorityRaid    = 8
	PriorityWar     = 9
)

// Op names a mutation an Effect performs.
type Op string

const (
	OpFood       Op = "food"        // Tribe food += Amount, floored at 0
	OpPopulation Op = "population"  // Tribe population += Amount, floored at 0
	OpRelation   Op = "relation"    // Tribe's relation toward Other += Amount
	OpTransfer   Op = "transfer"    // Move min(Amount, tribe food) from Tribe to Other
	OpRaidDefend Op = "raid_defend" // Tribe defends against Other; if the raid wins, Amount food is lost
	OpSetState   Op = "set_state"   // Tribe enters State
)

// Effect is one mutation, addressed by tribe id.
type Effect struct {
	Op      Op           `json:"op"`
	TribeID int          `json:"tribe_id"`
	OtherID int          `json:"other_id,omitempty"`
	Amount  int          `json:"amount,omitempty"`
	State   tribes.State `json:"state,omitempty"`
}

// Choice is one option offered by an event.
type Choice struct {
	Label   string   `json:"label"`
	Effects []Effect `json:"effects"`
}

// Event is a timestamped occurrence concerning one tribe.
type Event struct {
	ID          string    `json:"id"`
	Type        Kind      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TribeID     int       `json:"tribe_id"`
	OtherID     int       `json:"other_id,omitempty"` // Second party for raid, alliance and war
	Timestamp   time.Time `json:"timestamp"`
	Priority    int       `json:"priority"`
	Resolved    bool      `json:"resolved"`
	Choices     []Choice  `json:"choices,omitempty"`

	// Effects applied as soon as the event is generated.
	Immediate []Effect `json:"immediate,omitempty"`
}

// Expired reports whether the event is older than ttl at now.
func (e *Event) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) >= ttl
}

// Lookup resolves a tribe id against the caller's live collection.
type Lookup func(id int) *tribes.Tribe

// Apply performs effects against the tribes lookup returns. Effects that address a
// tribe no longer present are skipped; the count of applied effects is returned.
func Apply(effects []Effect, lookup Lookup) int {
	applied := 0
	for _, e := range effects {
		t := lookup(e.TribeID)
		if t == nil {
			continue
		}
		switch e.Op {
		case OpFood:
			t.AddResource(world.ResourceFood, e.Amount)
		case OpPopulation:
			t.AddPopulation(e.Amount)
		case OpRelation:
			t.AddRelation(e.OtherID, e.Amount)
		case OpTransfer:
			other := lookup(e.OtherID)
			if other == nil {
				continue
			}
			transferFood(t, other, e.Amount)
		case OpRaidDefend:
			attacker := lookup(e.OtherID)
			if attacker == nil {
				continue
			}
			if RaidSucceeds(attacker.Population, t.Population) {
				transferFood(t, attacker, e.Amount)
			}
		case OpSetState:
			t.SetState(e.State)
		default:
			continue
		}
		applied++
	}
	return applied
}

// RaidSucceeds compares attacker strength (30% of population) against defender
// strength (40% of population).
func RaidSucceeds(attackerPop, defenderPop int) bool {
	return float64(attackerPop)*0.3 > float64(defenderPop)*0.4
}

func transferFood(from, to *tribes.Tribe, limit int) {
	n := min(limit, from.Resources[world.ResourceFood])
	if n <= 0 {
		return
	}
	from.Resources[world.ResourceFood] -= n
	to.Resources[world.ResourceFood] += n
}
