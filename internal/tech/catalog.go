// Package tech holds the static technology catalog. Only the set of discovered ids is
// per-tribe state; everything here is read-only reference data.
package tech

import (
	"sort"

	"github.com/talgya/tribesim/internal/world"
)

// Era groups technologies by age.
type Era string

const (
	EraStone  Era = "stone_age"
	EraBronze Era = "bronze_age"
	EraIron   Era = "iron_age"
)

// EffectType names what a technology modifies.
type EffectType string

const (
	EffectGatherRate     EffectType = "gather_rate"
	EffectBirthRate      EffectType = "birth_rate"
	EffectMoveSpeed      EffectType = "move_speed"
	EffectStorage        EffectType = "storage"
	EffectCombat         EffectType = "combat"
	EffectUnlockBuilding EffectType = "unlock_building"
	EffectUnlockUnit     EffectType = "unlock_unit"
)

// Effect is the single typed modifier a technology grants.
type Effect struct {
	Type   EffectType `json:"type"`
	Value  float64    `json:"value"`
	Target string     `json:"target,omitempty"`
}

// Cost is the resource price of a technology.
type Cost map[world.ResourceType]int

// Affordable reports whether stock covers every line of the cost.
func (c Cost) Affordable(stock map[world.ResourceType]int) bool {
	for r, n := range c {
		if stock[r] < n {
			return false
		}
	}
	return true
}

// Deduct subtracts the cost from stock. Callers check Affordable first.
func (c Cost) Deduct(stock map[world.ResourceType]int) {
	for r, n := range c {
		stock[r] -= n
	}
}

// Tech is one catalog entry.
type Tech struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Era           Era      `json:"era"`
	Prerequisites []string `json:"prerequisites"`
	Cost          Cost     `json:"cost"`
	Effect        Effect   `json:"effect"`
}

var catalog = map[string]Tech{
	// Stone age
	"basic_tools": {
		ID: "basic_tools", Name: "Basic Tools", Description: "Stones and sticks as simple tools",
		Era: EraStone, Cost: Cost{world.ResourceFood: 50},
		Effect: Effect{Type: EffectGatherRate, Value: 0.2},
	},
	"fire": {
		ID: "fire", Name: "Fire", Description: "Taming fire for warmth and protection",
		Era: EraStone, Cost: Cost{world.ResourceFood: 100},
		Effect: Effect{Type: EffectBirthRate, Value: 0.1},
	},
	"spear": {
		ID: "spear", Name: "Spear", Description: "A spear for hunting and fighting",
		Era: EraStone, Prerequisites: []string{"basic_tools"},
		Cost:   Cost{world.ResourceFood: 80, world.ResourceWood: 30},
		Effect: Effect{Type: EffectCombat, Value: 0.3},
	},
	"basket": {
		ID: "basket", Name: "Basket Weaving", Description: "Carrying and storing goods in baskets",
		Era: EraStone, Prerequisites: []string{"basic_tools"},
		Cost:   Cost{world.ResourceFood: 60, world.ResourceWood: 40},
		Effect: Effect{Type: EffectStorage, Value: 0.5},
	},
	"shelter": {
		ID: "shelter", Name: "Shelter", Description: "Simple cover from the weather",
		Era: EraStone, Prerequisites: []string{"basic_tools"},
		Cost:   Cost{world.ResourceFood: 100, world.ResourceWood: 50},
		Effect: Effect{Type: EffectBirthRate, Value: 0.2},
	},

	// Bronze age
	"agriculture": {
		ID: "agriculture", Name: "Agriculture", Description: "Growing plants for food",
		Era: EraBronze, Prerequisites: []string{"basket", "shelter"},
		Cost:   Cost{world.ResourceFood: 200, world.ResourceWood: 100},
		Effect: Effect{Type: EffectGatherRate, Value: 0.5},
	},
	"pottery": {
		ID: "pottery", Name: "Pottery", Description: "Fired clay vessels",
		Era: EraBronze, Prerequisites: []string{"basket"},
		Cost:   Cost{world.ResourceFood: 150, world.ResourceStone: 50},
		Effect: Effect{Type: EffectStorage, Value: 1.0},
	},
	"mining": {
		ID: "mining", Name: "Quarrying", Description: "Better stone extraction",
		Era: EraBronze, Prerequisites: []string{"basic_tools"},
		Cost:   Cost{world.ResourceFood: 150, world.ResourceWood: 50},
		Effect: Effect{Type: EffectGatherRate, Value: 0.3, Target: "stone"},
	},
	"wheel": {
		ID: "wheel", Name: "The Wheel", Description: "Wheels for transport",
		Era: EraBronze, Prerequisites: []string{"mining"},
		Cost:   Cost{world.ResourceFood: 200, world.ResourceWood: 150},
		Effect: Effect{Type: EffectMoveSpeed, Value: 0.3},
	},

	// Iron age
	"bronze_working": {
		ID: "bronze_working", Name: "Bronze Working", Description: "Bronze tools",
		Era: EraIron, Prerequisites: []string{"mining", "pottery"},
		Cost:   Cost{world.ResourceFood: 300, world.ResourceStone: 100, world.ResourceMetal: 50},
		Effect: Effect{Type: EffectGatherRate, Value: 0.8},
	},
	"writing": {
		ID: "writing", Name: "Writing", Description: "Recording knowledge and history",
		Era: EraIron, Prerequisites: []string{"pottery"},
		Cost:   Cost{world.ResourceFood: 400, world.ResourceWood: 100},
		Effect: Effect{Type: EffectBirthRate, Value: 0.3},
	},
	"iron_working": {
		ID: "iron_working", Name: "Iron Working", Description: "Iron tools and weapons",
		Era: EraIron, Prerequisites: []string{"bronze_working"},
		Cost:   Cost{world.ResourceFood: 500, world.ResourceStone: 200, world.ResourceMetal: 150},
		Effect: Effect{Type: EffectCombat, Value: 1.0},
	},
}

// Get returns the technology with the given id.
func Get(id string) (Tech, bool) {
	t, ok := catalog[id]
	return t, ok
}

// All returns every technology, sorted by era then id.
func All() []Tech {
	return filter(func(Tech) bool { return true })
}

// CanResearch reports whether id exists, is not yet discovered, and has all
// prerequisites in discovered.
func CanResearch(discovered map[string]bool, id string) bool {
	t, ok := catalog[id]
	if !ok || discovered[id] {
		return false
	}
	for _, p := range t.Prerequisites {
		if !discovered[p] {
			return false
		}
	}
	return true
}

// Available lists technologies researchable given the discovered set.
func Available(discovered map[string]bool) []Tech {
	return filter(func(t Tech) bool { return CanResearch(discovered, t.ID) })
}

// ByEra lists the technologies of one era.
func ByEra(era Era) []Tech {
	return filter(func(t Tech) bool { return t.Era == era })
}

var eraOrder = map[Era]int{EraStone: 0, EraBronze: 1, EraIron: 2}

func filter(keep func(Tech) bool) []Tech {
	var out []Tech
	for _, t := range catalog {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if eraOrder[out[i].Era] != eraOrder[out[j].Era] {
			return eraOrder[out[i].Era] < eraOrder[out[j].Era]
		}
		return out[i].ID < out[j].ID
	})
	return out
}
