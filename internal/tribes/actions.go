package tribes

import (
	"math/rand"

	"github.com/talgya/tribesim/internal/world"
)

// Encounter outcomes when a tribe walks into another's settlement.
const (
	encounterTradeBelow    = 0.3 // roll < this: relations improve
	encounterConflictBelow = 0.5 // roll < this: relations sour
	encounterTradeDelta    = 5
	encounterConflictDelta = -10
)

// Encounter describes a blocked move into another tribe's tile.
type Encounter struct {
	OtherID int
	Delta   int // Relation change applied, 0 if nothing happened
}

// Gather harvests up to GatherShare units per head of resource r from the current
// tile. It is a no-op when the tile has no such deposit or the deposit is empty.
func (t *Tribe) Gather(w *world.World, r world.ResourceType) int {
	tile := w.Tile(t.Position)
	if tile == nil {
		return 0
	}
	d := tile.Deposit(r)
	if d == nil || d.Amount <= 0 {
		return 0
	}

	amount := min(d.Amount, floorMul(t.Population, GatherShare))
	d.Amount -= amount
	t.Resources[r] += amount
	t.LastAction = ActionGather
	t.ActionCooldown = GatherCooldown
	return amount
}

// Move steps the tribe by dir. It fails without side effects when the target is off
// the map or impassable. When another tribe owns the target tile the tribe stays put
// and an encounter is resolved instead; the returned Encounter is non-nil then.
func (t *Tribe) Move(w *world.World, dir world.Pos, rng *rand.Rand) (bool, *Encounter) {
	next := t.Position.Add(dir)
	tile := w.Tile(next)
	if !tile.Passable() {
		return false, nil
	}

	if other, ok := tile.OwnedByOther(t.ID); ok {
		return false, t.encounter(other, rng.Float64())
	}

	t.Position = next
	t.LastAction = ActionMove
	t.ActionCooldown = MoveCooldown
	return true, nil
}

func (t *Tribe) encounter(other int, roll float64) *Encounter {
	e := &Encounter{OtherID: other}
	switch {
	case roll < encounterTradeBelow:
		e.Delta = encounterTradeDelta
	case roll < encounterConflictBelow:
		e.Delta = encounterConflictDelta
	default:
		return e
	}
	t.AddRelation(other, e.Delta)
	return e
}

// Settle makes the current tile the tribe's permanent home. Only nomadic tribes of
// at least SettleMinPopulation standing on passable ground can settle.
func (t *Tribe) Settle(w *world.World) bool {
	if t.State != StateNomadic || t.Population < SettleMinPopulation {
		return false
	}
	tile := w.Tile(t.Position)
	if !tile.Passable() {
		return false
	}

	t.State = StateSettling
	home := t.Position
	t.HomeTile = &home
	tile.SetOwner(t.ID)
	return true
}
