package tribes

import (
	"math"
	"math/rand"

	"github.com/talgya/tribesim/internal/world"
)

// Tick advances the tribe by one step: feeding, births, deaths, cooldown, and for
// AI tribes one decision. rng drives the AI's random choices.
func (t *Tribe) Tick(w *world.World, rng *rand.Rand) {
	t.consumeFood()

	if t.Resources[world.ResourceFood] > BirthFoodThreshold {
		t.Population += floorMul(t.Population, BirthRate)
	}

	t.AddPopulation(-floorMul(t.Population, DeathRate))

	if t.ActionCooldown > 0 {
		t.ActionCooldown--
	}

	if !t.Alive() {
		return
	}

	if t.State == StateSettling && t.Population >= ExpandPopulation {
		t.State = StateExpanding
	}

	if !t.IsPlayer && t.ActionCooldown <= 0 {
		t.decide(w, rng)
	}
}

// consumeFood eats population*FoodConsumption. A shortfall empties the store and
// costs a share of the population.
func (t *Tribe) consumeFood() {
	needed := t.Population * FoodConsumption
	if t.Resources[world.ResourceFood] >= needed {
		t.Resources[world.ResourceFood] -= needed
		return
	}
	t.AddPopulation(-floorMul(t.Population, StarvationRate))
	t.Resources[world.ResourceFood] = 0
}

// decide runs the AI: harvest what is underfoot, otherwise wander.
func (t *Tribe) decide(w *world.World, rng *rand.Rand) {
	tile := w.Tile(t.Position)
	if tile == nil {
		return
	}
	for _, d := range tile.Resources {
		if d.Amount > 0 {
			t.Gather(w, d.Type)
			return
		}
	}
	t.explore(w, rng)
}

// explore takes one step in a random cardinal direction onto passable ground.
func (t *Tribe) explore(w *world.World, rng *rand.Rand) {
	dirs := world.Directions
	rng.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})

	for _, d := range dirs {
		next := t.Position.Add(d)
		if w.Passable(next) {
			t.Position = next
			t.LastAction = ActionExplore
			t.ActionCooldown = ExploreCooldown
			return
		}
	}
}

func floorMul(n int, rate float64) int {
	return int(math.Floor(float64(n) * rate))
}
