// Spawn placement: finds open, passable cells for new tribes.
package world

import "math/rand"

// SpawnAttempts bounds how many random cells are tried for one spawn.
const SpawnAttempts = 100

// RandomSpawn draws random cells until one is passable and not in occupied.
// It gives up after SpawnAttempts draws, so a crowded or watery map may place
// fewer tribes than requested.
func (w *World) RandomSpawn(rng *rand.Rand, occupied map[Pos]bool) (Pos, bool) {
	for attempt := 0; attempt < SpawnAttempts; attempt++ {
		p := Pos{X: rng.Intn(w.Width), Y: rng.Intn(w.Height)}
		if occupied[p] || !w.Passable(p) {
			continue
		}
		return p, true
	}
	return Pos{}, false
}

// SpawnScore rates a cell for starting out: passable land with deposits on it
// and around it scores higher. Water scores zero.
func (w *World) SpawnScore(p Pos) float64 {
	t := w.Tile(p)
	if !t.Passable() {
		return 0
	}
	score := 1.0
	for _, d := range t.Resources {
		score += float64(d.Amount) / 50
	}
	for _, n := range w.Neighbors(p) {
		if n.Passable() {
			score += 0.25
		}
		if n.Deposit(ResourceFood) != nil {
			score += 0.5
		}
	}
	return score
}
