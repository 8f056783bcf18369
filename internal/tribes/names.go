package tribes

import "math/rand"

// PlayerColor marks the player's tribe on maps.
const PlayerColor = "#2196f3"

var palette = []string{"#e91e63", "#9c27b0", "#673ab7", "#3f51b5", "#009688", "#ff9800", "#795548"}

var (
	namePrefixes = []string{
		"Ash", "Bear", "Crow", "Elk", "Flint", "Hawk", "Moss", "Oak",
		"Raven", "Reed", "Stone", "Storm", "Thorn", "Wolf", "Fern", "Ember",
	}
	nameSuffixes = []string{
		"folk", "kin", "clan", "born", "walkers", "riders", "hearth", "tongues",
	}
)

// NewName produces a tribe name by combining syllables.
func NewName(rng *rand.Rand) string {
	return namePrefixes[rng.Intn(len(namePrefixes))] + nameSuffixes[rng.Intn(len(nameSuffixes))]
}

// RandomColor picks a display color for a non-player tribe.
func RandomColor(rng *rand.Rand) string {
	return palette[rng.Intn(len(palette))]
}
