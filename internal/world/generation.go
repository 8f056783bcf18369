// World generation using layered noise.
// Generates elevation and moisture fields, smooths elevation, then derives terrain and deposits.
package world

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/tribesim/internal/entropy"
)

// Terrain thresholds on smoothed elevation and raw moisture.
const (
	waterLevel    = 0.3
	sandLevel     = 0.35
	lowlandLevel  = 0.6
	hillLevel     = 0.8
	swampMoisture = 0.6
	grassMoisture = 0.3
)

// moistureSeedOffset separates the moisture field from the elevation field.
const moistureSeedOffset = 1000

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width            int
	Height           int
	Seed             int64 // 0 = random
	SeaLevel         float64
	Noise            NoiseKind
	Frequency        float64 // Base sampling frequency of the first octave
	ElevationOctaves int
	MoistureOctaves  int
	SmoothPasses     int
}

// DefaultGenConfig returns the standard 200x150 map configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:            200,
		Height:           150,
		SeaLevel:         waterLevel,
		Noise:            NoiseValue,
		Frequency:        0.01,
		ElevationOctaves: 4,
		MoistureOctaves:  3,
		SmoothPasses:     2,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 40
	cfg.Height = 30
	cfg.Seed = 42
	cfg.Frequency = 0.05
	return cfg
}

// Generate creates a complete world. Output is fully determined by cfg.Seed when it is
// non-zero; deposits draw from a dedicated seeded stream.
func Generate(cfg GenConfig) *World {
	src := entropy.NewSource(cfg.Seed)
	seed := src.Seed()

	elevLayers := octaves(cfg.Noise, seed, cfg.ElevationOctaves)
	moistLayers := octaves(cfg.Noise, seed+moistureSeedOffset, cfg.MoistureOctaves)

	elevation := make([][]float64, cfg.Height)
	moisture := make([][]float64, cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		elevation[y] = make([]float64, cfg.Width)
		moisture[y] = make([]float64, cfg.Width)
		for x := 0; x < cfg.Width; x++ {
			elevation[y][x] = octaveNoise(elevLayers, float64(x), float64(y), cfg.Frequency)
			moisture[y][x] = octaveNoise(moistLayers, float64(x), float64(y), cfg.Frequency)
		}
	}

	for pass := 0; pass < cfg.SmoothPasses; pass++ {
		elevation = boxBlur(elevation)
	}

	w := NewWorld(cfg.Width, cfg.Height)
	w.SeaLevel = cfg.SeaLevel
	w.Seed = seed

	rng := src.Stream(entropy.StreamResources)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			t := &w.Tiles[y][x]
			t.Elevation = elevation[y][x]
			t.Moisture = moisture[y][x]
			t.Type = classify(t.Elevation, t.Moisture)
			t.Resources = spawnResources(t.Type, rng)
		}
	}

	slog.Debug("world generated", "width", cfg.Width, "height", cfg.Height, "seed", seed, "noise", cfg.Noise)
	return w
}

// boxBlur averages each cell with its 3x3 neighbourhood, using partial windows at edges.
func boxBlur(field [][]float64) [][]float64 {
	h := len(field)
	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		w := len(field[y])
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			sum := 0.0
			count := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= len(field[ny]) {
						continue
					}
					sum += field[ny][nx]
					count++
				}
			}
			out[y][x] = sum / float64(count)
		}
	}
	return out
}

// classify determines terrain from elevation and moisture.
func classify(elev, moist float64) TileType {
	switch {
	case elev < waterLevel:
		return TileWater
	case elev < sandLevel:
		return TileSand
	case elev < lowlandLevel:
		if moist > swampMoisture {
			return TileSwamp
		}
		if moist > grassMoisture {
			return TileGrass
		}
		return TileForest
	case elev < hillLevel:
		return TileHill
	default:
		return TileMountain
	}
}

// spawnRule is one independent deposit roll: with probability Chance, add Min+[0,Span) units.
type spawnRule struct {
	Resource ResourceType
	Chance   float64
	Min      int
	Span     int
}

// spawnTable lists the deposit rolls per terrain. Water and sand carry nothing.
var spawnTable = map[TileType][]spawnRule{
	TileForest: {
		{ResourceWood, 0.8, 50, 50},
		{ResourceFood, 0.4, 20, 30},
	},
	TileGrass: {
		{ResourceFood, 0.6, 30, 40},
	},
	TileHill: {
		{ResourceStone, 0.5, 20, 30},
		{ResourceWood, 0.3, 10, 20},
	},
	TileMountain: {
		{ResourceStone, 0.7, 30, 50},
		{ResourceMetal, 0.4, 10, 20},
	},
	TileSwamp: {
		{ResourceWood, 0.5, 20, 30},
		{ResourceFood, 0.3, 10, 20},
	},
}

func spawnResources(t TileType, rng *rand.Rand) []Deposit {
	var deposits []Deposit
	for _, rule := range spawnTable[t] {
		if rng.Float64() < rule.Chance {
			deposits = append(deposits, Deposit{
				Type:   rule.Resource,
				Amount: rule.Min + rng.Intn(rule.Span),
			})
		}
	}
	return deposits
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(w *World) map[TileType]int {
	counts := make(map[TileType]int)
	for y := range w.Tiles {
		for x := range w.Tiles[y] {
			counts[w.Tiles[y][x].Type]++
		}
	}
	return counts
}

// ResourceTotals sums every deposit on the map by resource type.
func ResourceTotals(w *World) map[ResourceType]int {
	totals := make(map[ResourceType]int)
	for y := range w.Tiles {
		for x := range w.Tiles[y] {
			for _, d := range w.Tiles[y][x].Resources {
				totals[d.Type] += d.Amount
			}
		}
	}
	return totals
}
