package world

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Noise samples a 2D scalar field in [0, 1].
type Noise interface {
	Eval2(x, y float64) float64
}

// NoiseKind selects the noise backend used for terrain fields.
type NoiseKind string

const (
	NoiseValue   NoiseKind = "value"   // Hashed lattice values, smoothed and cosine-interpolated
	NoiseSimplex NoiseKind = "simplex" // OpenSimplex, normalized to [0, 1]
)

// ParseNoiseKind validates a backend name. Empty selects value noise.
func ParseNoiseKind(s string) (NoiseKind, error) {
	switch NoiseKind(s) {
	case "", NoiseValue:
		return NoiseValue, nil
	case NoiseSimplex:
		return NoiseSimplex, nil
	}
	return "", fmt.Errorf("unknown noise kind %q", s)
}

// NewNoise returns a noise field of the given kind.
func NewNoise(kind NoiseKind, seed int64) Noise {
	if kind == NoiseSimplex {
		return opensimplex.NewNormalized(seed)
	}
	return ValueNoise{Seed: seed}
}

// ValueNoise is lattice value noise: every integer point gets a hashed value, each
// value is blended with its eight neighbours, and points in between are eased with
// a cosine curve.
type ValueNoise struct {
	Seed int64
}

// Eval2 implements Noise.
func (n ValueNoise) Eval2(x, y float64) float64 {
	ix := math.Floor(x)
	iy := math.Floor(y)
	fx := x - ix
	fy := y - iy
	x0, y0 := int(ix), int(iy)

	v1 := n.smoothed(x0, y0)
	v2 := n.smoothed(x0+1, y0)
	v3 := n.smoothed(x0, y0+1)
	v4 := n.smoothed(x0+1, y0+1)

	i1 := cosineLerp(v1, v2, fx)
	i2 := cosineLerp(v3, v4, fx)
	return cosineLerp(i1, i2, fy)
}

// smoothed weights corners 1/16, edges 1/8 and the centre 1/4.
func (n ValueNoise) smoothed(x, y int) float64 {
	corners := (n.hash(x-1, y-1) + n.hash(x+1, y-1) + n.hash(x-1, y+1) + n.hash(x+1, y+1)) / 16
	sides := (n.hash(x-1, y) + n.hash(x+1, y) + n.hash(x, y-1) + n.hash(x, y+1)) / 8
	center := n.hash(x, y) / 4
	return corners + sides + center
}

// hash maps an integer lattice point to [0, 1).
func (n ValueNoise) hash(x, y int) float64 {
	h := uint64(n.Seed) * 0x9E3779B97F4A7C15
	h ^= uint64(int64(x)) * 0xBF58476D1CE4E5B9
	h = (h ^ (h >> 29)) * 0x94D049BB133111EB
	h ^= uint64(int64(y)) * 0xD6E8FEB86659FD93
	h ^= h >> 31
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 32
	return float64(h>>11) / float64(1<<53)
}

func cosineLerp(a, b, t float64) float64 {
	f := (1 - math.Cos(t*math.Pi)) * 0.5
	return a*(1-f) + b*f
}

// octaves builds one noise layer per octave, seeded seed, seed+1, ...
func octaves(kind NoiseKind, seed int64, count int) []Noise {
	layers := make([]Noise, count)
	for i := range layers {
		layers[i] = NewNoise(kind, seed+int64(i))
	}
	return layers
}

// octaveNoise layers the fields with amplitude halving and frequency doubling,
// normalized by total amplitude.
func octaveNoise(layers []Noise, x, y, frequency float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for _, layer := range layers {
		total += layer.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
