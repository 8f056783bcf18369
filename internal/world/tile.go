// Package world provides the terrain grid, tiles, and resource deposits.
// Positions are plain (x, y) cells; y grows downward.
package world

import "fmt"

// Pos is a cell on the grid.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by d.
func (p Pos) Add(d Pos) Pos {
	return Pos{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Cardinal step directions, in scan order.
var (
	North = Pos{X: 0, Y: -1}
	South = Pos{X: 0, Y: 1}
	West  = Pos{X: -1, Y: 0}
	East  = Pos{X: 1, Y: 0}
)

// Directions lists the four cardinal steps.
var Directions = [4]Pos{North, South, West, East}

// TileType classifies terrain.
type TileType uint8

const (
	TileWater    TileType = iota // Impassable
	TileSand                     // Shoreline strip
	TileGrass                    // Food
	TileForest                   // Wood, some food
	TileHill                     // Stone, some wood
	TileMountain                 // Stone, metal
	TileSwamp                    // Wood, some food
)

// AllTileTypes lists every terrain type in declaration order.
var AllTileTypes = []TileType{TileWater, TileSand, TileGrass, TileForest, TileHill, TileMountain, TileSwamp}

func (t TileType) String() string {
	switch t {
	case TileWater:
		return "water"
	case TileSand:
		return "sand"
	case TileGrass:
		return "grass"
	case TileForest:
		return "forest"
	case TileHill:
		return "hill"
	case TileMountain:
		return "mountain"
	case TileSwamp:
		return "swamp"
	default:
		return "unknown"
	}
}

// Glyph returns the single-character map symbol for the terrain.
func (t TileType) Glyph() rune {
	switch t {
	case TileWater:
		return '~'
	case TileSand:
		return '.'
	case TileGrass:
		return ','
	case TileForest:
		return '♣'
	case TileHill:
		return '^'
	case TileMountain:
		return '▲'
	case TileSwamp:
		return '≈'
	default:
		return '?'
	}
}

// ResourceType enumerates gatherable resources.
type ResourceType uint8

const (
	ResourceFood ResourceType = iota
	ResourceWood
	ResourceStone
	ResourceMetal
)

// AllResources lists the resource types in declaration order.
var AllResources = []ResourceType{ResourceFood, ResourceWood, ResourceStone, ResourceMetal}

func (r ResourceType) String() string {
	switch r {
	case ResourceFood:
		return "food"
	case ResourceWood:
		return "wood"
	case ResourceStone:
		return "stone"
	case ResourceMetal:
		return "metal"
	default:
		return "unknown"
	}
}

// ParseResource maps a resource name to its type.
func ParseResource(name string) (ResourceType, bool) {
	for _, r := range AllResources {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

// MarshalText encodes the resource by name so maps keyed by it serialize readably.
func (r ResourceType) MarshalText() ([]byte, error) {
	if r > ResourceMetal {
		return nil, fmt.Errorf("unknown resource type %d", r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a resource name.
func (r *ResourceType) UnmarshalText(b []byte) error {
	v, ok := ParseResource(string(b))
	if !ok {
		return fmt.Errorf("unknown resource %q", string(b))
	}
	*r = v
	return nil
}

// Deposit is a finite, depletable quantity of one resource on a tile.
type Deposit struct {
	Type   ResourceType `json:"type"`
	Amount int          `json:"amount"`
}

// Tile is one cell of the grid.
type Tile struct {
	Type      TileType  `json:"type"`
	Resources []Deposit `json:"resources"`

	// Owning tribe, if any.
	TribeID *int `json:"tribe_id,omitempty"`

	// Smoothed elevation and raw moisture recorded at generation time.
	Elevation float64 `json:"elevation"`
	Moisture  float64 `json:"moisture"`
}

// Passable reports whether tribes may stand on the tile. Only water blocks.
func (t *Tile) Passable() bool {
	return t != nil && t.Type != TileWater
}

// Deposit returns the first deposit of the given type, or nil.
func (t *Tile) Deposit(r ResourceType) *Deposit {
	for i := range t.Resources {
		if t.Resources[i].Type == r {
			return &t.Resources[i]
		}
	}
	return nil
}

// SetOwner marks the tile as owned by a tribe.
func (t *Tile) SetOwner(id int) {
	t.TribeID = &id
}

// OwnedByOther reports whether a tribe other than id owns the tile.
func (t *Tile) OwnedByOther(id int) (int, bool) {
	if t.TribeID == nil || *t.TribeID == id {
		return 0, false
	}
	return *t.TribeID, true
}
