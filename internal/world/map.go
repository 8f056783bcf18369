package world

import "fmt"

// World is a fixed-size grid of tiles. Its shape never changes after creation;
// tile contents (deposits, ownership) mutate over the simulation's lifetime.
type World struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	SeaLevel float64  `json:"sea_level"`
	Seed     int64    `json:"seed"`
	Tiles    [][]Tile `json:"tiles"` // [y][x]
}

// NewWorld creates a grid of water tiles with the given dimensions.
func NewWorld(width, height int) *World {
	w := &World{
		Width:  width,
		Height: height,
		Tiles:  make([][]Tile, height),
	}
	for y := range w.Tiles {
		w.Tiles[y] = make([]Tile, width)
	}
	return w
}

// InBounds returns true if the position lies on the grid.
func (w *World) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < w.Width && p.Y >= 0 && p.Y < w.Height
}

// Tile returns the tile at p, or nil if out of bounds.
func (w *World) Tile(p Pos) *Tile {
	if !w.InBounds(p) {
		return nil
	}
	return &w.Tiles[p.Y][p.X]
}

// Passable reports whether p is on the grid and not water.
func (w *World) Passable(p Pos) bool {
	return w.Tile(p).Passable()
}

// Neighbors returns the in-bounds tiles north, south, west and east of p.
func (w *World) Neighbors(p Pos) []*Tile {
	out := make([]*Tile, 0, 4)
	for _, d := range Directions {
		if t := w.Tile(p.Add(d)); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// FindPassableNearby scans square rings of growing radius around p and returns the
// first passable cell found. Rings are scanned row by row, top to bottom, so the hit
// is the first in scan order rather than the strictly nearest.
func (w *World) FindPassableNearby(p Pos, radius int) (Pos, bool) {
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				c := Pos{X: p.X + dx, Y: p.Y + dy}
				if w.Passable(c) {
					return c, true
				}
			}
		}
	}
	return Pos{}, false
}

// ClearOwner removes tribe ownership from every tile owned by id.
func (w *World) ClearOwner(id int) {
	for y := range w.Tiles {
		for x := range w.Tiles[y] {
			t := &w.Tiles[y][x]
			if t.TribeID != nil && *t.TribeID == id {
				t.TribeID = nil
			}
		}
	}
}

// Validate checks the grid shape against the declared dimensions.
func (w *World) Validate() error {
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", w.Width, w.Height)
	}
	if len(w.Tiles) != w.Height {
		return fmt.Errorf("grid has %d rows, want %d", len(w.Tiles), w.Height)
	}
	for y, row := range w.Tiles {
		if len(row) != w.Width {
			return fmt.Errorf("row %d has %d cells, want %d", y, len(row), w.Width)
		}
		for x := range row {
			if row[x].Type > TileSwamp {
				return fmt.Errorf("tile (%d,%d) has unknown type %d", x, y, row[x].Type)
			}
			for _, d := range row[x].Resources {
				if d.Amount < 0 {
					return fmt.Errorf("tile (%d,%d) has negative %s deposit", x, y, d.Type)
				}
			}
		}
	}
	return nil
}

// TileCount returns the number of cells.
func (w *World) TileCount() int {
	return w.Width * w.Height
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(%dx%d, seed=%d)", w.Width, w.Height, w.Seed)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
