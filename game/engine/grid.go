package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Grid is the complete set of tiles plus the fixed dimension.
// Tiles are kept in row-major order.
type Grid struct {
	Size   int    `json:"size"`
	Tiles  []Tile `json:"tiles"`
	NextID TileID `json:"next_id"`
}

// NewGrid creates an empty size x size grid
func NewGrid(size int) (*Grid, error) {
	if size < MinGridSize {
		return nil, fmt.Errorf("%w: grid size must be at least %d, got %d", ErrInvalidConfiguration, MinGridSize, size)
	}
	return &Grid{Size: size, Tiles: []Tile{}, NextID: 1}, nil
}

// GridFromValues builds a square grid from a value matrix, 0 meaning empty.
// Tile IDs are assigned in row-major order starting at 1.
func GridFromValues(values [][]int) (*Grid, error) {
	g, err := NewGrid(len(values))
	if err != nil {
		return nil, err
	}
	for r, row := range values {
		if len(row) != g.Size {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidConfiguration, r, len(row), g.Size)
		}
		for c, v := range row {
			if v == 0 {
				continue
			}
			if !isPowerOfTwo(v) || v < 2 {
				return nil, fmt.Errorf("%w: value %d at (%d,%d) is not a power of two", ErrInvalidConfiguration, v, r, c)
			}
			g.place(v, r, c)
		}
	}
	return g, nil
}

// place appends a new tile with a fresh ID
func (g *Grid) place(value, row, col int) Tile {
	t := Tile{ID: g.NextID, Value: value, Row: row, Col: col}
	g.NextID++
	g.Tiles = append(g.Tiles, t)
	g.sortTiles()
	return t
}

func (g *Grid) sortTiles() {
	sort.Slice(g.Tiles, func(i, j int) bool {
		if g.Tiles[i].Row != g.Tiles[j].Row {
			return g.Tiles[i].Row < g.Tiles[j].Row
		}
		return g.Tiles[i].Col < g.Tiles[j].Col
	})
}

// Clone returns a deep copy
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	tiles := make([]Tile, len(g.Tiles))
	copy(tiles, g.Tiles)
	return &Grid{Size: g.Size, Tiles: tiles, NextID: g.NextID}
}

// Validate checks a grid that came from outside the engine: every tile inside
// the board, at most one tile per cell, values powers of two of at least 2,
// IDs unique and below NextID.
func (g *Grid) Validate() error {
	if g.Size < MinGridSize {
		return fmt.Errorf("%w: grid size must be at least %d, got %d", ErrInvalidConfiguration, MinGridSize, g.Size)
	}
	cells := make(map[Position]bool, len(g.Tiles))
	ids := make(map[TileID]bool, len(g.Tiles))
	for _, t := range g.Tiles {
		if t.Row < 0 || t.Row >= g.Size || t.Col < 0 || t.Col >= g.Size {
			return fmt.Errorf("%w: tile %d at (%d,%d) is outside the %dx%d grid", ErrInvalidConfiguration, t.ID, t.Row, t.Col, g.Size, g.Size)
		}
		if cells[t.Pos()] {
			return fmt.Errorf("%w: more than one tile at (%d,%d)", ErrInvalidConfiguration, t.Row, t.Col)
		}
		cells[t.Pos()] = true
		if t.Value < 2 || !isPowerOfTwo(t.Value) {
			return fmt.Errorf("%w: value %d at (%d,%d) is not a power of two", ErrInvalidConfiguration, t.Value, t.Row, t.Col)
		}
		if ids[t.ID] || t.ID >= g.NextID {
			return fmt.Errorf("%w: tile id %d is reused or not below next id %d", ErrInvalidConfiguration, t.ID, g.NextID)
		}
		ids[t.ID] = true
	}
	return nil
}

// index returns a size x size matrix of indices into g.Tiles, -1 for empty cells
func (g *Grid) index() [][]int {
	m := make([][]int, g.Size)
	for r := range m {
		m[r] = make([]int, g.Size)
		for c := range m[r] {
			m[r][c] = -1
		}
	}
	for i, t := range g.Tiles {
		m[t.Row][t.Col] = i
	}
	return m
}

// Values returns the grid as a value matrix, 0 for empty cells
func (g *Grid) Values() [][]int {
	m := make([][]int, g.Size)
	for r := range m {
		m[r] = make([]int, g.Size)
	}
	for _, t := range g.Tiles {
		m[t.Row][t.Col] = t.Value
	}
	return m
}

// TileAt returns the tile occupying row,col if any
func (g *Grid) TileAt(row, col int) (Tile, bool) {
	for _, t := range g.Tiles {
		if t.Row == row && t.Col == col {
			return t, true
		}
	}
	return Tile{}, false
}

// EmptyCells lists free cells in row-major order
func (g *Grid) EmptyCells() []Position {
	values := g.Values()
	empty := make([]Position, 0, g.Size*g.Size-len(g.Tiles))
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			if values[r][c] == 0 {
				empty = append(empty, Position{Row: r, Col: c})
			}
		}
	}
	return empty
}

// IsFull reports whether every cell is occupied
func (g *Grid) IsFull() bool {
	return len(g.Tiles) >= g.Size*g.Size
}

// HighestTile returns the largest value present, 0 for an empty grid
func (g *Grid) HighestTile() int {
	highest := 0
	for _, t := range g.Tiles {
		if t.Value > highest {
			highest = t.Value
		}
	}
	return highest
}

// Sum returns the total of all tile values
func (g *Grid) Sum() int {
	sum := 0
	for _, t := range g.Tiles {
		sum += t.Value
	}
	return sum
}

// Rows renders the grid as fixed-width text rows, "." for empty cells
func (g *Grid) Rows() []string {
	values := g.Values()
	width := len(strconv.Itoa(g.HighestTile()))
	if width < 1 {
		width = 1
	}
	rows := make([]string, 0, g.Size)
	for _, row := range values {
		cells := make([]string, len(row))
		for c, v := range row {
			text := "."
			if v != 0 {
				text = strconv.Itoa(v)
			}
			cells[c] = fmt.Sprintf("%*s", width, text)
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return rows
}

// hasAdjacentEqual reports whether two orthogonally adjacent tiles share a value
func (g *Grid) hasAdjacentEqual() bool {
	values := g.Values()
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			v := values[r][c]
			if v == 0 {
				continue
			}
			if c+1 < g.Size && values[r][c+1] == v {
				return true
			}
			if r+1 < g.Size && values[r+1][c] == v {
				return true
			}
		}
	}
	return false
}

// IsGameOver is true iff the grid has no empty cell and no adjacent equal pair
func IsGameOver(g *Grid) bool {
	return g.IsFull() && !g.hasAdjacentEqual()
}

// HasAvailableMove is the negation of IsGameOver
func HasAvailableMove(g *Grid) bool {
	return !IsGameOver(g)
}

// DiffGrids derives per-tile changes between two snapshots of the same game.
// It is meant for presentation layers that animate slides, merges and spawns.
func DiffGrids(prev, next *Grid) []TileChange {
	if prev == nil || next == nil {
		return nil
	}
	before := make(map[TileID]Tile, len(prev.Tiles))
	for _, t := range prev.Tiles {
		before[t.ID] = t
	}

	var changes []TileChange
	seen := make(map[TileID]bool, len(next.Tiles))
	for _, t := range next.Tiles {
		seen[t.ID] = true
		to := t.Pos()
		old, existed := before[t.ID]
		switch {
		case !existed:
			changes = append(changes, TileChange{ID: t.ID, Kind: ChangeSpawned, To: &to, Value: t.Value})
		case old.Value != t.Value:
			from := old.Pos()
			changes = append(changes, TileChange{ID: t.ID, Kind: ChangeMerged, From: &from, To: &to, Value: t.Value})
		case old.Row != t.Row || old.Col != t.Col:
			from := old.Pos()
			changes = append(changes, TileChange{ID: t.ID, Kind: ChangeMoved, From: &from, To: &to, Value: t.Value})
		}
	}
	for _, t := range prev.Tiles {
		if !seen[t.ID] {
			from := t.Pos()
			changes = append(changes, TileChange{ID: t.ID, Kind: ChangeAbsorbed, From: &from, Value: t.Value})
		}
	}
	return changes
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
