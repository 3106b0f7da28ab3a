package engine

import (
	"errors"
	"testing"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size != 4 || len(g.Tiles) != 0 {
		t.Errorf("expected empty 4x4 grid, got size %d with %d tiles", g.Size, len(g.Tiles))
	}
	if len(g.EmptyCells()) != 16 {
		t.Errorf("expected 16 empty cells, got %d", len(g.EmptyCells()))
	}
	if _, err := NewGrid(1); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for size 1, got %v", err)
	}
}

func TestGridFromValues(t *testing.T) {
	tests := []struct {
		name    string
		values  [][]int
		wantErr bool
	}{
		{"valid", [][]int{{2, 0}, {0, 4}}, false},
		{"ragged", [][]int{{2, 0}, {0}}, true},
		{"not a power of two", [][]int{{3, 0}, {0, 0}}, true},
		{"too small", [][]int{{2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GridFromValues(tt.values)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGrid_Queries(t *testing.T) {
	g, _ := GridFromValues([][]int{
		{0, 8, 0},
		{2, 0, 0},
		{0, 0, 32},
	})

	if g.HighestTile() != 32 {
		t.Errorf("expected highest 32, got %d", g.HighestTile())
	}
	if g.HighestTile() != g.HighestTile() {
		t.Error("highest tile must be stable under re-query")
	}
	if g.Sum() != 42 {
		t.Errorf("expected sum 42, got %d", g.Sum())
	}
	if g.IsFull() {
		t.Error("grid should not be full")
	}
	if tile, ok := g.TileAt(1, 0); !ok || tile.Value != 2 {
		t.Errorf("expected tile 2 at (1,0), got %+v ok=%v", tile, ok)
	}
	if _, ok := g.TileAt(1, 1); ok {
		t.Error("expected no tile at (1,1)")
	}

	empty := g.EmptyCells()
	if len(empty) != 6 || empty[0] != (Position{0, 0}) || empty[1] != (Position{0, 2}) {
		t.Errorf("unexpected empty cells %v", empty)
	}

	rows := g.Rows()
	if len(rows) != 3 || rows[0] != " .  8  ." || rows[2] != " .  . 32" {
		t.Errorf("unexpected rows %q", rows)
	}
}

func TestGrid_Clone(t *testing.T) {
	g, _ := GridFromValues([][]int{{2, 0}, {0, 4}})
	c := g.Clone()
	c.Tiles[0].Value = 64
	c.NextID = 99

	if g.Tiles[0].Value != 2 || g.NextID == 99 {
		t.Error("clone shares state with the original")
	}
	var nilGrid *Grid
	if nilGrid.Clone() != nil {
		t.Error("clone of nil should be nil")
	}
}

func TestGrid_Validate(t *testing.T) {
	valid, _ := GridFromValues([][]int{
		{2, 0, 0},
		{0, 4, 0},
		{0, 0, 8},
	})
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid grid, got %v", err)
	}

	tests := []struct {
		name  string
		tiles []Tile
	}{
		{"row out of range", []Tile{{ID: 1, Value: 2, Row: 3, Col: 0}}},
		{"negative column", []Tile{{ID: 1, Value: 2, Row: 0, Col: -1}}},
		{"two tiles in one cell", []Tile{{ID: 1, Value: 2, Row: 1, Col: 1}, {ID: 2, Value: 4, Row: 1, Col: 1}}},
		{"not a power of two", []Tile{{ID: 1, Value: 3, Row: 0, Col: 0}}},
		{"value one", []Tile{{ID: 1, Value: 1, Row: 0, Col: 0}}},
		{"duplicate id", []Tile{{ID: 1, Value: 2, Row: 0, Col: 0}, {ID: 1, Value: 2, Row: 0, Col: 1}}},
		{"id not below next id", []Tile{{ID: 9, Value: 2, Row: 0, Col: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Grid{Size: 3, Tiles: tt.tiles, NextID: 3}
			if err := g.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}

	if err := (&Grid{Size: 1, NextID: 1}).Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected 1x1 grid to be rejected, got %v", err)
	}
}
