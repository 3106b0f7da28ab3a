package engine

import "time"

// linePositions returns, for each line perpendicular to dir, the cell
// positions ordered from the edge tiles slide toward.
func linePositions(size int, dir Direction) [][]Position {
	lines := make([][]Position, size)
	for i := 0; i < size; i++ {
		line := make([]Position, size)
		for k := 0; k < size; k++ {
			switch dir {
			case Left:
				line[k] = Position{Row: i, Col: k}
			case Right:
				line[k] = Position{Row: i, Col: size - 1 - k}
			case Up:
				line[k] = Position{Row: k, Col: i}
			case Down:
				line[k] = Position{Row: size - 1 - k, Col: i}
			}
		}
		lines[i] = line
	}
	return lines
}

// Slide applies one directional move to grid and returns the result.
// The input grid is not modified. Each line is walked from the target edge;
// a tile merges into the last placed tile when both hold the same value and
// the last placed tile has not merged yet during this move, otherwise it is
// compacted to the next free position.
func Slide(grid *Grid, dir Direction) MoveOutcome {
	next := &Grid{Size: grid.Size, Tiles: make([]Tile, 0, len(grid.Tiles)), NextID: grid.NextID}
	outcome := MoveOutcome{Grid: next}

	switch dir {
	case Up, Down, Left, Right:
	default:
		next.Tiles = append(next.Tiles, grid.Tiles...)
		return outcome
	}

	idx := grid.index()
	for _, line := range linePositions(grid.Size, dir) {
		last := -1
		lastMerged := false
		free := 0
		for _, pos := range line {
			i := idx[pos.Row][pos.Col]
			if i < 0 {
				continue
			}
			current := grid.Tiles[i]

			if last >= 0 && !lastMerged && next.Tiles[last].Value == current.Value {
				absorbing := &next.Tiles[last]
				absorbing.Value *= 2
				outcome.ScoreDelta += absorbing.Value
				outcome.Merges = append(outcome.Merges, Merge{
					Into:     absorbing.ID,
					Absorbed: current.ID,
					Value:    absorbing.Value,
					At:       absorbing.Pos(),
				})
				lastMerged = true
				outcome.Changed = true
				continue
			}

			dest := line[free]
			if dest != current.Pos() {
				outcome.Changed = true
			}
			current.Row, current.Col = dest.Row, dest.Col
			next.Tiles = append(next.Tiles, current)
			last = len(next.Tiles) - 1
			lastMerged = false
			free++
		}
	}

	next.sortTiles()
	return outcome
}

// CanSlide reports whether moving in dir would change the grid
func CanSlide(grid *Grid, dir Direction) bool {
	return Slide(grid, dir).Changed
}

// AddMoveToHistory adds a move attempt to the game's move history
func (gs *GameState) AddMoveToHistory(dir Direction, result MoveResult) {
	entry := MoveHistoryEntry{
		Action:      dir.String(),
		ScoreDelta:  result.ScoreDelta,
		Score:       gs.Score,
		HighestTile: gs.HighestTile,
		Merges:      len(result.Merges),
		Spawned:     result.Spawned,
		Timestamp:   time.Now().Unix(),
		Success:     result.Changed,
		MoveNumber:  gs.TotalMoves + 1,
	}
	// Append to cumulative history (never cleared by reset) and increment total
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}
