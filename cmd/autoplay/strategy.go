package main

import "github.com/wricardo/mcp-training/mergegame/game/engine"

// order keeps the biggest tile in the bottom-left corner; Up is a last resort.
var order = []engine.Direction{engine.Down, engine.Left, engine.Right, engine.Up}

// plan picks up to n moves by simulating slides without spawns. A spawn can
// make a planned move ineffective; the server stops the batch there.
func plan(grid *engine.Grid, n int) []engine.Direction {
	var moves []engine.Direction
	for len(moves) < n {
		dir, ok := bestMove(grid)
		if !ok {
			break
		}
		moves = append(moves, dir)
		grid = engine.Slide(grid, dir).Grid
	}
	return moves
}

// bestMove looks two moves ahead and returns the direction with the highest
// value. It reports false when nothing moves.
func bestMove(grid *engine.Grid) (engine.Direction, bool) {
	best, bestValue, found := engine.Up, 0, false
	for _, dir := range order {
		outcome := engine.Slide(grid, dir)
		if !outcome.Changed {
			continue
		}

		value := evaluate(outcome)
		followUp := 0
		for _, next := range order {
			if o := engine.Slide(outcome.Grid, next); o.Changed {
				followUp = max(followUp, o.ScoreDelta)
			}
		}
		value += followUp

		if !found || value > bestValue {
			best, bestValue, found = dir, value, true
		}
	}
	return best, found
}

func evaluate(o engine.MoveOutcome) int {
	value := o.ScoreDelta + 8*len(o.Grid.EmptyCells())
	if corner, ok := o.Grid.TileAt(o.Grid.Size-1, 0); ok && corner.Value == o.Grid.HighestTile() {
		value += corner.Value
	}
	return value
}
