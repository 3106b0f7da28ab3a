// Package engine implements the grid merge game.
//
// A game is an N×N grid of power-of-two tiles. Each move slides every tile
// toward one edge; two equal tiles that meet merge into one tile of double
// value and the doubled value is added to the score. A tile produced by a
// merge cannot merge again during the same move, so [2,2,2,2] sliding left
// becomes [4,4,_,_]. Every move that changes the grid spawns one new tile.
//
// Core Types:
//
// Grid holds the tiles and issues tile IDs. Slide is the pure transition
// function; it never fails and reports whether anything changed. GameEngine
// wraps a grid with score, highest tile, win and game-over flags and a
// move history. DiffGrids derives per-tile changes for presentation.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultGameConfig(), rand.New(rand.NewSource(1)))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := eng.Move(engine.Left)
//	state := eng.GetState()
//
// Randomness is injected through RandomSource so games can be replayed
// from a seed. The engine is not safe for concurrent use; callers serialise
// moves against one game.
package engine
