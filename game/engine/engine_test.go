package engine

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func createTestConfig() *GameConfig {
	return &GameConfig{
		Name:            "engine-test",
		Description:     "Configuration for engine tests",
		GridSize:        4,
		WinThreshold:    2048,
		StartTiles:      2,
		FourProbability: 0.1,
		Seed:            11,
		Messages:        DefaultMessages(),
	}
}

// engineWithGrid returns an engine whose state holds the given values
func engineWithGrid(t *testing.T, config *GameConfig, values [][]int) *GameEngine {
	t.Helper()
	e, err := NewEngine(config, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	grid, err := GridFromValues(values)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	state := e.GetState()
	state.Grid = grid
	state.HighestTile = grid.HighestTile()
	if err := e.SetState(state); err != nil {
		t.Fatalf("Failed to set state: %v", err)
	}
	return e
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	engine, err := NewEngine(config, nil)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	if engine.GetScore() != 0 {
		t.Errorf("Expected initial score 0, got %d", engine.GetScore())
	}
	if engine.IsGameOver() {
		t.Error("Expected game not to be over initially")
	}
	if engine.HasWon() {
		t.Error("Expected game not to be won initially")
	}
	if got := len(engine.GetState().Grid.Tiles); got != 2 {
		t.Errorf("Expected 2 starting tiles, got %d", got)
	}
	if engine.GetState().Seed != config.Seed {
		t.Errorf("Expected seed %d, got %d", config.Seed, engine.GetState().Seed)
	}
	if engine.GetConfig() != config {
		t.Error("Expected engine to keep its config")
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.GridSize = 1
	if _, err := NewEngine(config, nil); err == nil {
		t.Error("Expected error for 1x1 grid")
	}
}

func TestNewEngineWithDefaults(t *testing.T) {
	engine := NewEngineWithDefaults()
	if engine.GetConfig().Name != "classic" {
		t.Errorf("Expected classic config, got %s", engine.GetConfig().Name)
	}
	if engine.GetState().Grid.Size != DefaultGridSize {
		t.Errorf("Expected default grid size, got %d", engine.GetState().Grid.Size)
	}
}

func TestEngine_SameSeedSameGame(t *testing.T) {
	a, _ := NewEngine(createTestConfig(), nil)
	b, _ := NewEngine(createTestConfig(), nil)

	moves := []Direction{Left, Up, Right, Down, Left, Left, Up, Down}
	for _, m := range moves {
		a.Move(m)
		b.Move(m)
	}
	if a.GetScore() != b.GetScore() {
		t.Errorf("Scores diverged: %d vs %d", a.GetScore(), b.GetScore())
	}
	av, bv := a.GetState().Grid.Values(), b.GetState().Grid.Values()
	for r := range av {
		for c := range av[r] {
			if av[r][c] != bv[r][c] {
				t.Fatalf("Grids diverged at (%d,%d)", r, c)
			}
		}
	}
}

func TestEngine_Move(t *testing.T) {
	engine := engineWithGrid(t, createTestConfig(), [][]int{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	result := engine.Move(Left)
	if !result.Changed {
		t.Fatal("Expected move to change the grid")
	}
	if result.ScoreDelta != 4 {
		t.Errorf("Expected score delta 4, got %d", result.ScoreDelta)
	}
	if result.Spawned == nil {
		t.Fatal("Expected a spawned tile")
	}

	state := engine.GetState()
	if state.Score != 4 {
		t.Errorf("Expected score 4, got %d", state.Score)
	}
	if state.Turns != 1 {
		t.Errorf("Expected 1 turn, got %d", state.Turns)
	}
	if len(state.Grid.Tiles) != 2 {
		t.Errorf("Expected merged tile plus spawn, got %d tiles", len(state.Grid.Tiles))
	}
	if state.HighestTile != 4 {
		t.Errorf("Expected highest tile 4, got %d", state.HighestTile)
	}
	if !strings.Contains(state.Message, "+4") {
		t.Errorf("Expected merge message, got %q", state.Message)
	}
	if len(result.Changes) == 0 {
		t.Error("Expected tile changes for presentation")
	}
	if len(state.MoveHistory) != 1 || !state.MoveHistory[0].Success {
		t.Errorf("Expected one successful history entry, got %+v", state.MoveHistory)
	}
}

func TestEngine_IneffectiveMove(t *testing.T) {
	engine := engineWithGrid(t, createTestConfig(), [][]int{
		{2, 4, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	before := engine.GetState().Grid.Clone()

	result := engine.Move(Left)
	if result.Changed {
		t.Fatal("Expected no change")
	}
	if result.Spawned != nil {
		t.Error("Ineffective move must not spawn")
	}

	state := engine.GetState()
	if state.Turns != 0 || state.Score != 0 {
		t.Errorf("Ineffective move must not count, turns=%d score=%d", state.Turns, state.Score)
	}
	if len(state.Grid.Tiles) != len(before.Tiles) {
		t.Error("Grid changed on ineffective move")
	}
	if state.Message != DefaultMessages().NoChange {
		t.Errorf("Expected no-change message, got %q", state.Message)
	}
	if len(state.MoveHistory) != 1 || state.MoveHistory[0].Success {
		t.Error("Expected the failed attempt in history")
	}
}

func TestEngine_CanMoveAndPossibleMoves(t *testing.T) {
	engine := engineWithGrid(t, createTestConfig(), [][]int{
		{2, 4, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	if engine.CanMove(Left) || engine.CanMove(Up) {
		t.Error("Expected left and up to be blocked")
	}
	possible := engine.GetPossibleMoves()
	if len(possible) != 2 || possible[0] != Down || possible[1] != Right {
		t.Errorf("Expected [down right], got %v", possible)
	}
}

func TestEngine_Win(t *testing.T) {
	config := createTestConfig()
	config.WinThreshold = 64
	engine := engineWithGrid(t, config, [][]int{
		{32, 32, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{2, 0, 0, 0},
	})

	result := engine.Move(Left)
	if !result.WonNow || !engine.HasWon() {
		t.Fatal("Expected win on reaching the threshold")
	}
	if !strings.Contains(engine.GetState().Message, "64") {
		t.Errorf("Expected victory message, got %q", engine.GetState().Message)
	}
	if engine.AwaitingContinue() {
		t.Error("Play should not pause without stop_on_win")
	}

	// win does not freeze play and is only reported once
	next := engine.Move(Right)
	if !next.Changed {
		t.Fatal("Expected play to continue after a win")
	}
	if next.WonNow {
		t.Error("Win must be reported only once")
	}
	if !engine.HasWon() {
		t.Error("hasWon must stay set")
	}
}

func TestEngine_StopOnWin(t *testing.T) {
	config := createTestConfig()
	config.WinThreshold = 64
	config.StopOnWin = true
	engine := engineWithGrid(t, config, [][]int{
		{32, 32, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	if engine.KeepPlaying() {
		t.Error("KeepPlaying without a win should be rejected")
	}

	results := engine.BulkMove([]Direction{Left, Right, Down})
	if len(results) != 1 {
		t.Fatalf("Expected bulk move to pause after the win, got %d results", len(results))
	}
	if !engine.AwaitingContinue() {
		t.Fatal("Expected engine to await continue")
	}

	if !engine.KeepPlaying() {
		t.Fatal("Expected KeepPlaying to succeed")
	}
	if engine.AwaitingContinue() {
		t.Error("Expected play to resume")
	}
	if engine.GetState().Message != config.Messages.KeepPlaying {
		t.Errorf("Expected keep playing message, got %q", engine.GetState().Message)
	}
}

func TestEngine_GameOver(t *testing.T) {
	config := createTestConfig()
	config.GridSize = 2
	config.StartTiles = 1
	engine := engineWithGrid(t, config, [][]int{
		{2, 4},
		{0, 8},
	})
	// the only free cell after sliding left is (1,1); a low roll spawns a 2
	engine.rng = &scriptedRNG{floats: []float64{0.0}}

	result := engine.Move(Left)
	if !result.Changed || !result.OverNow {
		t.Fatalf("Expected the move to end the game, got %+v", result)
	}
	if !engine.IsGameOver() {
		t.Fatal("Expected game over")
	}
	if engine.GetState().Message != config.Messages.GameOver {
		t.Errorf("Expected game over message, got %q", engine.GetState().Message)
	}

	// state is frozen once over
	state := engine.GetState()
	turns, history := state.Turns, len(state.MoveHistory)
	for _, dir := range Directions {
		if engine.Move(dir).Changed {
			t.Errorf("Move %s changed a finished game", dir)
		}
		if engine.CanMove(dir) {
			t.Errorf("CanMove %s true on a finished game", dir)
		}
	}
	if state.Turns != turns || len(state.MoveHistory) != history {
		t.Error("Finished game state was mutated")
	}
	if engine.KeepPlaying() {
		t.Error("KeepPlaying must fail on a finished game")
	}
}

func TestEngine_HighestTileNeverDecreases(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), rand.New(rand.NewSource(5)))
	highest := engine.GetHighestTile()

	for i := 0; i < 300 && !engine.IsGameOver(); i++ {
		engine.Move(Directions[i%len(Directions)])
		state := engine.GetState()
		if state.HighestTile < highest {
			t.Fatalf("Highest tile decreased from %d to %d", highest, state.HighestTile)
		}
		if state.HighestTile < state.Grid.HighestTile() {
			t.Fatalf("Highest tile %d below grid maximum %d", state.HighestTile, state.Grid.HighestTile())
		}
		highest = state.HighestTile
	}
}

func TestEngine_SuccessfulMoveAddsOneTile(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), rand.New(rand.NewSource(9)))

	for i := 0; i < 200 && !engine.IsGameOver(); i++ {
		before := len(engine.GetState().Grid.Tiles)
		result := engine.Move(Directions[(i*3)%len(Directions)])
		after := len(engine.GetState().Grid.Tiles)
		if !result.Changed {
			if after != before {
				t.Fatalf("Ineffective move changed tile count %d -> %d", before, after)
			}
			continue
		}
		if want := before - len(result.Merges) + 1; after != want {
			t.Fatalf("Expected %d tiles after move, got %d", want, after)
		}
	}
}

func TestEngine_Reset(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), nil)
	engine.Move(Left)
	engine.Move(Up)
	engine.Move(Right)

	prevTotal := engine.GetState().TotalMoves
	state := engine.Reset()

	if state.Score != 0 || state.Turns != 0 {
		t.Errorf("Expected fresh game, score=%d turns=%d", state.Score, state.Turns)
	}
	if len(state.Grid.Tiles) != 2 {
		t.Errorf("Expected 2 starting tiles, got %d", len(state.Grid.Tiles))
	}
	if state.TotalMoves != prevTotal || len(state.MoveHistory) != prevTotal {
		t.Errorf("Expected cumulative history to survive reset")
	}
	if state.CurrentMovesCount != 0 || len(state.CurrentMoves) != 0 {
		t.Error("Expected current segment to be cleared")
	}
	if state.Seed == 0 {
		t.Error("Expected reset game to carry a seed")
	}
}

func TestEngine_SetState(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), nil)

	if err := engine.SetState(nil); err == nil {
		t.Error("Expected error for nil state")
	}
	if err := engine.SetState(&GameState{}); err == nil {
		t.Error("Expected error for state without grid")
	}
	small, _ := NewGrid(3)
	if err := engine.SetState(&GameState{Grid: small}); err == nil {
		t.Error("Expected error for mismatched grid size")
	}

	grid, _ := GridFromValues([][]int{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 2},
	})
	restored := &GameState{Grid: grid, Score: 100, Seed: 77, Turns: 12, HighestTile: 64}
	if err := engine.SetState(restored); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if engine.GetScore() != 100 {
		t.Errorf("Expected restored score, got %d", engine.GetScore())
	}
	if len(engine.GetState().Board) != 4 {
		t.Error("Expected board view to be rebuilt")
	}

	// restoring the same snapshot twice continues identically
	other, _ := NewEngine(createTestConfig(), nil)
	_ = other.SetState(&GameState{Grid: grid.Clone(), Seed: 77, Turns: 12})
	a := engine.Move(Left)
	b := other.Move(Left)
	if a.Spawned == nil || b.Spawned == nil || a.Spawned.Pos() != b.Spawned.Pos() || a.Spawned.Value != b.Spawned.Value {
		t.Errorf("Restored engines diverged: %+v vs %+v", a.Spawned, b.Spawned)
	}
}

func TestEngine_SetStateRejectsBadGrid(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), nil)
	before := engine.GetState()

	outside := &Grid{Size: 4, Tiles: []Tile{{ID: 1, Value: 2, Row: 4, Col: 0}}, NextID: 2}
	if err := engine.SetState(&GameState{Grid: outside}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for a tile outside the grid, got %v", err)
	}
	stacked := &Grid{Size: 4, Tiles: []Tile{{ID: 1, Value: 2}, {ID: 2, Value: 2}}, NextID: 3}
	if err := engine.SetState(&GameState{Grid: stacked}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for two tiles in one cell, got %v", err)
	}
	odd := &Grid{Size: 4, Tiles: []Tile{{ID: 1, Value: 6}}, NextID: 2}
	if err := engine.SetState(&GameState{Grid: odd}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for value 6, got %v", err)
	}

	if engine.GetState() != before {
		t.Error("Rejected state must not replace the current one")
	}
	// the engine still plays after rejecting a bad state
	for _, dir := range Directions {
		engine.Move(dir)
	}
}

func TestEngine_RestoreContinuesIdentically(t *testing.T) {
	config := createTestConfig()
	config.Seed = 42
	moves := []Direction{Left, Up, Right, Down, Left, Down, Right, Up, Left, Left, Down, Right}

	straight, _ := NewEngine(config, nil)
	for _, m := range moves {
		straight.Move(m)
	}

	first, _ := NewEngine(config, nil)
	for _, m := range moves[:4] {
		first.Move(m)
	}
	data, err := json.Marshal(first.GetState())
	if err != nil {
		t.Fatalf("Failed to encode state: %v", err)
	}
	var saved GameState
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}

	// a fresh engine with another seed picks the game up from the snapshot
	other := createTestConfig()
	other.Seed = 7
	restored, _ := NewEngine(other, nil)
	if err := restored.SetState(&saved); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	for _, m := range moves[4:] {
		restored.Move(m)
	}

	a, b := straight.GetState(), restored.GetState()
	if a.Score != b.Score || a.Turns != b.Turns || a.HighestTile != b.HighestTile {
		t.Errorf("Restored game diverged: score %d/%d turns %d/%d highest %d/%d",
			a.Score, b.Score, a.Turns, b.Turns, a.HighestTile, b.HighestTile)
	}
	av, bv := a.Grid.Values(), b.Grid.Values()
	for r := range av {
		for c := range av[r] {
			if av[r][c] != bv[r][c] {
				t.Fatalf("Grids diverged at (%d,%d): %v vs %v", r, c, av, bv)
			}
		}
	}

	// resets derive the next seed from the game, so they replay too
	if straight.Reset().Seed != restored.Reset().Seed {
		t.Error("Reset after restore picked a different seed")
	}
}

func TestEngine_SetConfig(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), nil)

	bad := createTestConfig()
	bad.GridSize = 0
	if err := engine.SetConfig(bad); err == nil {
		t.Error("Expected error for invalid config")
	}

	small := createTestConfig()
	small.Name = "small"
	small.GridSize = 3
	if err := engine.SetConfig(small); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if engine.GetState().Grid.Size != 3 || engine.GetState().ConfigName != "small" {
		t.Error("Expected new game on the new config")
	}
}

func TestEngine_BulkMove(t *testing.T) {
	engine := engineWithGrid(t, createTestConfig(), [][]int{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	// up and left cannot move the lone corner tile
	results := engine.BulkMove([]Direction{Up, Right, Down})
	if len(results) != 1 || results[0].Changed {
		t.Fatalf("Expected bulk move to stop at the first ineffective move, got %+v", results)
	}

	results = engine.BulkMove([]Direction{Right, Down})
	if len(results) != 2 {
		t.Fatalf("Expected both moves to run, got %d", len(results))
	}
	if engine.GetState().Turns != 2 {
		t.Errorf("Expected 2 turns, got %d", engine.GetState().Turns)
	}
}

func TestEngine_GetLastMove(t *testing.T) {
	engine, _ := NewEngine(createTestConfig(), nil)
	if engine.GetLastMove() != nil {
		t.Error("Expected no last move")
	}
	engine.Move(Down)
	last := engine.GetLastMove()
	if last == nil || last.Action != "down" {
		t.Errorf("Expected last move down, got %+v", last)
	}
	if len(engine.GetMoveHistory()) != 1 {
		t.Errorf("Expected one history entry, got %d", len(engine.GetMoveHistory()))
	}
}
