package engine

import (
	"fmt"
	"math"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	HasWon() bool
	GetScore() int
	GetHighestTile() int
	AwaitingContinue() bool
	KeepPlaying() bool

	// Movement operations
	Move(dir Direction) MoveResult
	CanMove(dir Direction) bool
	GetPossibleMoves() []Direction
	BulkMove(dirs []Direction) []MoveResult

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
	// rng overrides the per-turn seeded sources when set
	rng RandomSource
}

// NewEngine creates a new game engine with the provided configuration.
// A nil rng draws every spawn from NewSeededSource(seed, turn), with the
// seed taken from config.Seed or from the clock when the config has none.
// A non-nil rng is used for every draw instead.
func NewEngine(config *GameConfig, rng RandomSource) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	seed := config.Seed
	if rng == nil && seed == 0 {
		seed = NewSeed()
	}

	e := &GameEngine{config: config, rng: rng}
	state, err := InitGameStateFromConfig(config, e.source(seed, 0))
	if err != nil {
		return nil, err
	}
	state.Seed = seed
	e.state = state

	return e, nil
}

// source returns the random source for a turn of the game seeded with seed
func (e *GameEngine) source(seed int64, turn int) RandomSource {
	if e.rng != nil {
		return e.rng
	}
	return NewSeededSource(seed, turn)
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), nil)
	if err != nil {
		panic(fmt.Sprintf("default config rejected: %v", err))
	}
	return e
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading). Spawns after
// a restore continue exactly as the uninterrupted game would have.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil {
		return fmt.Errorf("state has no grid")
	}
	if e.config != nil && state.Grid.Size != e.config.GridSize {
		return fmt.Errorf("%w: state grid size %d does not match config grid size %d",
			ErrInvalidConfiguration, state.Grid.Size, e.config.GridSize)
	}
	if err := state.Grid.Validate(); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if state.Turns < 0 || state.Score < 0 {
		return fmt.Errorf("%w: negative turns or score", ErrInvalidConfiguration)
	}
	e.state = state
	e.state.Board = state.Grid.Rows()
	return nil
}

// Reset starts a new game on a fresh grid. Cumulative history survives.
func (e *GameEngine) Reset() *GameState {
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	// the next seed derives from this game's seed and turn count
	seed := int64(e.source(e.state.Seed, e.state.Turns+1).Intn(math.MaxInt32)) + 1
	state, err := InitGameStateFromConfig(e.config, e.source(seed, 0))
	if err != nil {
		// config was validated on construction
		return e.state
	}
	state.Seed = seed

	e.state = state
	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0

	return e.state
}

// IsGameOver returns whether no legal move remains
func (e *GameEngine) IsGameOver() bool {
	return e.state.IsOver
}

// HasWon returns whether the win threshold was ever reached
func (e *GameEngine) HasWon() bool {
	return e.state.HasWon
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetHighestTile returns the highest tile reached this game
func (e *GameEngine) GetHighestTile() int {
	return e.state.HighestTile
}

// AwaitingContinue is true when the config stops play on a win and the
// player has not chosen to keep playing yet.
func (e *GameEngine) AwaitingContinue() bool {
	return e.config != nil && e.config.StopOnWin && e.state.HasWon && !e.state.KeepPlaying && !e.state.IsOver
}

// KeepPlaying acknowledges a win so play can continue. It returns false when
// there is no win to acknowledge.
func (e *GameEngine) KeepPlaying() bool {
	if !e.state.HasWon || e.state.IsOver {
		return false
	}
	e.state.KeepPlaying = true
	e.state.Message = e.messages().KeepPlaying
	return true
}

func (e *GameEngine) messages() Messages {
	if e.config == nil {
		return DefaultMessages()
	}
	return e.config.Messages
}

func (e *GameEngine) fourProbability() float64 {
	if e.config == nil {
		return DefaultFourChance
	}
	return e.config.FourProbability
}

func (e *GameEngine) winThreshold() int {
	if e.config == nil || e.config.WinThreshold == 0 {
		return DefaultWinThreshold
	}
	return e.config.WinThreshold
}

// Move slides the grid in dir. An ineffective move leaves the grid, score
// and turn count untouched and spawns nothing. Once the game is over every
// move is ineffective.
func (e *GameEngine) Move(dir Direction) MoveResult {
	result := MoveResult{Direction: dir}
	msgs := e.messages()

	if e.state.IsOver {
		e.state.Message = msgs.GameOver
		return result
	}

	prev := e.state.Grid
	outcome := Slide(prev, dir)
	if !outcome.Changed {
		e.state.Message = msgs.NoChange
		e.state.AddMoveToHistory(dir, result)
		return result
	}

	grid := outcome.Grid
	result.Changed = true
	result.ScoreDelta = outcome.ScoreDelta
	result.Merges = outcome.Merges

	if tile, ok := SpawnTile(grid, e.source(e.state.Seed, e.state.Turns+1), e.fourProbability()); ok {
		result.Spawned = &tile
	}

	e.state.Grid = grid
	e.state.Score += outcome.ScoreDelta
	e.state.Turns++
	if h := grid.HighestTile(); h > e.state.HighestTile {
		e.state.HighestTile = h
	}
	if !e.state.HasWon && e.state.HighestTile >= e.winThreshold() {
		e.state.HasWon = true
		result.WonNow = true
	}
	if IsGameOver(grid) {
		e.state.IsOver = true
		result.OverNow = true
	}

	switch {
	case result.OverNow:
		e.state.Message = msgs.GameOver
	case result.WonNow:
		e.state.Message = fmt.Sprintf(msgs.Victory, e.state.HighestTile)
	case outcome.ScoreDelta > 0:
		e.state.Message = fmt.Sprintf(msgs.Merged, outcome.ScoreDelta)
	default:
		e.state.Message = msgs.Moved
	}

	result.Changes = DiffGrids(prev, grid)
	e.state.Board = grid.Rows()
	e.state.AddMoveToHistory(dir, result)

	return result
}

// CanMove checks whether moving in dir would change the grid
func (e *GameEngine) CanMove(dir Direction) bool {
	if e.state.IsOver {
		return false
	}
	return CanSlide(e.state.Grid, dir)
}

// GetPossibleMoves returns all directions that would change the grid
func (e *GameEngine) GetPossibleMoves() []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if e.CanMove(dir) {
			possible = append(possible, dir)
		}
	}
	return possible
}

// BulkMove executes moves in sequence. It stops after the first ineffective
// move, when the game ends, or when a win pauses play.
func (e *GameEngine) BulkMove(dirs []Direction) []MoveResult {
	results := make([]MoveResult, 0, len(dirs))

	for _, dir := range dirs {
		if e.IsGameOver() || e.AwaitingContinue() {
			break
		}
		result := e.Move(dir)
		results = append(results, result)
		if !result.Changed {
			break
		}
	}

	return results
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts a new game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}
	seed := config.Seed
	if e.rng == nil && seed == 0 {
		seed = NewSeed()
	}
	state, err := InitGameStateFromConfig(config, e.source(seed, 0))
	if err != nil {
		return err
	}
	state.Seed = seed

	e.config = config
	e.state = state
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}
