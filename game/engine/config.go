package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DefaultMessages returns the built-in message templates
func DefaultMessages() Messages {
	return Messages{
		Welcome:     "Slide the tiles and join equal numbers. Reach the goal tile to win!",
		Moved:       "Tiles moved.",
		Merged:      "Merged tiles for +%d points!",
		NoChange:    "Nothing moved. Try another direction.",
		Victory:     "You reached %d! Keep going for a higher score.",
		KeepPlaying: "Playing on past the goal tile.",
		GameOver:    "No moves left. Game over!",
	}
}

// DefaultGameConfig returns the classic 4x4 configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:            "classic",
		Description:     "Classic 4x4 board, reach 2048",
		GridSize:        DefaultGridSize,
		WinThreshold:    DefaultWinThreshold,
		StartTiles:      DefaultStartTiles,
		FourProbability: DefaultFourChance,
		Messages:        DefaultMessages(),
	}
}

// ApplyDefaults fills zero-valued optional fields. Grid size is never
// defaulted: an unset size is a configuration error.
func (c *GameConfig) ApplyDefaults() {
	if c.WinThreshold == 0 {
		c.WinThreshold = DefaultWinThreshold
	}
	if c.StartTiles == 0 {
		c.StartTiles = DefaultStartTiles
	}
	d := DefaultMessages()
	m := &c.Messages
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&m.Welcome, d.Welcome},
		{&m.Moved, d.Moved},
		{&m.Merged, d.Merged},
		{&m.NoChange, d.NoChange},
		{&m.Victory, d.Victory},
		{&m.KeepPlaying, d.KeepPlaying},
		{&m.GameOver, d.GameOver},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: %w: config is nil", ErrInvalidConfiguration)
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: %w: name is required", ErrInvalidConfiguration)
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: %w: grid_size must be between %d and %d, got %d",
			ErrInvalidConfiguration, MinGridSize, MaxGridSize, config.GridSize)
	}
	if config.WinThreshold < 4 || !isPowerOfTwo(config.WinThreshold) {
		return fmt.Errorf("config validation: %w: win_threshold must be a power of two >= 4, got %d",
			ErrInvalidConfiguration, config.WinThreshold)
	}
	cells := config.GridSize * config.GridSize
	if config.StartTiles < 1 || config.StartTiles >= cells {
		return fmt.Errorf("config validation: %w: start_tiles must be between 1 and %d, got %d",
			ErrInvalidConfiguration, cells-1, config.StartTiles)
	}
	if config.FourProbability < 0 || config.FourProbability > 1 {
		return fmt.Errorf("config validation: %w: four_probability must be within [0,1], got %g",
			ErrInvalidConfiguration, config.FourProbability)
	}

	for i, tier := range config.RewardTiers {
		if tier.Name == "" {
			return fmt.Errorf("config validation: %w: reward_tiers[%d] needs a name", ErrInvalidConfiguration, i)
		}
		if tier.MinTile < 2 || !isPowerOfTwo(tier.MinTile) {
			return fmt.Errorf("config validation: %w: reward_tiers[%d].min_tile must be a power of two >= 2, got %d",
				ErrInvalidConfiguration, i, tier.MinTile)
		}
	}

	for i, tier := range config.TimeTiers {
		if tier.Name == "" {
			return fmt.Errorf("config validation: %w: time_tiers[%d] needs a name", ErrInvalidConfiguration, i)
		}
		if tier.MaxSeconds <= 0 {
			return fmt.Errorf("config validation: %w: time_tiers[%d].max_seconds must be positive, got %d",
				ErrInvalidConfiguration, i, tier.MaxSeconds)
		}
	}

	if config.Messages.Merged != "" && !strings.Contains(config.Messages.Merged, "%d") {
		return fmt.Errorf("config validation: %w: messages.merged must contain %%d for the score delta", ErrInvalidConfiguration)
	}
	if config.Messages.Victory != "" && !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: %w: messages.victory must contain %%d for the tile value", ErrInvalidConfiguration)
	}

	return nil
}

// NewSeededSource returns a deterministic source for a game seed and turn.
// Turn 0 places the starting tiles; the spawn after move n draws from turn
// n+1, so a game's future depends only on its seed, turn count and grid.
func NewSeededSource(seed int64, turns int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(turns)*1_000_003))
}

// NewSeed returns a fresh non-zero seed
func NewSeed() int64 {
	seed := time.Now().UnixNano()
	if seed == 0 {
		seed = 1
	}
	return seed
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig, rng RandomSource) (*GameState, error) {
	if config == nil {
		config = DefaultGameConfig()
	}
	grid, err := InitializeGrid(config.GridSize, config.StartTiles, rng, config.FourProbability)
	if err != nil {
		return nil, err
	}

	highest := grid.HighestTile()
	state := &GameState{
		Grid:              grid,
		Score:             0,
		HighestTile:       highest,
		HasWon:            config.WinThreshold > 0 && highest >= config.WinThreshold,
		IsOver:            IsGameOver(grid),
		Message:           config.Messages.Welcome,
		ConfigName:        config.Name,
		Seed:              config.Seed,
		MoveHistory:       []MoveHistoryEntry{},
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}
	state.Board = grid.Rows()
	return state, nil
}
