package engine

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func createValidConfig() *GameConfig {
	return &GameConfig{
		Name:            "test",
		Description:     "Test configuration",
		GridSize:        4,
		WinThreshold:    2048,
		StartTiles:      2,
		FourProbability: 0.1,
		RewardTiers: []RewardTier{
			{Name: "bronze", MinTile: 256, Gold: 10},
			{Name: "silver", MinTile: 1024, Gold: 50},
		},
		Messages: DefaultMessages(),
	}
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	if err := ValidateGameConfig(createValidConfig()); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
	if err := ValidateGameConfig(DefaultGameConfig()); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestValidateGameConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *GameConfig)
		errMsg string
	}{
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"grid size one", func(c *GameConfig) { c.GridSize = 1 }, "grid_size"},
		{"grid size zero", func(c *GameConfig) { c.GridSize = 0 }, "grid_size"},
		{"grid size too big", func(c *GameConfig) { c.GridSize = MaxGridSize + 1 }, "grid_size"},
		{"win threshold not a power of two", func(c *GameConfig) { c.WinThreshold = 1000 }, "win_threshold"},
		{"win threshold too small", func(c *GameConfig) { c.WinThreshold = 2 }, "win_threshold"},
		{"no start tiles", func(c *GameConfig) { c.StartTiles = 0 }, "start_tiles"},
		{"start tiles fill the board", func(c *GameConfig) { c.StartTiles = 16 }, "start_tiles"},
		{"negative four probability", func(c *GameConfig) { c.FourProbability = -0.1 }, "four_probability"},
		{"four probability above one", func(c *GameConfig) { c.FourProbability = 1.5 }, "four_probability"},
		{"unnamed tier", func(c *GameConfig) { c.RewardTiers[0].Name = "" }, "reward_tiers[0]"},
		{"tier min tile not a power of two", func(c *GameConfig) { c.RewardTiers[1].MinTile = 1000 }, "reward_tiers[1].min_tile"},
		{"merged message without placeholder", func(c *GameConfig) { c.Messages.Merged = "merged!" }, "messages.merged"},
		{"victory message without placeholder", func(c *GameConfig) { c.Messages.Victory = "won!" }, "messages.victory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.modify(config)
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}

	if err := ValidateGameConfig(nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for nil config, got %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	config := &GameConfig{Name: "sparse", GridSize: 5, Messages: Messages{Welcome: "hi"}}
	config.ApplyDefaults()

	if config.WinThreshold != DefaultWinThreshold {
		t.Errorf("expected default win threshold, got %d", config.WinThreshold)
	}
	if config.StartTiles != DefaultStartTiles {
		t.Errorf("expected default start tiles, got %d", config.StartTiles)
	}
	if config.GridSize != 5 {
		t.Errorf("grid size must not change, got %d", config.GridSize)
	}
	if config.Messages.Welcome != "hi" {
		t.Errorf("custom message overwritten: %q", config.Messages.Welcome)
	}
	if config.Messages.GameOver != DefaultMessages().GameOver {
		t.Errorf("expected default game over message, got %q", config.Messages.GameOver)
	}
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("expected config to validate after defaults, got %v", err)
	}

	empty := &GameConfig{Name: "no size"}
	empty.ApplyDefaults()
	if err := ValidateGameConfig(empty); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("missing grid size must stay invalid, got %v", err)
	}
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidConfig()
	state, err := InitGameStateFromConfig(config, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Grid.Size != 4 {
		t.Errorf("expected 4x4 grid, got %d", state.Grid.Size)
	}
	if len(state.Grid.Tiles) != 2 {
		t.Errorf("expected two starting tiles, got %d", len(state.Grid.Tiles))
	}
	if state.Score != 0 || state.Turns != 0 {
		t.Errorf("expected zero score and turns, got %d/%d", state.Score, state.Turns)
	}
	if state.HighestTile != state.Grid.HighestTile() {
		t.Errorf("highest tile %d does not match grid %d", state.HighestTile, state.Grid.HighestTile())
	}
	if state.HasWon || state.IsOver {
		t.Error("new game should be neither won nor over")
	}
	if state.Message != config.Messages.Welcome {
		t.Errorf("expected welcome message, got %q", state.Message)
	}
	if state.ConfigName != "test" {
		t.Errorf("expected config name test, got %q", state.ConfigName)
	}
	if len(state.Board) != 4 {
		t.Errorf("expected 4 board rows, got %d", len(state.Board))
	}

	if _, err := InitGameStateFromConfig(&GameConfig{GridSize: 1, StartTiles: 2}, rand.New(rand.NewSource(1))); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestNewSeededSource(t *testing.T) {
	a := NewSeededSource(99, 3)
	b := NewSeededSource(99, 3)
	for i := 0; i < 10; i++ {
		if a.Intn(1000) != b.Intn(1000) {
			t.Fatal("sources with the same seed and turns diverged")
		}
	}
	if NewSeed() == 0 {
		t.Error("seed must not be zero")
	}
}
