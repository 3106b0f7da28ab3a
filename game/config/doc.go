// Package config provides game configuration management for the merge game.
//
// Configurations live in a directory as YAML (.yaml, .yml) or JSON files.
// Each file defines:
//   - Board size and the tile value that counts as a win
//   - How many tiles start on the board and how often a 4 spawns
//   - Whether play pauses on a win until the player continues
//   - Reward tiers keyed by highest tile and optional speed tiers
//   - Message templates shown after moves
//
// The file name without extension is the config ID used when creating
// sessions. Missing fields are filled from the engine defaults before
// validation, so a file only needs a name, a grid size and a four
// probability.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("mini")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
//	// reload on edits until ctx is cancelled
//	go manager.Watch(ctx)
//
// The default is classic when present, otherwise the first valid file, and
// the built-in 4x4 board when the directory has none.
package config
