// Command validate checks the game configuration files in a configs
// directory (../configs by default). For each YAML or JSON file it checks:
//   - the document parses and passes engine validation after defaults
//   - the win threshold can be reached on the board at all
//   - reward tiers are reachable and pay more for bigger tiles
//   - time tiers pay more for faster wins
//   - which message keys fall back to defaults
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/reward"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// maxReachableTile is the biggest tile an n×n board can build: every cell
// filled with distinct powers of two starting from a spawned 4.
func maxReachableTile(n int) int {
	exp := n*n + 1
	if exp >= 62 {
		return 1 << 62
	}
	return 1 << exp
}

// validateConfig loads and validates a single configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	ext := filepath.Ext(filePath)
	var raw engine.GameConfig
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		result.fail("Invalid %s: %v", strings.ToUpper(strings.TrimPrefix(ext, ".")), err)
		return result
	}

	cfg, err := config.Decode(data, ext)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.info("%s: %dx%d board, win at %d", cfg.Name, cfg.GridSize, cfg.GridSize, cfg.WinThreshold)

	ceiling := maxReachableTile(cfg.GridSize)
	if cfg.WinThreshold > ceiling {
		result.fail("Win threshold %d is unreachable on a %dx%d board (max tile %d)", cfg.WinThreshold, cfg.GridSize, cfg.GridSize, ceiling)
	}

	checkRewardTiers(&result, cfg, ceiling)
	checkTimeTiers(&result, cfg)
	checkMessages(&result, raw.Messages)

	return result
}

func checkRewardTiers(result *ValidationResult, cfg *engine.GameConfig, ceiling int) {
	if len(cfg.RewardTiers) == 0 {
		result.info("No reward tiers, default milestones apply")
		return
	}

	table, err := reward.FromConfig(cfg.RewardTiers)
	if err != nil {
		result.fail("Reward tiers: %v", err)
		return
	}

	tiers := table.Tiers()
	for i, tier := range tiers {
		if tier.MinTile > ceiling {
			result.fail("Reward tier %q needs tile %d, unreachable on this board", tier.Name, tier.MinTile)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if tier.Gold < prev.Gold || tier.Gems < prev.Gems {
			result.fail("Reward tier %q (tile %d) pays less than %q (tile %d)", tier.Name, tier.MinTile, prev.Name, prev.MinTile)
		}
	}

	if _, ok := table.Resolve(cfg.WinThreshold); !ok {
		result.fail("A win (tile %d) earns no reward tier", cfg.WinThreshold)
		return
	}
	result.info("Reward tiers: %d, lowest at tile %d", len(tiers), tiers[0].MinTile)
}

func checkTimeTiers(result *ValidationResult, cfg *engine.GameConfig) {
	if len(cfg.TimeTiers) == 0 {
		return
	}

	if _, err := reward.TimeTableFromConfig(cfg.TimeTiers); err != nil {
		result.fail("Time tiers: %v", err)
		return
	}

	tiers := make([]engine.TimeRewardTier, len(cfg.TimeTiers))
	copy(tiers, cfg.TimeTiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MaxSeconds < tiers[j].MaxSeconds })
	for i := 1; i < len(tiers); i++ {
		faster, slower := tiers[i-1], tiers[i]
		if faster.Gold < slower.Gold || faster.Gems < slower.Gems {
			result.fail("Time tier %q (%ds) pays less than slower %q (%ds)", faster.Name, faster.MaxSeconds, slower.Name, slower.MaxSeconds)
		}
	}
	result.info("Time tiers: %d, fastest under %ds", len(tiers), tiers[0].MaxSeconds)
}

func checkMessages(result *ValidationResult, msgs engine.Messages) {
	var missing []string
	for _, m := range []struct {
		key   string
		value string
	}{
		{"welcome", msgs.Welcome},
		{"moved", msgs.Moved},
		{"merged", msgs.Merged},
		{"no_change", msgs.NoChange},
		{"victory", msgs.Victory},
		{"keep_playing", msgs.KeepPlaying},
		{"game_over", msgs.GameOver},
	} {
		if m.value == "" {
			missing = append(missing, m.key)
		}
	}
	if len(missing) > 0 {
		result.info("Default messages used for: %s", strings.Join(missing, ", "))
		return
	}
	result.info("All messages customized")
}

// configFiles lists the config documents in dir in name order
func configFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// validateDir validates every config in dir, printing a concise report.
// It returns false when any file is invalid.
func validateDir(dir string) (bool, error) {
	files, err := configFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding config files: %w", err)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
	}
	return allValid, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate game configuration files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs", Usage: "Configuration directory", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ok, err := validateDir(cmd.String("dir"))
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("validation failed")
	}
}
