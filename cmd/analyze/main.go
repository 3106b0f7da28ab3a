// Command analyze plays seeded greedy games against every configuration in
// the configs directory and prints what a steady player can expect: score
// spread, highest tiles reached, win rate and the reward tiers earned.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/reward"
)

// preference breaks ties between equally good moves and keeps big tiles
// gathered in the bottom-left corner.
var preference = []engine.Direction{engine.Down, engine.Left, engine.Right, engine.Up}

// GameSummary is the outcome of one autoplayed game
type GameSummary struct {
	Seed        int64
	Score       int
	HighestTile int
	Turns       int
	Won         bool
	Tier        string
}

// Report aggregates the games played on one configuration
type Report struct {
	ConfigID     string
	Name         string
	GridSize     int
	WinThreshold int
	Games        []GameSummary
}

// Wins counts games that reached the win threshold
func (r *Report) Wins() int {
	n := 0
	for _, g := range r.Games {
		if g.Won {
			n++
		}
	}
	return n
}

// ScoreStats returns min, mean and max score
func (r *Report) ScoreStats() (lo, mean, hi int) {
	if len(r.Games) == 0 {
		return 0, 0, 0
	}
	lo = r.Games[0].Score
	total := 0
	for _, g := range r.Games {
		total += g.Score
		lo = min(lo, g.Score)
		hi = max(hi, g.Score)
	}
	return lo, total / len(r.Games), hi
}

// TileCounts maps highest tile to how many games ended there
func (r *Report) TileCounts() map[int]int {
	counts := make(map[int]int)
	for _, g := range r.Games {
		counts[g.HighestTile]++
	}
	return counts
}

// TierCounts maps reward tier name to number of games
func (r *Report) TierCounts() map[string]int {
	counts := make(map[string]int)
	for _, g := range r.Games {
		counts[g.Tier]++
	}
	return counts
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Autoplay every game configuration and summarize the outcomes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "configs", Value: "configs", Usage: "Configuration directory", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "config", Usage: "Analyze a single config id"},
			&cli.IntFlag{Name: "games", Value: 20, Usage: "Games per configuration"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed of the first game; later games use seed+i"},
			&cli.IntFlag{Name: "max-moves", Value: 5000, Usage: "Stop a game after this many accepted moves"},
			&cli.IntFlag{Name: "parallel", Value: 4, Usage: "Games played concurrently"},
		},
		Action: run,
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("analyze failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("configs"))
	if err != nil {
		return err
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ConfigID < infos[j].ConfigID })

	only := cmd.String("config")
	for _, info := range infos {
		if only != "" && !strings.EqualFold(only, info.ConfigID) {
			continue
		}
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			log.Warn().Err(err).Str("config", info.ConfigID).Msg("skipping config")
			continue
		}

		report, err := analyzeConfig(ctx, info.ConfigID, cfg, analysisOptions{
			Games:    cmd.Int("games"),
			Seed:     int64(cmd.Int("seed")),
			MaxMoves: cmd.Int("max-moves"),
			Parallel: cmd.Int("parallel"),
		})
		if err != nil {
			return fmt.Errorf("analyze %s: %w", info.ConfigID, err)
		}
		printReport(os.Stdout, report)
	}
	return nil
}

type analysisOptions struct {
	Games    int
	Seed     int64
	MaxMoves int
	Parallel int
}

// analyzeConfig plays opts.Games games on cfg, opts.Parallel at a time.
// Results are ordered by seed regardless of completion order.
func analyzeConfig(ctx context.Context, id string, cfg *engine.GameConfig, opts analysisOptions) (*Report, error) {
	tiers, err := reward.FromConfig(cfg.RewardTiers)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ConfigID:     id,
		Name:         cfg.Name,
		GridSize:     cfg.GridSize,
		WinThreshold: cfg.WinThreshold,
		Games:        make([]GameSummary, max(opts.Games, 0)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i := range report.Games {
		seed := opts.Seed + int64(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary, err := playGame(cfg, seed, opts.MaxMoves)
			if err != nil {
				return err
			}
			summary.Tier = "none"
			if tier, ok := tiers.Resolve(summary.HighestTile); ok {
				summary.Tier = tier.Name
			}
			report.Games[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// playGame runs one greedy game to completion or maxMoves accepted moves.
// Wins on stop_on_win configs are acknowledged so play continues.
func playGame(cfg *engine.GameConfig, seed int64, maxMoves int) (GameSummary, error) {
	c := *cfg
	c.Seed = seed
	game, err := engine.NewEngine(&c, nil)
	if err != nil {
		return GameSummary{}, err
	}

	for game.GetState().Turns < maxMoves && !game.IsGameOver() {
		if game.AwaitingContinue() {
			game.KeepPlaying()
		}
		dir, ok := chooseMove(game.GetState().Grid)
		if !ok {
			break
		}
		if res := game.Move(dir); !res.Changed {
			break
		}
	}

	state := game.GetState()
	return GameSummary{
		Seed:        seed,
		Score:       state.Score,
		HighestTile: state.HighestTile,
		Turns:       state.Turns,
		Won:         state.HasWon,
	}, nil
}

// chooseMove picks the move with the best merge gain plus free space. It
// reports false when no move changes the grid.
func chooseMove(grid *engine.Grid) (engine.Direction, bool) {
	best, bestValue, found := engine.Up, -1, false
	for _, dir := range preference {
		outcome := engine.Slide(grid, dir)
		if !outcome.Changed {
			continue
		}
		value := outcome.ScoreDelta + 4*len(outcome.Grid.EmptyCells())
		if value > bestValue {
			best, bestValue, found = dir, value, true
		}
	}
	return best, found
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\n=== %s (%s) ===\n", r.Name, r.ConfigID)
	fmt.Fprintf(w, "Grid: %dx%d, win at %d\n", r.GridSize, r.GridSize, r.WinThreshold)
	if len(r.Games) == 0 {
		fmt.Fprintln(w, "No games played")
		return
	}

	lo, mean, hi := r.ScoreStats()
	fmt.Fprintf(w, "Games: %d, wins: %d (%.0f%%)\n", len(r.Games), r.Wins(), 100*float64(r.Wins())/float64(len(r.Games)))
	fmt.Fprintf(w, "Score: min %d, mean %d, max %d\n", lo, mean, hi)

	tiles := r.TileCounts()
	values := make([]int, 0, len(tiles))
	for v := range tiles {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	fmt.Fprintln(w, "Highest tile:")
	for _, v := range values {
		fmt.Fprintf(w, "  %6d  %d\n", v, tiles[v])
	}

	tierCounts := r.TierCounts()
	names := make([]string, 0, len(tierCounts))
	for name := range tierCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Reward tiers:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %d\n", name, tierCounts[name])
	}

	if r.Wins() == 0 {
		fmt.Fprintf(w, "⚠️  No greedy game reached %d\n", r.WinThreshold)
	} else {
		fmt.Fprintf(w, "✅ Win threshold reachable\n")
	}
}
