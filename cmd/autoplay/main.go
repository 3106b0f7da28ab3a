// Command autoplay plays games against a running server through its REST
// API. It creates a session, plans batches of moves locally and submits
// them with bulk-move until the game ends, then resets for the next game.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// Client drives one session over HTTP
type Client struct {
	baseURL   string
	sessionID string
	token     string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

// CreateSession starts a session and remembers its id and token
func (c *Client) CreateSession(ctx context.Context, configID string, seed int64) (*engine.GameState, error) {
	var resp struct {
		service.SessionInfo
		Token string `json:"token"`
	}
	req := map[string]any{"config_id": configID, "seed": seed}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return nil, err
	}

	c.sessionID = resp.ID
	c.token = resp.Token
	return resp.GameState, nil
}

func (c *Client) BulkMove(ctx context.Context, dirs []engine.Direction) (*service.BulkMoveResult, error) {
	moves := make([]string, len(dirs))
	for i, d := range dirs {
		moves[i] = d.String()
	}

	var result service.BulkMoveResult
	path := fmt.Sprintf("/api/sessions/%s/bulk-move", c.sessionID)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"moves": moves}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	return c.stateCall(ctx, "reset")
}

func (c *Client) KeepPlaying(ctx context.Context) (*engine.GameState, error) {
	return c.stateCall(ctx, "continue")
}

func (c *Client) stateCall(ctx context.Context, action string) (*engine.GameState, error) {
	var resp struct {
		State *engine.GameState `json:"state"`
	}
	path := fmt.Sprintf("/api/sessions/%s/%s", c.sessionID, action)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// GameSummary is what one finished game reached
type GameSummary struct {
	Score       int
	HighestTile int
	Turns       int
	Won         bool
	Over        bool
	Reward      string
}

type playOptions struct {
	Config   string
	Games    int
	Seed     int64
	Batch    int
	MaxMoves int
}

// playGames plays opts.Games games in one session, resetting between games
func playGames(ctx context.Context, c *Client, opts playOptions) ([]GameSummary, error) {
	state, err := c.CreateSession(ctx, opts.Config, opts.Seed)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session", c.sessionID).Str("config", opts.Config).Msg("session created")

	var summaries []GameSummary
	for game := 0; game < opts.Games; game++ {
		if game > 0 {
			if state, err = c.Reset(ctx); err != nil {
				return summaries, err
			}
		}

		summary, err := playGame(ctx, c, state, opts)
		if err != nil {
			return summaries, err
		}
		log.Info().
			Int("game", game+1).
			Int("score", summary.Score).
			Int("highest", summary.HighestTile).
			Int("turns", summary.Turns).
			Str("reward", summary.Reward).
			Msg("game finished")
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func playGame(ctx context.Context, c *Client, state *engine.GameState, opts playOptions) (GameSummary, error) {
	summary := GameSummary{Reward: "none"}
	for !state.IsOver && state.Turns < opts.MaxMoves {
		moves := plan(state.Grid, min(opts.Batch, opts.MaxMoves-state.Turns, engine.MaxBulkMoves))
		if len(moves) == 0 {
			break
		}

		result, err := c.BulkMove(ctx, moves)
		if err != nil {
			return summary, err
		}
		state = result.GameState
		if result.Reward != nil {
			summary.Reward = result.Reward.Name
		}

		if result.StopReasonCode == "win_pending" {
			log.Info().Int("tile", state.HighestTile).Msg("won, continuing")
			if state, err = c.KeepPlaying(ctx); err != nil {
				return summary, err
			}
		}
	}

	summary.Score = state.Score
	summary.HighestTile = state.HighestTile
	summary.Turns = state.Turns
	summary.Won = state.HasWon
	summary.Over = state.IsOver
	return summary, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play games against a running merge game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server base URL", Sources: cli.EnvVars("MERGEGAME_URL")},
			&cli.StringFlag{Name: "config", Value: "classic", Usage: "Config id to play"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Games to play"},
			&cli.IntFlag{Name: "seed", Usage: "Seed for the first game (0 picks one)"},
			&cli.IntFlag{Name: "batch", Value: 10, Usage: "Moves planned per bulk request"},
			&cli.IntFlag{Name: "max-moves", Value: 10000, Usage: "Give up on a game after this many moves"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			summaries, err := playGames(ctx, NewClient(cmd.String("url")), playOptions{
				Config:   cmd.String("config"),
				Games:    cmd.Int("games"),
				Seed:     int64(cmd.Int("seed")),
				Batch:    max(cmd.Int("batch"), 1),
				MaxMoves: cmd.Int("max-moves"),
			})
			for i, s := range summaries {
				fmt.Printf("Game %d: score=%d best=%d turns=%d won=%t reward=%s\n", i+1, s.Score, s.HighestTile, s.Turns, s.Won, s.Reward)
			}
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("autoplay failed")
	}
}
