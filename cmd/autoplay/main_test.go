package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/mergegame/api"
	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
	"github.com/wricardo/mcp-training/mergegame/game/session"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager("../../configs")
	require.NoError(t, err)

	svc := service.NewGameService(session.NewManager(), configs)
	issuer := api.NewTokenIssuer([]byte("autoplay-secret"), time.Hour)
	ts := httptest.NewServer(api.NewServer(svc, nil, api.WithTokenIssuer(issuer)))
	t.Cleanup(ts.Close)
	return ts
}

func TestPlan(t *testing.T) {
	grid, err := engine.GridFromValues([][]int{
		{2, 2, 0},
		{0, 0, 0},
		{0, 0, 0},
	})
	require.NoError(t, err)

	moves := plan(grid, 5)
	require.NotEmpty(t, moves)
	assert.LessOrEqual(t, len(moves), 5)

	// every planned move changes the simulated grid
	for _, dir := range moves {
		outcome := engine.Slide(grid, dir)
		require.True(t, outcome.Changed, "planned %s does nothing", dir)
		grid = outcome.Grid
	}

	stuck, err := engine.GridFromValues([][]int{{2, 4}, {4, 2}})
	require.NoError(t, err)
	assert.Empty(t, plan(stuck, 5))
}

func TestBestMove_PrefersMerges(t *testing.T) {
	grid, err := engine.GridFromValues([][]int{
		{0, 0, 0},
		{0, 0, 0},
		{4, 4, 0},
	})
	require.NoError(t, err)

	dir, ok := bestMove(grid)
	require.True(t, ok)
	assert.Equal(t, engine.Left, dir)
}

func TestPlayGames(t *testing.T) {
	ts := testServer(t)
	client := NewClient(ts.URL + "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summaries, err := playGames(ctx, client, playOptions{
		Config:   "mini",
		Games:    2,
		Seed:     9,
		Batch:    8,
		MaxMoves: 5000,
	})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.NotEmpty(t, client.sessionID)
	assert.NotEmpty(t, client.token)
	for _, s := range summaries {
		assert.True(t, s.Over, "3x3 games run out of moves")
		assert.Positive(t, s.Turns)
		assert.GreaterOrEqual(t, s.HighestTile, 4)
	}
}

func TestPlayGames_MoveLimit(t *testing.T) {
	ts := testServer(t)

	summaries, err := playGames(context.Background(), NewClient(ts.URL), playOptions{
		Config:   "classic",
		Games:    1,
		Seed:     3,
		Batch:    4,
		MaxMoves: 10,
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].Over)
	assert.LessOrEqual(t, summaries[0].Turns, 10)
}

func TestClient_Errors(t *testing.T) {
	ts := testServer(t)
	ctx := context.Background()

	_, err := NewClient(ts.URL).CreateSession(ctx, "no-such-config", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(400)")

	c := NewClient(ts.URL)
	_, err = c.CreateSession(ctx, "classic", 1)
	require.NoError(t, err)

	c.token = "forged"
	_, err = c.BulkMove(ctx, []engine.Direction{engine.Left})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(401)")

	_, err = NewClient("http://127.0.0.1:1").Reset(ctx)
	assert.Error(t, err)
}
