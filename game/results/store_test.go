package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/mergegame/game/reward"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func result(session, config string, score, tile int, at time.Time) service.GameResult {
	return service.GameResult{
		SessionID:   session,
		ConfigName:  config,
		Outcome:     service.OutcomeGameOver,
		Score:       score,
		HighestTile: tile,
		Turns:       score / 4,
		Seed:        7,
		Elapsed:     90 * time.Second,
		FinishedAt:  at,
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordResult(context.Background(), result("ab12", "classic", 100, 16, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var applied int
	require.NoError(t, reopened.db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)

	totals, err := reopened.Totals(context.Background(), "ab12")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Games)
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordResult(context.Background(), result("mem1", "classic", 40, 8, time.Now())))
	entries, err := store.Leaderboard(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RecordResult(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	t.Run("requires a session", func(t *testing.T) {
		err := store.RecordResult(ctx, service.GameResult{ConfigName: "classic"})
		assert.Error(t, err)
	})

	t.Run("stores tiers", func(t *testing.T) {
		r := result("s1", "classic", 2400, 256, time.Now())
		r.HasWon = true
		r.Tier = &reward.Tier{Name: "bronze", MinTile: 256, Gold: 10, Gems: 1}
		r.SpeedTier = &reward.Tier{Name: "blitz", MaxElapsed: 600, Gems: 5, BonusStat: "luck", BonusAmount: 1}
		require.NoError(t, store.RecordResult(ctx, r))

		var rewards int
		require.NoError(t, store.db.QueryRow(`SELECT COUNT(1) FROM game_rewards`).Scan(&rewards))
		assert.Equal(t, 2, rewards)

		var elapsed int64
		require.NoError(t, store.db.QueryRow(`SELECT elapsed_ms FROM game_results WHERE session_id = 's1'`).Scan(&elapsed))
		assert.Equal(t, int64(90000), elapsed)
	})

	t.Run("same session records every game", func(t *testing.T) {
		require.NoError(t, store.RecordResult(ctx, result("s1", "classic", 80, 16, time.Now())))
		totals, err := store.Totals(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 2, totals.Games)
	})
}

func TestStore_Leaderboard(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	games := []service.GameResult{
		result("low", "classic", 300, 32, base),
		result("high", "classic", 5000, 512, base.Add(time.Minute)),
		result("tie-late", "classic", 1200, 128, base.Add(3*time.Minute)),
		result("tie-early", "classic", 1200, 128, base.Add(2*time.Minute)),
		result("tie-tile", "classic", 1200, 256, base.Add(4*time.Minute)),
		result("mini", "mini", 9000, 256, base),
	}
	games[1].Tier = &reward.Tier{Name: "silver", MinTile: 512, Gold: 25}
	games[1].SpeedTier = &reward.Tier{Name: "blitz", MaxElapsed: 600, Gems: 5}
	for _, g := range games {
		require.NoError(t, store.RecordResult(ctx, g))
	}

	t.Run("per config ordering", func(t *testing.T) {
		entries, err := store.Leaderboard(ctx, "classic", 10)
		require.NoError(t, err)

		var order []string
		for _, e := range entries {
			order = append(order, e.SessionID)
		}
		assert.Equal(t, []string{"high", "tie-tile", "tie-early", "tie-late", "low"}, order)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, 5, entries[4].Rank)
		assert.Equal(t, "silver", entries[0].Tier)
		assert.Empty(t, entries[1].Tier)
		assert.True(t, entries[0].FinishedAt.Equal(base.Add(time.Minute)))
	})

	t.Run("all configs with limit", func(t *testing.T) {
		entries, err := store.Leaderboard(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "mini", entries[0].SessionID)
		assert.Equal(t, "high", entries[1].SessionID)
	})

	t.Run("unknown config", func(t *testing.T) {
		entries, err := store.Leaderboard(ctx, "nope", 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestStore_Totals(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now().Add(-time.Hour)

	won := result("tot", "classic", 3000, 2048, base)
	won.HasWon = true
	won.Tier = &reward.Tier{Name: "champion", MinTile: 2048, Gold: 100, Gems: 5}
	won.SpeedTier = &reward.Tier{Name: "steady", MaxElapsed: 1800, Gems: 2}
	require.NoError(t, store.RecordResult(ctx, won))

	abandoned := result("tot", "classic", 40, 8, base.Add(time.Minute))
	abandoned.Outcome = service.OutcomeAbandoned
	require.NoError(t, store.RecordResult(ctx, abandoned))

	require.NoError(t, store.RecordResult(ctx, result("other", "classic", 99999, 4096, base)))

	totals, err := store.Totals(ctx, "tot")
	require.NoError(t, err)
	assert.Equal(t, &Totals{
		SessionID:   "tot",
		Games:       2,
		Wins:        1,
		BestScore:   3000,
		BestTile:    2048,
		TotalScore:  3040,
		Gold:        100,
		Gems:        7,
		TotalTurns:  750 + 10,
		LastOutcome: service.OutcomeAbandoned,
	}, totals)

	empty, err := store.Totals(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Games)
	assert.Empty(t, empty.LastOutcome)
}

func TestStore_ServesGameService(t *testing.T) {
	var recorder service.ResultRecorder = openTestStore(t)
	require.NoError(t, recorder.RecordResult(context.Background(), result("iface", "classic", 12, 4, time.Now())))
	entries, err := recorder.Leaderboard(context.Background(), "classic", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "iface", entries[0].SessionID)
}
