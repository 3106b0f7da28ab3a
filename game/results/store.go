// Package results stores finished games in SQLite. It is the progression
// hand-off behind the game service: every finished game becomes one row
// together with the reward tiers it earned, and leaderboards are read back
// from the same table.
package results

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/mergegame/game/reward"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

//go:embed sql/*.sql
var migrations embed.FS

const (
	rewardKindTile  = "tile"
	rewardKindSpeed = "speed"
)

// Store implements service.ResultRecorder on a SQLite database
type Store struct {
	db *sql.DB
}

var _ service.ResultRecorder = (*Store)(nil)

// Totals summarises every recorded game of one session
type Totals struct {
	SessionID   string `json:"session_id"`
	Games       int    `json:"games"`
	Wins        int    `json:"wins"`
	BestScore   int    `json:"best_score"`
	BestTile    int    `json:"best_tile"`
	TotalScore  int    `json:"total_score"`
	Gold        int    `json:"gold"`
	Gems        int    `json:"gems"`
	TotalTurns  int    `json:"total_turns"`
	LastOutcome string `json:"last_outcome,omitempty"`
}

// Open opens (and creates if missing) the database at dsn and applies
// pending migrations. ":memory:" gives a private in-memory store.
func Open(dsn string) (*Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func openDB(dsn string) (*sql.DB, error) {
	memory := dsn == ":memory:"
	if !memory {
		// Ensure directory exists for ./data/results.db, etc.
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies the embedded sql/*.sql files in lexical order, recording
// each in _migrations.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", strings.TrimPrefix(f, "sql/")).Msg("applied")
	}
	return nil
}

// RecordResult inserts a finished game and the tiers it earned
func (s *Store) RecordResult(ctx context.Context, r service.GameResult) error {
	if r.SessionID == "" {
		return fmt.Errorf("record result: session id is required")
	}
	finishedAt := r.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO game_results
            (id, session_id, config_name, outcome, score, highest_tile, turns, has_won, seed, elapsed_ms, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.SessionID, r.ConfigName, r.Outcome, r.Score, r.HighestTile, r.Turns,
		r.HasWon, r.Seed, r.Elapsed.Milliseconds(), finishedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	for kind, tier := range map[string]*reward.Tier{rewardKindTile: r.Tier, rewardKindSpeed: r.SpeedTier} {
		if tier == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO game_rewards (result_id, kind, tier, gold, gems, bonus_stat, bonus_amount)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, kind, tier.Name, tier.Gold, tier.Gems, tier.BonusStat, tier.BonusAmount,
		); err != nil {
			return fmt.Errorf("insert reward: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	log.Debug().Str("result", id).Str("session", r.SessionID).Int("score", r.Score).Msg("result recorded")
	return nil
}

// Leaderboard returns the best games by score, optionally for one config.
// Ties go to the higher tile, then to the earlier finish.
func (s *Store) Leaderboard(ctx context.Context, configName string, limit int) ([]service.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.session_id, r.config_name, r.score, r.highest_tile, COALESCE(w.tier, ''), r.finished_at
        FROM game_results r
        LEFT JOIN game_rewards w ON w.result_id = r.id AND w.kind = ?
        WHERE (? = '' OR r.config_name = ?)
        ORDER BY r.score DESC, r.highest_tile DESC, r.finished_at ASC
        LIMIT ?`, rewardKindTile, configName, configName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]service.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e service.LeaderboardEntry
		var finished int64
		if err := rows.Scan(&e.SessionID, &e.ConfigName, &e.Score, &e.HighestTile, &e.Tier, &finished); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Totals aggregates every recorded game of a session
func (s *Store) Totals(ctx context.Context, sessionID string) (*Totals, error) {
	t := &Totals{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(has_won), 0),
               COALESCE(MAX(score), 0),
               COALESCE(MAX(highest_tile), 0),
               COALESCE(SUM(score), 0),
               COALESCE(SUM(turns), 0)
        FROM game_results
        WHERE session_id = ?`, sessionID,
	).Scan(&t.Games, &t.Wins, &t.BestScore, &t.BestTile, &t.TotalScore, &t.TotalTurns)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(w.gold), 0), COALESCE(SUM(w.gems), 0)
        FROM game_rewards w
        JOIN game_results r ON r.id = w.result_id
        WHERE r.session_id = ?`, sessionID,
	).Scan(&t.Gold, &t.Gems)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	if t.Games > 0 {
		err = s.db.QueryRowContext(ctx, `
            SELECT outcome FROM game_results
            WHERE session_id = ?
            ORDER BY finished_at DESC
            LIMIT 1`, sessionID,
		).Scan(&t.LastOutcome)
		if err != nil {
			return nil, fmt.Errorf("totals: %w", err)
		}
	}
	return t, nil
}
