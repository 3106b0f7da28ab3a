package service

import (
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/reward"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID               string             `json:"id"`
	ConfigName       string             `json:"config_name"`
	CreatedAt        time.Time          `json:"created_at"`
	LastAccessedAt   time.Time          `json:"last_accessed_at"`
	AwaitingContinue bool               `json:"awaiting_continue"`
	GameState        *engine.GameState  `json:"game_state"`
	GameConfig       *engine.GameConfig `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool                `json:"success"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
	Step      *StepInfo           `json:"step,omitempty"`
	Changes   []engine.TileChange `json:"changes,omitempty"`
	Reward    *reward.Tier        `json:"reward,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // no_change|game_over|win_pending|cancelled
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartScore int `json:"start_score"`
	EndScore   int `json:"end_score"`
	ScoreDelta int `json:"score_delta"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Changes between the grid before the first move and after the last one
	Changes []engine.TileChange `json:"changes,omitempty"`

	// Final status aids
	GameOver      bool               `json:"game_over"`
	HasWon        bool               `json:"has_won"`
	Message       string             `json:"message,omitempty"`
	PossibleMoves []engine.Direction `json:"possible_moves,omitempty"`
	Reward        *reward.Tier       `json:"reward,omitempty"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx          int              `json:"idx"`
	Dir          engine.Direction `json:"dir"`
	Success      bool             `json:"success"`
	ScoreDelta   int              `json:"score_delta"`
	Merges       int              `json:"merges"`
	Spawned      *engine.Tile     `json:"spawned,omitempty"`
	ScoreAfter   int              `json:"score_after"`
	HighestAfter int              `json:"highest_after"`
	Won          bool             `json:"won,omitempty"`
	Over         bool             `json:"over,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "move", "no_change", "merge", "spawn", "win", "game_over", "reset"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Value     int              `json:"value,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	GridSize     int    `json:"grid_size"`
	WinThreshold int    `json:"win_threshold"`
	StopOnWin    bool   `json:"stop_on_win"`
}

// Outcome values for GameResult
const (
	OutcomeGameOver  = "game_over"
	OutcomeAbandoned = "abandoned"
)

// GameResult is handed to the ResultRecorder once per finished game
type GameResult struct {
	SessionID   string        `json:"session_id"`
	ConfigName  string        `json:"config_name"`
	Outcome     string        `json:"outcome"`
	Score       int           `json:"score"`
	HighestTile int           `json:"highest_tile"`
	Turns       int           `json:"turns"`
	HasWon      bool          `json:"has_won"`
	Seed        int64         `json:"seed"`
	Elapsed     time.Duration `json:"elapsed"`
	Tier        *reward.Tier  `json:"tier,omitempty"`
	SpeedTier   *reward.Tier  `json:"speed_tier,omitempty"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// LeaderboardEntry is one ranked finished game
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	SessionID   string    `json:"session_id"`
	ConfigName  string    `json:"config_name"`
	Score       int       `json:"score"`
	HighestTile int       `json:"highest_tile"`
	Tier        string    `json:"tier,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}
