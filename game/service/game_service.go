package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

var (
	// ErrWinPending is returned for moves on a stop_on_win game that has
	// been won and not yet continued with KeepPlaying.
	ErrWinPending = errors.New("game won, continue or reset before moving")
	// ErrNotWon is returned by KeepPlaying when there is no win to acknowledge
	ErrNotWon = errors.New("game has not been won")
	// ErrSessionNotFound wraps lookup failures of the session manager
	ErrSessionNotFound = errors.New("session not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed int64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ExpireSessions(ctx context.Context, maxAge time.Duration) int

	// Game Operations
	Move(ctx context.Context, sessionID string, dir engine.Direction, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []engine.Direction, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	KeepPlaying(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Results
	Leaderboard(ctx context.Context, configName string, limit int) ([]LeaderboardEntry, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	DeleteFromMemory(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ResultRecorder receives finished games. Implementations persist the
// score and highest tile for progression and leaderboards.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result GameResult) error
	Leaderboard(ctx context.Context, configName string, limit int) ([]LeaderboardEntry, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
	// GameStartedAt is reset together with the engine
	GameStartedAt time.Time
}
