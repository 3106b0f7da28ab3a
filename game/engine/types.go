package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Direction is one of the four slide directions
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

const (
	// Validation constants
	MinGridSize         = 2
	MaxGridSize         = 8
	DefaultGridSize     = 4
	DefaultWinThreshold = 2048
	DefaultStartTiles   = 2
	DefaultFourChance   = 0.1
	MaxBulkMoves        = 50
	WebSocketBufferSize = 256
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidDirection     = errors.New("invalid direction")
)

// Directions lists every direction in evaluation order
var Directions = []Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection converts user input into a Direction.
// Accepts full names and WASD keys.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w":
		return Up, nil
	case "down", "s":
		return Down, nil
	case "left", "a":
		return Left, nil
	case "right", "d":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TileID identifies a tile for the lifetime of a grid. IDs are issued by the
// grid's counter and never reused.
type TileID uint64

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Tile is a positioned value on the grid
type Tile struct {
	ID    TileID `json:"id"`
	Value int    `json:"value"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

// Pos returns the tile's position
func (t Tile) Pos() Position {
	return Position{Row: t.Row, Col: t.Col}
}

// Merge records one pairwise merge produced by a slide
type Merge struct {
	Into     TileID   `json:"into"`
	Absorbed TileID   `json:"absorbed"`
	Value    int      `json:"value"`
	At       Position `json:"at"`
}

// MoveOutcome is the pure result of sliding a grid in one direction
type MoveOutcome struct {
	Grid       *Grid   `json:"grid"`
	ScoreDelta int     `json:"score_delta"`
	Changed    bool    `json:"changed"`
	Merges     []Merge `json:"merges,omitempty"`
}

// ChangeKind classifies a tile difference between two snapshots
type ChangeKind string

const (
	ChangeMoved    ChangeKind = "moved"
	ChangeMerged   ChangeKind = "merged"
	ChangeSpawned  ChangeKind = "spawned"
	ChangeAbsorbed ChangeKind = "absorbed"
)

// TileChange describes what happened to one tile between two snapshots
type TileChange struct {
	ID    TileID     `json:"id"`
	Kind  ChangeKind `json:"kind"`
	From  *Position  `json:"from,omitempty"`
	To    *Position  `json:"to,omitempty"`
	Value int        `json:"value"`
}

// Messages holds the templates used for GameState.Message
type Messages struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	Moved       string `json:"moved" yaml:"moved"`
	Merged      string `json:"merged" yaml:"merged"`
	NoChange    string `json:"no_change" yaml:"no_change"`
	Victory     string `json:"victory" yaml:"victory"`
	KeepPlaying string `json:"keep_playing" yaml:"keep_playing"`
	GameOver    string `json:"game_over" yaml:"game_over"`
}

// RewardTier is the config-file representation of a reward tier
type RewardTier struct {
	Name        string `json:"name" yaml:"name"`
	MinTile     int    `json:"min_tile" yaml:"min_tile"`
	Gold        int    `json:"gold" yaml:"gold"`
	Gems        int    `json:"gems" yaml:"gems"`
	BonusStat   string `json:"bonus_stat,omitempty" yaml:"bonus_stat,omitempty"`
	BonusAmount int    `json:"bonus_amount,omitempty" yaml:"bonus_amount,omitempty"`
}

// TimeRewardTier grants a bonus for finishing a game within MaxSeconds
type TimeRewardTier struct {
	Name        string `json:"name" yaml:"name"`
	MaxSeconds  int    `json:"max_seconds" yaml:"max_seconds"`
	Gold        int    `json:"gold" yaml:"gold"`
	Gems        int    `json:"gems" yaml:"gems"`
	BonusStat   string `json:"bonus_stat,omitempty" yaml:"bonus_stat,omitempty"`
	BonusAmount int    `json:"bonus_amount,omitempty" yaml:"bonus_amount,omitempty"`
}

// GameConfig represents a game configuration file
type GameConfig struct {
	Name            string           `json:"name" yaml:"name"`
	Description     string           `json:"description" yaml:"description"`
	GridSize        int              `json:"grid_size" yaml:"grid_size"`
	WinThreshold    int              `json:"win_threshold" yaml:"win_threshold"`
	StartTiles      int              `json:"start_tiles" yaml:"start_tiles"`
	FourProbability float64          `json:"four_probability" yaml:"four_probability"`
	StopOnWin       bool             `json:"stop_on_win" yaml:"stop_on_win"`
	Seed            int64            `json:"seed,omitempty" yaml:"seed,omitempty"`
	RewardTiers     []RewardTier     `json:"reward_tiers,omitempty" yaml:"reward_tiers,omitempty"`
	TimeTiers       []TimeRewardTier `json:"time_tiers,omitempty" yaml:"time_tiers,omitempty"`
	Messages        Messages         `json:"messages" yaml:"messages"`
}

// GameState represents the complete game session state
type GameState struct {
	Grid        *Grid  `json:"grid"`
	Score       int    `json:"score"`
	HighestTile int    `json:"highest_tile"`
	HasWon      bool   `json:"has_won"`
	KeepPlaying bool   `json:"keep_playing"`
	IsOver      bool   `json:"is_over"`
	Message     string `json:"message"`
	ConfigName  string `json:"config_name"`
	Seed        int64  `json:"seed"`

	// Turns counts accepted moves of the current game only.
	Turns int `json:"turns"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	// Recorded is set once the finished game has been handed to the result recorder
	Recorded bool `json:"recorded,omitempty"`

	// Computed helper view (not required for core game logic)
	Board []string `json:"board,omitempty"`
}

// Clone returns a copy that shares nothing mutable with gs. History entries
// are copied by value; their spawned tiles are never modified after a move.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Grid = gs.Grid.Clone()
	c.MoveHistory = slices.Clone(gs.MoveHistory)
	c.CurrentMoves = slices.Clone(gs.CurrentMoves)
	c.Board = slices.Clone(gs.Board)
	return &c
}

// MoveHistoryEntry represents a single move attempt in the game history
type MoveHistoryEntry struct {
	Action      string `json:"action"`
	ScoreDelta  int    `json:"score_delta"`
	Score       int    `json:"score"`
	HighestTile int    `json:"highest_tile"`
	Merges      int    `json:"merges"`
	Spawned     *Tile  `json:"spawned,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Success     bool   `json:"success"`
	MoveNumber  int    `json:"move_number"`
}

// MoveResult is what the engine reports for one move request
type MoveResult struct {
	Direction  Direction    `json:"direction"`
	Changed    bool         `json:"changed"`
	ScoreDelta int          `json:"score_delta"`
	Merges     []Merge      `json:"merges,omitempty"`
	Spawned    *Tile        `json:"spawned,omitempty"`
	Changes    []TileChange `json:"changes,omitempty"`
	WonNow     bool         `json:"won_now,omitempty"`
	OverNow    bool         `json:"over_now,omitempty"`
}
