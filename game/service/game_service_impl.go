package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/reward"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	results  ResultRecorder
	now      func() time.Time
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithResultRecorder hands finished games to r
func WithResultRecorder(r ResultRecorder) Option {
	return func(s *gameServiceImpl) {
		s.results = r
	}
}

// WithClock replaces time.Now, used for elapsed-time rewards
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		s.now = now
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:               sess.ID,
		ConfigName:       s.getConfigID(sess.Config.Name),
		CreatedAt:        sess.CreatedAt,
		LastAccessedAt:   sess.LastAccessedAt,
		AwaitingContinue: sess.Engine.AwaitingContinue(),
		GameState:        sess.Engine.GetState().Clone(),
		GameConfig:       sess.Config,
	}
}

func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.Debug().Err(err).Str("session", sessionID).Msg("failed to update last access")
	}
}

func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Str("after", after).Msg("failed to persist session")
	}
}

// CreateSession creates a new game session. A non-zero seed makes the game reproducible.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, seed int64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				var configIDs []string
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("failed to load config %q (available: %v): %w", configName, configIDs, err)
			}
			return nil, fmt.Errorf("failed to load config %q: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	if seed != 0 {
		seeded := *config
		seeded.Seed = seed
		config = &seeded
	}

	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if session.GameStartedAt.IsZero() {
		session.GameStartedAt = session.CreatedAt
	}

	info := s.sessionInfo(session)
	if configName != "" {
		info.ConfigName = configName
	}
	log.Info().Str("session", session.ID).Str("config", info.ConfigName).Int64("seed", session.Engine.GetState().Seed).Msg("session created")
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}

	s.touch(sessionID)
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session. A played game that was never recorded is
// recorded as abandoned first.
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, err := s.sessions.Get(sessionID); err == nil {
		s.finishUnrecorded(ctx, sess)
	}
	return s.sessions.Delete(sessionID)
}

// ExpireSessions drops sessions idle for longer than maxAge from memory and
// returns how many it dropped. Their files stay on disk. Played games that
// were never recorded are recorded as abandoned and saved before they go.
func (s *gameServiceImpl) ExpireSessions(ctx context.Context, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, sess := range s.sessions.List() {
		if !sess.LastAccessedAt.Before(cutoff) {
			continue
		}
		if s.finishUnrecorded(ctx, sess) {
			s.persist(sess.ID, "expiry")
		}
		if err := s.sessions.DeleteFromMemory(sess.ID); err != nil {
			log.Debug().Err(err).Str("session", sess.ID).Msg("failed to expire session")
			continue
		}
		removed++
	}
	return removed
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, dir engine.Direction, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}
	s.touch(sessionID)

	events := []GameEvent{}
	if reset {
		s.resetLocked(ctx, sess)
		events = append(events, s.resetEvent())
	}

	if sess.Engine.AwaitingContinue() {
		if reset {
			s.persist(sessionID, "reset")
		}
		return nil, ErrWinPending
	}

	res := sess.Engine.Move(dir)
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success: res.Changed,
		Message: state.Message,
		Events:  append(events, s.moveEvents(res, state)...),
		Step:    stepInfo(1, res, state),
		Changes: res.Changes,
	}
	if res.OverNow {
		result.Reward = s.finishLocked(ctx, sess)
	}
	result.GameState = state.Clone()

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence. It stops at the first move
// that does not change the grid, when the game ends, or when a win pauses play.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []engine.Direction, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}
	s.touch(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		s.resetLocked(ctx, sess)
		result.Events = append(result.Events, s.resetEvent())
	}

	if sess.Engine.AwaitingContinue() {
		if reset {
			s.persist(sessionID, "reset")
		}
		return nil, ErrWinPending
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	start := sess.Engine.GetState()
	startGrid := start.Grid
	result.StartScore = start.Score

	for i, dir := range moves {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StopReasonCode = "cancelled"
			result.StoppedReason = err.Error()
			result.StoppedOnMove = i + 1
			break
		}
		if sess.Engine.IsGameOver() {
			result.StopReasonCode = "game_over"
			result.StoppedReason = "game over"
			result.StoppedOnMove = i + 1
			break
		}
		if sess.Engine.AwaitingContinue() {
			result.StopReasonCode = "win_pending"
			result.StoppedReason = "game won, continue to keep moving"
			result.StoppedOnMove = i + 1
			break
		}

		res := sess.Engine.Move(dir)
		state := sess.Engine.GetState()
		result.Steps = append(result.Steps, *stepInfo(i+1, res, state))

		if !res.Changed {
			result.Success = false
			result.StopReasonCode = "no_change"
			result.StoppedReason = fmt.Sprintf("move %d (%s) did not change the grid", i+1, dir)
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		result.Events = append(result.Events, s.moveEvents(res, state)...)
		if res.OverNow {
			result.Reward = s.finishLocked(ctx, sess)
		}
	}

	end := sess.Engine.GetState()
	result.GameState = end.Clone()
	result.EndScore = end.Score
	result.ScoreDelta = end.Score - result.StartScore
	result.Changes = engine.DiffGrids(startGrid, end.Grid)
	result.GameOver = end.IsOver
	result.HasWon = end.HasWon
	result.Message = end.Message
	result.PossibleMoves = sess.Engine.GetPossibleMoves()
	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = "game_over"
	}
	if result.StopReasonCode == "" && sess.Engine.AwaitingContinue() {
		result.StopReasonCode = "win_pending"
	}

	s.persist(sessionID, "bulk move")
	return result, nil
}

// Reset starts a new game in the session. A played, unrecorded game is
// handed to the result recorder first.
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}

	s.touch(sessionID)
	state := s.resetLocked(ctx, sess)
	s.persist(sessionID, "reset")
	return state.Clone(), nil
}

func (s *gameServiceImpl) resetLocked(ctx context.Context, sess *Session) *engine.GameState {
	s.finishUnrecorded(ctx, sess)
	state := sess.Engine.Reset()
	sess.GameStartedAt = s.now()
	return state
}

func (s *gameServiceImpl) resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to a new board",
		Timestamp: s.now(),
	}
}

// KeepPlaying acknowledges a win so a stop_on_win game accepts moves again
func (s *gameServiceImpl) KeepPlaying(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}
	s.touch(sessionID)

	if !sess.Engine.KeepPlaying() {
		return nil, ErrNotWon
	}
	s.persist(sessionID, "keep playing")
	return sess.Engine.GetState().Clone(), nil
}

// finishUnrecorded records the current game when it was played and has not
// been recorded yet. It reports whether it tried.
func (s *gameServiceImpl) finishUnrecorded(ctx context.Context, sess *Session) bool {
	if state := sess.Engine.GetState(); state.Turns == 0 || state.Recorded {
		return false
	}
	s.finishLocked(ctx, sess)
	return true
}

// finishLocked resolves the reward tier of the current game and hands the
// result to the recorder. Each game is recorded at most once; a failed
// hand-off is retried on the next reset.
func (s *gameServiceImpl) finishLocked(ctx context.Context, sess *Session) *reward.Tier {
	state := sess.Engine.GetState()

	table, err := reward.FromConfig(sess.Config.RewardTiers)
	if err != nil {
		log.Warn().Err(err).Str("config", sess.Config.Name).Msg("invalid reward tiers, using defaults")
		table = reward.DefaultTable()
	}
	var tier *reward.Tier
	if t, ok := table.Resolve(state.HighestTile); ok {
		tier = &t
	}

	finishedAt := s.now()
	elapsed := finishedAt.Sub(sess.GameStartedAt)
	var speed *reward.Tier
	if state.HasWon && len(sess.Config.TimeTiers) > 0 {
		if tt, err := reward.TimeTableFromConfig(sess.Config.TimeTiers); err == nil {
			if t, ok := tt.ResolveElapsed(elapsed); ok {
				speed = &t
			}
		}
	}

	if state.Recorded {
		return tier
	}

	outcome := OutcomeAbandoned
	if state.IsOver {
		outcome = OutcomeGameOver
	}

	if s.results != nil {
		err := s.results.RecordResult(ctx, GameResult{
			SessionID:   sess.ID,
			ConfigName:  s.getConfigID(sess.Config.Name),
			Outcome:     outcome,
			Score:       state.Score,
			HighestTile: state.HighestTile,
			Turns:       state.Turns,
			HasWon:      state.HasWon,
			Seed:        state.Seed,
			Elapsed:     elapsed,
			Tier:        tier,
			SpeedTier:   speed,
			FinishedAt:  finishedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("failed to record game result")
			return tier
		}
	}

	state.Recorded = true
	log.Info().
		Str("session", sess.ID).
		Str("outcome", outcome).
		Int("score", state.Score).
		Int("highest_tile", state.HighestTile).
		Msg("game finished")
	return tier
}

func (s *gameServiceImpl) moveEvents(res engine.MoveResult, state *engine.GameState) []GameEvent {
	now := s.now()
	if !res.Changed {
		return []GameEvent{{
			Type:      "no_change",
			Message:   fmt.Sprintf("Moving %s changed nothing", res.Direction),
			Timestamp: now,
		}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Slid %s", res.Direction),
		Timestamp: now,
		Value:     res.ScoreDelta,
	}}
	for _, m := range res.Merges {
		at := m.At
		events = append(events, GameEvent{
			Type:      "merge",
			Message:   fmt.Sprintf("Merged into %d", m.Value),
			Timestamp: now,
			Value:     m.Value,
			Position:  &at,
		})
	}
	if res.Spawned != nil {
		at := res.Spawned.Pos()
		events = append(events, GameEvent{
			Type:      "spawn",
			Message:   fmt.Sprintf("New %d tile", res.Spawned.Value),
			Timestamp: now,
			Value:     res.Spawned.Value,
			Position:  &at,
		})
	}
	if res.WonNow {
		events = append(events, GameEvent{
			Type:      "win",
			Message:   state.Message,
			Timestamp: now,
			Value:     state.HighestTile,
		})
	}
	if res.OverNow {
		events = append(events, GameEvent{
			Type:      "game_over",
			Message:   state.Message,
			Timestamp: now,
			Value:     state.Score,
		})
	}
	return events
}

func stepInfo(idx int, res engine.MoveResult, state *engine.GameState) *StepInfo {
	return &StepInfo{
		Idx:          idx,
		Dir:          res.Direction,
		Success:      res.Changed,
		ScoreDelta:   res.ScoreDelta,
		Merges:       len(res.Merges),
		Spawned:      res.Spawned,
		ScoreAfter:   state.Score,
		HighestAfter: state.HighestTile,
		Won:          res.WonNow,
		Over:         res.OverNow,
	}
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}

	s.touch(sessionID)
	return sess.Engine.GetState().Clone(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSessionNotFound, sessionID, err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and saves a game configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", engine.ErrInvalidConfiguration)
	}
	config.ApplyDefaults()
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}
	return s.configs.SaveConfig(configName, config)
}

// Leaderboard returns the best recorded games, optionally for one config
func (s *gameServiceImpl) Leaderboard(ctx context.Context, configName string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if s.results == nil {
		return []LeaderboardEntry{}, nil
	}
	entries, err := s.results.Leaderboard(ctx, configName, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}
