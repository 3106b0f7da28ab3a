// Package service provides the business logic layer for the merge game server.
//
// The service package implements:
//   - Multi-session game management
//   - Move processing, including bulk moves with stop reasons
//   - The stop-on-win policy (ErrWinPending until KeepPlaying)
//   - Hand-off of finished games to a ResultRecorder
//   - Paginated move history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// ResultRecorder stores finished games for leaderboards and progression.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. The engine itself is single-threaded; the service holds a
// mutex around every mutating call so concurrent requests against a session
// are serialised.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithResultRecorder(store))
//
//	info, err := gameService.CreateSession(ctx, "classic", 0)
//	if err != nil {
//		log.Fatal().Err(err).Msg("create session")
//	}
//
//	result, err := gameService.Move(ctx, info.ID, engine.Left, false)
//
// Session End:
//
// A game ends when no move is left, or when a played game is reset. Either
// way the score and highest tile are resolved against the config's reward
// tiers and recorded exactly once.
package service
