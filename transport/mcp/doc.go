// Package mcp exposes the merge game to AI agents over the Model Context
// Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against
// the api package, so the MCP layer holds no game state of its own. Session
// tokens returned by create_session are remembered and sent with later
// calls for that session.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, keep_playing, move_history
//   - list_configs, leaderboard, game_instructions
//
// Boards are rendered as fixed-width text tables so agents can read rows
// and columns without guessing at alignment.
//
// The server returned by GetMCPServer can be served over stdio
// (server.ServeStdio) or mounted on an HTTP endpoint.
package mcp
