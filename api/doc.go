// Package api provides the HTTP REST API for the merge game server.
//
// Routes are served by a gorilla/mux router behind chi's RequestID, RealIP
// and Recoverer middleware, with a zerolog access log.
//
// Session Management:
//   - POST   /api/sessions              create ({"config_id","seed"}), returns a token when auth is on
//   - GET    /api/sessions              list (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified      several boards at once (?sessionIds=a,b or ?configName=)
//   - GET    /api/sessions/{id}         session info
//   - DELETE /api/sessions/{id}         delete
//
// Game Operations:
//   - GET  /api/sessions/{id}/state     current game state
//   - POST /api/sessions/{id}/move      {"direction":"up|down|left|right|w|a|s|d","reset":false}
//   - POST /api/sessions/{id}/bulk-move {"moves":["up","left"],"reset":false}
//   - POST /api/sessions/{id}/reset     start a new game in the session
//   - POST /api/sessions/{id}/continue  keep playing after a stop_on_win victory
//   - GET  /api/sessions/{id}/history   paginated move history (?page&limit&order)
//   - GET  /api/sessions/{id}/results   recorded totals, when a result store is wired
//
// Configuration:
//   - GET  /api/configs, GET /api/configs/{name}, POST /api/configs
//
// Other:
//   - GET /api/leaderboard?config=&limit=
//   - GET /api/health
//   - GET /ws?session={id}               live state_update pushes
//
// Errors are returned as {"error": "..."}. An unparseable direction is 400,
// an unknown session 404 and a move on a won game awaiting continue 409.
//
// When a TokenIssuer is configured, DELETE and every POST under
// /api/sessions/{id} require "Authorization: Bearer <token>" with the token
// returned by session creation.
package api
