// Package websocket pushes live merge game updates to browser clients.
//
// A single Hub goroutine owns the client registry. Connections attach to one
// session (the /ws?sessionId=abc1 query parameter) and receive JSON messages
// whenever that session changes:
//
//	{"session_id":"abc1","event":"state_update","game_state":{...},"changes":[...]}
//
// changes lists the tile moves, merges and spawns of the last request so a
// client can animate the board instead of redrawing it.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
//
//	hub.BroadcastState(sessionID, state, changes)
//
// Clients that fall behind by more than the send buffer are dropped.
// Cancelling the Run context closes every connection.
package websocket
