// Package session keeps merge game sessions in memory and, optionally, on disk.
//
// Manager is the thread-safe registry used by the service layer. Each
// session owns its own engine instance together with creation, last-access
// and game-start timestamps. IDs are 4 hex characters when generated and
// are matched case-insensitively.
//
// With a SessionPersistence attached, sessions are written on creation and
// on every access, and sessions missing from memory are loaded on demand.
// FilePersistence stores one JSON file per session; restoring a file rebuilds
// the engine from the named config and hands it the stored state. Spawns
// derive from the stored seed and turn count, so a restored game continues
// exactly like the original would have.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", config)
//	sess, err = manager.Get(sess.ID)
//
// DeleteFromMemory drops a session from memory only; its file stays on disk
// and is reloaded on the next Get. The service uses it to expire idle
// sessions.
package session
