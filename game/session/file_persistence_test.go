package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

func TestFilePersistence(t *testing.T) {
	// Create temporary directory for test sessions
	tempDir, err := os.MkdirTemp("", "session_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Create config manager
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	// Create persistence layer
	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	// Create test session
	gameConfig := configManager.GetDefault()
	eng, err := engine.NewEngine(gameConfig, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	session := &service.Session{
		ID:             "test1",
		Engine:         eng,
		Config:         gameConfig,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
		GameStartedAt:  time.Now().Add(-time.Minute),
	}

	t.Run("Save and Load Session", func(t *testing.T) {
		// Save session
		err := persistence.Save(session)
		if err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		// Check file exists
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		// Load session
		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		// Verify session data
		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
		if loadedSession.Config.Name != session.Config.Name {
			t.Errorf("Expected config name %s, got %s", session.Config.Name, loadedSession.Config.Name)
		}
		if loadedSession.Engine.GetState().Seed != session.Engine.GetState().Seed {
			t.Errorf("Expected seed %d, got %d", session.Engine.GetState().Seed, loadedSession.Engine.GetState().Seed)
		}
		if !loadedSession.GameStartedAt.Equal(session.GameStartedAt) {
			t.Errorf("Expected game start %v, got %v", session.GameStartedAt, loadedSession.GameStartedAt)
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		// Make a move to change state
		success := false
		for _, dir := range engine.Directions {
			if session.Engine.Move(dir).Changed {
				success = true
				break
			}
		}
		if !success {
			t.Skip("Cannot test state persistence without successful move")
		}

		// Save updated session
		err := persistence.Save(session)
		if err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		// Load and verify state was persisted
		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		if loadedSession.Engine.GetScore() != session.Engine.GetScore() {
			t.Errorf("Score not persisted correctly")
		}
		if loadedSession.Engine.GetState().Turns != session.Engine.GetState().Turns {
			t.Errorf("Turns not persisted correctly")
		}
		if len(loadedSession.Engine.GetMoveHistory()) != len(session.Engine.GetMoveHistory()) {
			t.Errorf("Move history not persisted correctly")
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		// Create another session
		session2 := &service.Session{
			ID:             "test2",
			Engine:         eng,
			Config:         gameConfig,
			CreatedAt:      time.Now(),
			LastAccessedAt: time.Now(),
		}
		err := persistence.Save(session2)
		if err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}

		// List all sessions
		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		if len(sessionIDs) < 2 {
			t.Errorf("Expected at least 2 sessions, got %d", len(sessionIDs))
		}

		// Check that our sessions are in the list
		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if !found["test1"] || !found["test2"] {
			t.Error("Expected sessions not found in list")
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		// Delete session
		err := persistence.Delete("test2")
		if err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}

		// Verify it no longer exists
		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}

		// Verify we can't load it
		_, err = persistence.Load("test2")
		if err == nil {
			t.Error("Should not be able to load deleted session")
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		// Try to load non-existent session
		_, err := persistence.Load("nonexistent")
		if err == nil {
			t.Error("Should get error when loading non-existent session")
		}

		// Try to delete non-existent session
		err = persistence.Delete("nonexistent")
		if err == nil {
			t.Error("Should get error when deleting non-existent session")
		}

		// Try to save nil session
		err = persistence.Save(nil)
		if err == nil {
			t.Error("Should get error when saving nil session")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	// Create temporary directory
	tempDir, err := os.MkdirTemp("", "session_file_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	// Create and save session
	gameConfig := configManager.GetDefault()
	eng, err := engine.NewEngine(gameConfig, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	session := &service.Session{
		ID:             "file_test",
		Engine:         eng,
		Config:         gameConfig,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	err = persistence.Save(session)
	if err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// Check file exists in correct location
	expectedFile := filepath.Join(tempDir, "file_test.json")
	if _, err := os.Stat(expectedFile); os.IsNotExist(err) {
		t.Errorf("Expected file %s does not exist", expectedFile)
	}

	// Check file contains valid JSON
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}

	if len(data) == 0 {
		t.Error("Session file should not be empty")
	}

	// Check it contains expected fields (basic validation)
	content := string(data)
	expectedFields := []string{"\"id\"", "\"config_name\"", "\"created_at\"", "\"game_started_at\"", "\"game_state\"", "\"classic\""}
	for _, field := range expectedFields {
		if !containsString(content, field) {
			t.Errorf("Session file should contain field %s", field)
		}
	}
}

func containsString(str, substr string) bool {
	return strings.Contains(str, substr)
}

func TestFilePersistenceRestoreContinuesIdentically(t *testing.T) {
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	persistence, err := NewFilePersistence(t.TempDir(), configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	seeded := *configManager.GetDefault()
	seeded.Seed = 99
	eng, err := engine.NewEngine(&seeded, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		eng.Move(engine.Directions[i%4])
	}

	original := &service.Session{ID: "replay", Engine: eng, Config: &seeded, CreatedAt: time.Now(), LastAccessedAt: time.Now()}
	if err := persistence.Save(original); err != nil {
		t.Fatal(err)
	}
	restored, err := persistence.Load("replay")
	if err != nil {
		t.Fatal(err)
	}

	// the original keeps playing without a reload
	for i := 0; i < 10; i++ {
		dir := engine.Directions[(i*3)%4]
		a := eng.Move(dir)
		b := restored.Engine.Move(dir)
		if a.Changed != b.Changed || a.ScoreDelta != b.ScoreDelta {
			t.Fatalf("Move %d diverged: %+v vs %+v", i, a, b)
		}
		if (a.Spawned == nil) != (b.Spawned == nil) {
			t.Fatalf("Move %d spawn diverged", i)
		}
		if a.Spawned != nil && (a.Spawned.Value != b.Spawned.Value || a.Spawned.Pos() != b.Spawned.Pos()) {
			t.Fatalf("Move %d spawned %+v vs %+v", i, *a.Spawned, *b.Spawned)
		}
	}
}

func TestFilePersistenceRejectsUnknownConfig(t *testing.T) {
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir, configManager)
	if err != nil {
		t.Fatal(err)
	}

	raw := `{"id":"ghost","config_name":"no-such-board","game_state":{"grid":{"size":4,"tiles":[],"next_id":1}}}`
	if err := os.WriteFile(filepath.Join(dir, "ghost.json"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := persistence.Load("ghost"); err == nil {
		t.Error("Expected error for session with unknown config")
	}
}
