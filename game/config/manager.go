package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigName is preferred as the default when present
const DefaultConfigName = "classic"

// Extensions lists the accepted config file extensions in lookup order
var Extensions = []string{".yaml", ".yml", ".json"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex

	// OnReload is called after the watcher refreshed the cache
	OnReload func()
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDefaultConfigLocked()

	return m, nil
}

// Dir returns the watched configuration directory
func (m *Manager) Dir() string {
	return m.configDir
}

// ConfigID strips a supported extension from a file name
func ConfigID(filename string) string {
	ext := filepath.Ext(filename)
	if isConfigExt(ext) {
		return strings.TrimSuffix(filename, ext)
	}
	return filename
}

func isConfigExt(ext string) bool {
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Decode parses a config document, fills defaults and validates it. JSON is
// used for .json files and YAML for everything else.
func Decode(data []byte, ext string) (*engine.GameConfig, error) {
	var config engine.GameConfig
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.ApplyDefaults()
	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// LoadConfig loads a configuration by id (file name with or without extension)
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	m.mu.RLock()
	if config, exists := m.configs[ConfigID(name)]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*engine.GameConfig, error) {
	id := ConfigID(name)

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	m.configs[id] = config
	return config, nil
}

// findFile resolves a config id to a file on disk
func (m *Manager) findFile(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || name == "" || strings.HasPrefix(name, ".") {
		return "", ErrConfigNotFound
	}
	candidates := []string{name}
	if !isConfigExt(filepath.Ext(name)) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		path := filepath.Join(m.configDir, c)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isConfigExt(filepath.Ext(entry.Name())) {
			continue
		}
		id := ConfigID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(id)
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("skipping invalid config")
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:     entry.Name(),
			ConfigID:     id, // This is the identifier to use for session creation
			Name:         config.Name,
			Description:  config.Description,
			GridSize:     config.GridSize,
			WinThreshold: config.WinThreshold,
			StopOnWin:    config.StopOnWin,
		})
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// Count returns the number of cached configurations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration and reselects the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs = make(map[string]*engine.GameConfig)
	m.loadDefaultConfigLocked()
	return nil
}

// loadDefaultConfigLocked picks classic, then the first valid file, then the
// built-in classic board.
func (m *Manager) loadDefaultConfigLocked() {
	if config, err := m.loadLocked(DefaultConfigName); err == nil {
		m.defaultConfig = config
		return
	}

	entries, err := os.ReadDir(m.configDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !isConfigExt(filepath.Ext(entry.Name())) {
				continue
			}
			if config, err := m.loadLocked(entry.Name()); err == nil {
				m.defaultConfig = config
				return
			}
		}
	}

	m.defaultConfig = engine.DefaultGameConfig()
}

// SaveConfig validates a configuration and writes it as YAML
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := ConfigID(name)
	if strings.ContainsAny(id, `/\`) || id == "" || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+".yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// Watch reloads the cache whenever a config file in the directory changes.
// It blocks until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("watch %s: %w", m.configDir, err)
	}
	log.Info().Str("dir", m.configDir).Msg("watching game configs")

	// Editors emit bursts of events per save
	const debounce = 200 * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigExt(filepath.Ext(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("config changed")
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-timer.C:
			_ = m.RefreshCache()
			log.Info().Str("default", m.GetDefault().Name).Msg("game configs reloaded")
			if m.OnReload != nil {
				m.OnReload()
			}
		}
	}
}
