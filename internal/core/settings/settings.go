// Package settings loads the tracker agent's local user settings and keeps
// them fresh when the settings file changes on disk.
package settings

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/util"
)

// Manager holds the current settings and hot-reloads them on file change.
type Manager struct {
	mu       sync.RWMutex
	path     string
	settings model.UserSettings
}

// NewManager loads settings from path. A missing file yields defaults.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, settings: model.DefaultSettings()}
	if err := m.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		util.LogInfof("no settings file at %s, using defaults", path)
	}
	return m, nil
}

// Current returns a copy of the active settings.
func (m *Manager) Current() model.UserSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// BlockedDomains returns the active block list; handed to the tracker so
// commits always see the latest settings.
func (m *Manager) BlockedDomains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.settings.BlockedDomains))
	copy(out, m.settings.BlockedDomains)
	return out
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var loaded model.UserSettings
	if err := sonic.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode settings file %s: %w", m.path, err)
	}

	m.mu.Lock()
	m.settings = loaded
	m.mu.Unlock()
	return nil
}

// Watch reloads settings whenever the file is rewritten, until ctx is
// cancelled. Reload errors keep the previous settings in effect.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.path); err != nil {
		return fmt.Errorf("watch settings file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := m.reload(); err != nil {
					util.LogWarnf("settings reload failed, keeping previous: %v", err)
				} else {
					util.LogInfo("settings reloaded")
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.LogErrorf("settings watch error: %v", err)
		}
	}
}
