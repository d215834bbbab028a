package version

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

// Reload re-reads the state file, picking up switches made by another
// process (for example an updater service sharing the update root).
func (m *Manager) Reload() error {
	m.mu.Lock()
	next, err := m.readState()
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("state reload failed, keeping old state", zap.Error(err))
		return fmt.Errorf("reload state: %w", err)
	}
	old := m.state.Active
	m.state = next
	listeners := append([]func(string){}, m.onChange...)
	m.mu.Unlock()

	if old == next.Active {
		return nil
	}

	m.logger.Info("active update changed on disk", zap.String("old", old), zap.String("new", next.Active))
	for _, fn := range listeners {
		fn(next.Active)
	}
	return nil
}

// Watch starts watching the state file for changes made outside this
// manager. Changes trigger Reload.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: state writes are atomic renames.
	if err := watcher.Add(m.root); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	go m.watchLoop(watcher)

	m.logger.Info("watching update state", zap.String("path", m.statePath()))
	return nil
}

// Stop stops watching for state changes.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.watcher != nil {
			m.watcher.Close()
		}
	})
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != paths.StateFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.logger.Debug("state file changed", zap.String("event", event.Op.String()))
				_ = m.Reload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("state watcher error", zap.Error(err))

		case <-m.stopCh:
			return
		}
	}
}
