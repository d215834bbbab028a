package version

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

var (
	ErrUnknownVersion = errors.New("update bundle not installed")
	ErrVersionActive  = errors.New("update bundle is active")
	ErrVersionExists  = errors.New("update bundle already installed")
)

// State is the persisted record of the active update bundle.
type State struct {
	Active    string    `json:"active"`
	Previous  string    `json:"previous,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager tracks installed update bundles under one root and which of them,
// if any, is active. It is the UpdateSource the versioned-cache resolver
// queries on every dispatch.
type Manager struct {
	mu       sync.RWMutex
	root     string
	state    State
	logger   *zap.Logger
	onChange []func(active string)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
}

// NewManager opens (creating if needed) the update root and loads its state.
func NewManager(root string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(absRoot, paths.VersionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create update root: %w", err)
	}

	m := &Manager{
		root:   absRoot,
		logger: logger.Named("version"),
		stopCh: make(chan struct{}),
	}

	state, err := m.readState()
	if err != nil {
		return nil, err
	}
	m.state = state
	return m, nil
}

// Root returns the update root.
func (m *Manager) Root() string { return m.root }

// Dir returns the directory an installed version lives in.
func (m *Manager) Dir(version string) string {
	return paths.VersionDir(m.root, version)
}

// ActivePath returns the active bundle root, or "" when none is active.
func (m *Manager) ActivePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Active == "" {
		return ""
	}
	return m.Dir(m.state.Active)
}

// Active returns the active version label, or "".
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Active
}

// State returns a copy of the persisted state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnChange registers a callback invoked with the new active version.
func (m *Manager) OnChange(fn func(active string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Installed reports whether version has been extracted under the root.
func (m *Manager) Installed(version string) bool {
	if paths.ValidateVersion(version) != nil {
		return false
	}
	info, err := os.Stat(m.Dir(version))
	return err == nil && info.IsDir()
}

// Activate makes version the active update bundle. The switch is visible to
// the very next ActivePath call.
func (m *Manager) Activate(version string) error {
	if err := paths.ValidateVersion(version); err != nil {
		return fmt.Errorf("invalid version: %w", err)
	}
	if !m.Installed(version) {
		return fmt.Errorf("%s: %w", version, ErrUnknownVersion)
	}
	return m.setActive(version)
}

// Deactivate clears the active update so packaged resources are served.
func (m *Manager) Deactivate() error {
	return m.setActive("")
}

func (m *Manager) setActive(version string) error {
	m.mu.Lock()
	if m.state.Active == version {
		m.mu.Unlock()
		return nil
	}
	next := State{Active: version, Previous: m.state.Active, UpdatedAt: time.Now().UTC()}
	if err := m.writeState(next); err != nil {
		m.mu.Unlock()
		return err
	}
	old := m.state.Active
	m.state = next
	listeners := append([]func(string){}, m.onChange...)
	m.mu.Unlock()

	m.logger.Info("active update changed", zap.String("old", old), zap.String("new", version))
	for _, fn := range listeners {
		fn(version)
	}
	return nil
}

// Versions lists installed versions in lexical order.
func (m *Manager) Versions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, paths.VersionsDir))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && paths.ValidateVersion(e.Name()) == nil {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// Remove deletes an installed version. The active version cannot be removed.
func (m *Manager) Remove(version string) error {
	if err := paths.ValidateVersion(version); err != nil {
		return fmt.Errorf("invalid version: %w", err)
	}
	if m.Active() == version {
		return fmt.Errorf("%s: %w", version, ErrVersionActive)
	}
	if !m.Installed(version) {
		return fmt.Errorf("%s: %w", version, ErrUnknownVersion)
	}
	if err := os.RemoveAll(m.Dir(version)); err != nil {
		return fmt.Errorf("remove %s: %w", version, err)
	}
	m.logger.Info("update bundle removed", zap.String("version", version))
	return nil
}

// Index lists the files of an installed version as sorted slash paths.
func (m *Manager) Index(ctx context.Context, version string) ([]string, error) {
	if !m.Installed(version) {
		return nil, fmt.Errorf("%s: %w", version, ErrUnknownVersion)
	}
	return indexDir(ctx, m.Dir(version))
}

// Verify checks an installed version against its manifest. Bundles without
// a manifest are accepted as-is.
func (m *Manager) Verify(ctx context.Context, version string) error {
	if !m.Installed(version) {
		return fmt.Errorf("%s: %w", version, ErrUnknownVersion)
	}
	manifest, err := ReadManifest(m.Dir(version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return manifest.Verify(ctx, m.Dir(version))
}

func indexDir(ctx context.Context, dir string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		mu.Lock()
		files = append(files, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func (m *Manager) statePath() string {
	return filepath.Join(m.root, paths.StateFile)
}

func (m *Manager) readState() (State, error) {
	data, err := os.ReadFile(m.statePath())
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}

	var state State
	if err := sonic.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parse state: %w", err)
	}
	if state.Active != "" {
		if err := paths.ValidateVersion(state.Active); err != nil {
			return State{}, fmt.Errorf("state names invalid version: %w", err)
		}
	}
	return state, nil
}

// writeState replaces the state file atomically.
func (m *Manager) writeState(state State) error {
	data, err := sonic.ConfigStd.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(m.root, paths.StateFile+".*")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.statePath()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
