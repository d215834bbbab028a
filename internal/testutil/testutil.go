// Package testutil provides testing utilities and helpers for shell tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHistory is a mock implementation of the web-view back stack.
type MockHistory struct {
	mock.Mock
}

// CanGoBack mocks the CanGoBack method.
func (m *MockHistory) CanGoBack() bool {
	args := m.Called()
	return args.Bool(0)
}

// GoBack mocks the GoBack method.
func (m *MockHistory) GoBack() {
	m.Called()
}

// MockBackHandler is a mock implementation of an external back handler.
type MockBackHandler struct {
	mock.Mock
}

// CanGoBack mocks the CanGoBack method.
func (m *MockBackHandler) CanGoBack() bool {
	args := m.Called()
	return args.Bool(0)
}

// GoBack mocks the GoBack method.
func (m *MockBackHandler) GoBack() {
	m.Called()
}

// StaticLifecycle reports a fixed binding state.
type StaticLifecycle bool

// Bound returns the fixed state.
func (s StaticLifecycle) Bound() bool { return bool(s) }

// WriteFiles creates files under root from a relative path to content map.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
