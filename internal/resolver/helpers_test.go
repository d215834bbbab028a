package resolver

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that tracks open handles.
type memStore struct {
	mu      sync.Mutex
	files   map[string]string
	failing map[string]bool
	open    int
	lookups []string
}

func newMemStore(files map[string]string) *memStore {
	if files == nil {
		files = map[string]string{}
	}
	return &memStore{files: files, failing: map[string]bool{}}
}

func (m *memStore) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, path)
	_, ok := m.files[path]
	return ok
}

func (m *memStore) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[path] {
		return nil, errors.New("permission denied")
	}
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	m.open++
	return &trackedBody{Reader: strings.NewReader(data), store: m}, nil
}

func (m *memStore) openHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *memStore) consulted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

type trackedBody struct {
	io.Reader
	store  *memStore
	closed bool
}

func (b *trackedBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.store.mu.Lock()
	b.store.open--
	b.store.mu.Unlock()
	return nil
}

func body(t *testing.T, resp *Response) string {
	t.Helper()
	require.NotNil(t, resp)
	require.NotNil(t, resp.Body)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Close())
	return string(data)
}
