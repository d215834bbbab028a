package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadPicksUpExternalSwitch(t *testing.T) {
	writer := newManager(t, "v7")
	reader, err := NewManager(writer.Root(), nil)
	require.NoError(t, err)

	var notified string
	reader.OnChange(func(active string) { notified = active })

	require.NoError(t, writer.Activate("v7"))
	assert.Empty(t, reader.Active())

	require.NoError(t, reader.Reload())
	assert.Equal(t, "v7", reader.Active())
	assert.Equal(t, "v7", notified)
}

func TestWatchFollowsStateFile(t *testing.T) {
	writer := newManager(t, "v7")
	reader, err := NewManager(writer.Root(), nil)
	require.NoError(t, err)

	require.NoError(t, reader.Watch())
	defer reader.Stop()

	require.NoError(t, writer.Activate("v7"))
	assert.Eventually(t, func() bool {
		return reader.ActivePath() == reader.Dir("v7")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.Deactivate())
	assert.Eventually(t, func() bool {
		return reader.ActivePath() == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Watch())

	m.Stop()
	m.Stop()
}
