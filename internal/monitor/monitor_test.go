package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Probes(t *testing.T) {
	s := NewService(Dependencies{
		Pending:     func() int { return 3 },
		Subscribers: func() int { return 2 },
		Dropped:     func() int64 { return 7 },
		Client:      func() string { return "8.60" },
	})
	st := s.Status()
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 2, st.Subscribers)
	assert.Equal(t, int64(7), st.Dropped)
	assert.Equal(t, "8.60", st.Client)

	empty := NewService(Dependencies{}).Status()
	assert.Zero(t, empty.Pending)
	assert.Empty(t, empty.Client)
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{Path: path, Pending: func() int { return 1 }})
	require.NoError(t, s.WriteStatus())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 1, st.Pending)
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{Path: path, Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStart_NeedsPath(t *testing.T) {
	assert.Error(t, NewService(Dependencies{}).Start())
}
