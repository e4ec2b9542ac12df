package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	current := m.Current()
	assert.True(t, current.TrackingEnabled)
	assert.True(t, current.LeaderboardOptIn)
	assert.Empty(t, m.BlockedDomains())
}

func TestLoadsSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"trackingEnabled": true,
		"blockedDomains": ["reddit.com", "news.ycombinator.com"],
		"timezone": "Europe/Berlin",
		"leaderboardOptIn": false
	}`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)

	current := m.Current()
	assert.Equal(t, "Europe/Berlin", current.Timezone)
	assert.False(t, current.LeaderboardOptIn)
	assert.Equal(t, []string{"reddit.com", "news.ycombinator.com"}, m.BlockedDomains())
}

func TestCorruptFileFailsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestWatchReloadsOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trackingEnabled": true}`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Empty(t, m.BlockedDomains())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before rewriting.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"trackingEnabled": true, "blockedDomains": ["twitter.com"]}`), 0o644))

	assert.Eventually(t, func() bool {
		blocked := m.BlockedDomains()
		return len(blocked) == 1 && blocked[0] == "twitter.com"
	}, 2*time.Second, 20*time.Millisecond)

	// A corrupt rewrite keeps the last good settings.
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"twitter.com"}, m.BlockedDomains())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
