package whatsapp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/store"
)

func stubLatestVersion(t *testing.T, fn func(ctx context.Context) (*store.WAVersionContainer, error)) {
	t.Helper()
	prevFetch := fetchLatestVersion
	prevVersion := store.GetWAVersion()
	fetchLatestVersion = fn
	t.Cleanup(func() {
		fetchLatestVersion = prevFetch
		store.SetWAVersion(prevVersion)
		versionMu.Lock()
		versionRefreshedAt, versionLastError = nil, ""
		versionMu.Unlock()
	})
}

func TestRefreshVersion(t *testing.T) {
	var calls atomic.Int32
	stubLatestVersion(t, func(ctx context.Context) (*store.WAVersionContainer, error) {
		calls.Add(1)
		return &store.WAVersionContainer{2, 3000, 1}, nil
	})
	t.Setenv("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", "10m")

	status, refreshed, err := RefreshVersion(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "2.3000.1", status.Current)
	assert.NotNil(t, status.LastRefreshed)

	// throttled by the minimum interval
	_, refreshed, err = RefreshVersion(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.EqualValues(t, 1, calls.Load())

	_, refreshed, err = RefreshVersion(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRefreshVersionFailure(t *testing.T) {
	stubLatestVersion(t, func(ctx context.Context) (*store.WAVersionContainer, error) {
		return nil, errors.New("fetch failed")
	})

	status, _, err := RefreshVersion(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, "fetch failed", status.LastError)
}
