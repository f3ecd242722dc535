package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
)

type VersionStatus struct {
	Current       string     `json:"current"`
	LastRefreshed *time.Time `json:"lastRefreshed,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

var (
	versionRefreshGroup singleflight.Group

	versionMu          sync.RWMutex
	versionRefreshedAt *time.Time
	versionLastError   string

	fetchLatestVersion = func(ctx context.Context) (*store.WAVersionContainer, error) {
		return whatsmeow.GetLatestVersion(ctx, &http.Client{Timeout: 15 * time.Second})
	}
)

func CurrentVersion() VersionStatus {
	versionMu.RLock()
	defer versionMu.RUnlock()

	var last *time.Time
	if versionRefreshedAt != nil {
		t := *versionRefreshedAt
		last = &t
	}
	return VersionStatus{
		Current:       store.GetWAVersion().String(),
		LastRefreshed: last,
		LastError:     versionLastError,
	}
}

func setVersionResult(err error) {
	versionMu.Lock()
	defer versionMu.Unlock()
	now := time.Now()
	versionRefreshedAt = &now
	if err != nil {
		versionLastError = err.Error()
	} else {
		versionLastError = ""
	}
}

// RefreshVersion applies the latest WhatsApp Web version to new connections.
// Unless force is set, calls within WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL of
// the previous refresh are skipped. Concurrent callers share one request.
func RefreshVersion(ctx context.Context, force bool) (VersionStatus, bool, error) {
	minInterval := env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", 10*time.Minute)
	if !force && minInterval > 0 {
		versionMu.RLock()
		last := versionRefreshedAt
		versionMu.RUnlock()
		if last != nil && time.Since(*last) < minInterval {
			return CurrentVersion(), false, nil
		}
	}

	_, err, _ := versionRefreshGroup.Do("refresh", func() (interface{}, error) {
		latest, err := fetchLatestVersion(ctx)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err != nil {
			setVersionResult(err)
			return nil, err
		}
		store.SetWAVersion(*latest)
		setVersionResult(nil)
		return nil, nil
	})
	return CurrentVersion(), true, err
}
