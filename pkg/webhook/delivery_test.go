package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineDeliversSignedEvent(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	engine := NewEngine(Config{
		Enabled:       true,
		URL:           srv.URL,
		Secret:        "s3cret",
		Workers:       1,
		AllowInsecure: true,
		AllowPrivate:  true,
	})

	engine.Dispatch(EventReady, map[string]interface{}{"isReady": true})

	select {
	case r := <-received:
		body := <-bodies
		assert.Equal(t, string(EventReady), r.Header.Get("X-Webhook-Event"))
		assert.Equal(t, Sign(body, "s3cret"), r.Header.Get("X-Webhook-Signature"))
		assert.NotEmpty(t, r.Header.Get("X-Webhook-Delivery"))

		var evt WebhookEvent
		require.NoError(t, json.Unmarshal(body, &evt))
		assert.Equal(t, EventReady, evt.EventType)
		assert.Equal(t, true, evt.Data["isReady"])
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}

	engine.Shutdown()
	logs := engine.Deliveries()
	require.Len(t, logs, 1)
	assert.Equal(t, DeliverySuccess, logs[0].Status)
	assert.Equal(t, 1, logs[0].AttemptCount)
}

func TestEngineRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	engine := NewEngine(Config{
		Enabled:       true,
		URL:           srv.URL,
		Workers:       1,
		RetryLimit:    3,
		RetryBackoff:  time.Millisecond,
		AllowInsecure: true,
		AllowPrivate:  true,
	})
	engine.Dispatch(EventDisconnected, nil)
	engine.Shutdown()

	assert.Equal(t, int32(3), hits.Load())
	logs := engine.Deliveries()
	require.Len(t, logs, 1)
	assert.Equal(t, DeliveryFailed, logs[0].Status)
	assert.Contains(t, logs[0].LastError, "HTTP 502")
}

func TestEngineFiltersEvents(t *testing.T) {
	engine := NewEngine(Config{
		Enabled: true,
		URL:     "https://hooks.example.com/wa",
		Events:  []EventType{EventMessageCreate},
	})
	defer engine.Shutdown()

	assert.True(t, engine.shouldDispatch(EventMessageCreate))
	assert.False(t, engine.shouldDispatch(EventQR))
}

func TestDisabledEngineIgnoresDispatch(t *testing.T) {
	engine := NewEngine(Config{})
	engine.Dispatch(EventQR, nil)
	engine.Shutdown()
	assert.Empty(t, engine.Deliveries())

	var nilEngine *Engine
	assert.False(t, nilEngine.Enabled())
	nilEngine.Dispatch(EventQR, nil)
	nilEngine.Shutdown()
}

func TestValidateURL(t *testing.T) {
	strict := &Engine{cfg: Config{}}
	assert.NoError(t, strict.validateURL("https://hooks.example.com/wa"))
	assert.Error(t, strict.validateURL("http://hooks.example.com/wa"))
	assert.Error(t, strict.validateURL("https://localhost/wa"))
	assert.Error(t, strict.validateURL("https://192.168.1.10/wa"))
	assert.Error(t, strict.validateURL("https://127.0.0.1/wa"))

	relaxed := &Engine{cfg: Config{AllowInsecure: true, AllowPrivate: true}}
	assert.NoError(t, relaxed.validateURL("http://127.0.0.1:8080/wa"))
	assert.Error(t, relaxed.validateURL("ftp://127.0.0.1/wa"))
}
