package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/pixel", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngPixel)
	})
	mux.HandleFunc("/photo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write(pngPixel)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>nope</body></html>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSniffsMimeType(t *testing.T) {
	srv := newServer(t)
	img, err := NewFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL+"/pixel")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, len(pngPixel), img.Size)
	assert.Equal(t, "image.png", img.FileName)
}

func TestFetchUsesHeaderAndFileName(t *testing.T) {
	srv := newServer(t)
	img, err := NewFetcher(time.Second, 1024).Fetch(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "photo.png", img.FileName)
}

func TestFetchErrors(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(200*time.Millisecond, 1024)
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, err = f.Fetch(ctx, srv.URL+"/page")
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = f.Fetch(ctx, srv.URL+"/slow")
	assert.ErrorIs(t, err, ErrImageTimeout)

	_, err = f.Fetch(ctx, srv.URL+"/broken")
	assert.ErrorIs(t, err, ErrDownload)

	_, err = f.Fetch(ctx, "ftp://example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewFetcher(time.Second, 10).Fetch(ctx, srv.URL+"/pixel")
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestInferMimeTypeFallsBackToExtension(t *testing.T) {
	assert.Equal(t, "image/gif", InferMimeType("", []byte("plain text body"), "/anim.GIF"))
	assert.Equal(t, "application/octet-stream", InferMimeType("", []byte("plain"), "/file"))
}
