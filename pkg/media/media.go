package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
)

var (
	ErrInvalidURL    = errors.New("image url is not valid")
	ErrImageNotFound = errors.New("image not found at the given url")
	ErrImageTimeout  = errors.New("image download timed out")
	ErrNotAnImage    = errors.New("url does not point to an image")
	ErrImageTooLarge = errors.New("image exceeds the maximum allowed size")
	ErrDownload      = errors.New("image download failed")
)

// Image is a downloaded payload ready to be uploaded to WhatsApp.
type Image struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
	FileName string `json:"fileName"`
	Source   string `json:"source"`
}

type Fetcher struct {
	client   *http.Client
	maxBytes int
}

func NewFetcher(timeout time.Duration, maxBytes int) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 16 * 1024 * 1024
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// NewFetcherFromEnv reads WHATSAPP_MEDIA_DOWNLOAD_TIMEOUT and WHATSAPP_MEDIA_MAX_BYTES.
func NewFetcherFromEnv() *Fetcher {
	return NewFetcher(
		env.GetEnvDurationOrDefault("WHATSAPP_MEDIA_DOWNLOAD_TIMEOUT", 20*time.Second),
		env.GetEnvBytesOrDefault("WHATSAPP_MEDIA_MAX_BYTES", 16*1024*1024),
	)
}

// Fetch downloads rawURL and infers its MIME type from the response header,
// the payload signature and finally the file extension.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "WhatsApp-Gateway/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrImageNotFound
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, ErrImageTimeout
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: remote answered %d", ErrDownload, resp.StatusCode)
	}

	if resp.ContentLength > int64(f.maxBytes) {
		return nil, ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBytes)+1))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if len(data) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotAnImage
	}

	mimeType := InferMimeType(resp.Header.Get("Content-Type"), data, u.Path)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrNotAnImage
	}

	return &Image{
		Data:     data,
		MimeType: mimeType,
		Size:     len(data),
		FileName: fileName(u.Path, mimeType),
		Source:   u.String(),
	}, nil
}

// InferMimeType prefers an explicit image/* header, then content sniffing,
// then the extension of the URL path.
func InferMimeType(header string, data []byte, urlPath string) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	if len(data) > 0 {
		sniffed := http.DetectContentType(data)
		if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil && strings.HasPrefix(mediaType, "image/") {
			return mediaType
		}
	}
	if ext := strings.ToLower(path.Ext(urlPath)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
				return mediaType
			}
		}
	}
	return "application/octet-stream"
}

func fileName(urlPath string, mimeType string) string {
	base := path.Base(urlPath)
	if base != "" && base != "/" && base != "." && path.Ext(base) != "" {
		return base
	}
	ext := ".jpg"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	return "image" + ext
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrImageTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrImageTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return ErrImageNotFound
	}
	return fmt.Errorf("%w: %v", ErrDownload, err)
}
