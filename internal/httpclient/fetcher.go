package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultMaxMediaBytes bounds the size of a downloaded input or result file.
const DefaultMaxMediaBytes int64 = 512 << 20

// ErrMediaTooLarge is returned when a download exceeds the configured limit.
var ErrMediaTooLarge = errors.New("httpclient: media exceeds size limit")

// Media is a downloaded media file.
type Media struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Fetcher downloads publicly reachable media referenced by URL.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a Fetcher. A nil client gets a 5 minute timeout and a
// non-positive limit falls back to DefaultMaxMediaBytes.
func NewFetcher(hc *http.Client, maxBytes int64) *Fetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMediaBytes
	}
	return &Fetcher{httpClient: hc, maxBytes: maxBytes}
}

// Fetch downloads rawURL fully into memory.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch media: create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Vendor:     "media",
			Method:     http.MethodGet,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch media %s: read body: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrMediaTooLarge, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &Media{
		Data:        data,
		ContentType: contentType,
		Filename:    filenameOf(rawURL, contentType),
	}, nil
}

// filenameOf derives a file name from the URL path, falling back to an
// extension guessed from the content type.
func filenameOf(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." && path.Ext(base) != "" {
			return base
		}
	}
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return "media" + ext
}
