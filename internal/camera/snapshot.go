package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"
)

// maxSnapshotBytes bounds a single snapshot download.
const maxSnapshotBytes = 32 << 20

// SnapshotCamera fetches a still image from an HTTP endpoint on every read,
// as exposed by most IP cameras.
type SnapshotCamera struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	open bool
}

// NewSnapshotCamera creates a camera for the given snapshot URL.
func NewSnapshotCamera(url string) *SnapshotCamera {
	return &SnapshotCamera{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Open marks the camera as acquired.
func (c *SnapshotCamera) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

// Read downloads and decodes one frame. 204 and 503 mean "no frame yet".
func (c *SnapshotCamera) Read(ctx context.Context) (image.Image, bool, error) {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return nil, false, ErrNotOpen
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusServiceUnavailable:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("snapshot error (status %d)", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return img, true, nil
}

// Close releases the camera.
func (c *SnapshotCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.client.CloseIdleConnections()
	return nil
}
