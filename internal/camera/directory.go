package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DirectoryCamera replays the images of a directory in name order, looping
// back to the first after the last.
type DirectoryCamera struct {
	dir string

	mu    sync.Mutex
	files []string
	next  int
	open  bool
}

// NewDirectoryCamera creates a camera replaying frames from dir.
func NewDirectoryCamera(dir string) *DirectoryCamera {
	return &DirectoryCamera{dir: dir}
}

// Open lists the frame files. An empty directory is an error.
func (c *DirectoryCamera) Open(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read camera directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(c.dir, e.Name()))
	}
	if len(files) == 0 {
		return fmt.Errorf("no image files in %s", c.dir)
	}
	sort.Strings(files)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = files
	c.next = 0
	c.open = true
	return nil
}

// Read decodes the next file.
func (c *DirectoryCamera) Read(ctx context.Context) (image.Image, bool, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, false, ErrNotOpen
	}
	path := c.files[c.next]
	c.next = (c.next + 1) % len(c.files)
	c.mu.Unlock()

	img, err := LoadImage(path)
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// LoadImage decodes a JPEG, PNG or BMP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return frameExtensions[strings.ToLower(filepath.Ext(name))]
}

// Close releases the camera.
func (c *DirectoryCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.files = nil
	return nil
}
