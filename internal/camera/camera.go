// Package camera provides frame sources for the recognition loop.
package camera

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	_ "golang.org/x/image/bmp"
)

// ErrNoSource is returned by New when neither CAMERA_URL nor CAMERA_DIR is set.
var ErrNoSource = errors.New("no camera source configured: set CAMERA_URL or CAMERA_DIR")

// ErrNotOpen is returned by Read on a camera that is not open.
var ErrNotOpen = errors.New("camera is not open")

// Camera supplies frames on demand. Read returns ok=false when no new frame
// is available; that is not an error.
type Camera interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (frame image.Image, ok bool, err error)
	Close() error
}

// New selects a camera from configuration. The snapshot URL wins when both
// are set.
func New(cfg *config.CameraConfig) (Camera, error) {
	switch {
	case cfg.URL != "":
		return NewSnapshotCamera(cfg.URL), nil
	case cfg.Dir != "":
		return NewDirectoryCamera(cfg.Dir), nil
	default:
		return nil, ErrNoSource
	}
}
