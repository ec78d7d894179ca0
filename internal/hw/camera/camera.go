package camera

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/cjeanneret/lvs/internal/config"
)

// ErrNoFrame is returned when the device answered but delivered no usable frame.
var ErrNoFrame = errors.New("camera returned no frame")

// Camera is the high-level interface used by the rest of the application.
// It represents an opened capture device, regardless of how it's reached
// (V4L2, ffmpeg, a synthetic source, etc.).
type Camera interface {
	// Frame reads a single frame.
	Frame(ctx context.Context) (image.Image, error)
	// Close releases the device.
	Close() error
}

// Opener opens the capture device. Each capture opens and releases it.
type Opener func(ctx context.Context) (Camera, error)

// NewOpener selects a camera implementation based on configuration.
func NewOpener(cfg config.CameraConfig) (Opener, error) {
	switch cfg.Type {
	case "v4l2":
		w, h, err := cfg.Size()
		if err != nil {
			return nil, err
		}
		format, err := ParsePixelFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Camera, error) {
			cam, err := OpenV4L2(V4L2Config{
				Device:       cfg.Device,
				Format:       format,
				Width:        w,
				Height:       h,
				Timeout:      cfg.Timeout(),
				WarmupFrames: cfg.WarmupFrames,
			})
			if err != nil {
				return nil, err
			}
			return cam, nil
		}, nil
	case "ffmpeg":
		f := NewFFmpeg(FFmpegConfig{
			Binary:      cfg.FFmpegPath,
			Input:       cfg.Device,
			InputFormat: cfg.InputFormat,
			Timeout:     cfg.Timeout(),
		})
		return func(ctx context.Context) (Camera, error) {
			return f, nil
		}, nil
	case "mock":
		w, h, err := cfg.Size()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Camera, error) {
			return NewMock(w, h, cfg.MockFail), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Type)
	}
}
