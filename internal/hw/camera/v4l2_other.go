//go:build !linux

package camera

import (
	"context"
	"errors"
	"image"
)

// V4L2 is only available on Linux.
type V4L2 struct{}

// OpenV4L2 always fails outside Linux.
func OpenV4L2(cfg V4L2Config) (*V4L2, error) {
	return nil, errors.New("v4l2 camera is only supported on linux")
}

func (v *V4L2) Frame(ctx context.Context) (image.Image, error) {
	return nil, ErrNoFrame
}

func (v *V4L2) Close() error { return nil }
