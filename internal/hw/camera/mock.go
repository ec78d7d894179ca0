package camera

import (
	"context"
	"image"
	"image/color"

	"github.com/cjeanneret/lvs/internal/debug"
)

// Mock is a synthetic camera for development and tests.
// It renders a gradient, or returns ErrNoFrame when Fail is set.
type Mock struct {
	Width  int
	Height int
	Fail   bool

	Frames int  // frames delivered
	Closed bool // Close was called
}

// NewMock creates a mock camera of the given size.
func NewMock(width, height int, fail bool) *Mock {
	debug.Info("Using MOCK camera (development mode)")
	return &Mock{Width: width, Height: height, Fail: fail}
}

func (m *Mock) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Fail {
		return nil, ErrNoFrame
	}
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(m.Width-1, 1)),
				G: uint8(y * 255 / max(m.Height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	m.Frames++
	return img, nil
}

func (m *Mock) Close() error {
	debug.Trace("Camera Close (mock)")
	m.Closed = true
	return nil
}
