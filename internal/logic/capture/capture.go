package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/hw/camera"
)

// FileTimeFormat is the timestamp layout embedded in image file names.
const FileTimeFormat = "20060102_150405"

// ErrNoFrame is returned when the device could not deliver a frame.
var ErrNoFrame = errors.New("failed to capture image from webcam")

// Params controls how frames are written.
type Params struct {
	Dir              string // output directory, e.g. "images"
	JPEGQuality      int    // 1-100
	MaxWidth         int    // downscale wider frames, 0 = keep
	TimestampOverlay bool   // stamp capture time in the bottom-left corner
}

// Capturer grabs one frame per call and stores it as a JPEG file.
type Capturer struct {
	open   camera.Opener
	params Params
	now    func() time.Time
}

// NewCapturer creates a capturer that opens the camera through open.
func NewCapturer(open camera.Opener, p Params) *Capturer {
	if p.JPEGQuality <= 0 || p.JPEGQuality > 100 {
		p.JPEGQuality = 90
	}
	return &Capturer{open: open, params: p, now: time.Now}
}

// SetClock replaces the time source (tests).
func (c *Capturer) SetClock(now func() time.Time) {
	c.now = now
}

// Capture opens the camera, reads a single frame, writes it to
// <Dir>/image_<YYYYMMDD_HHMMSS>.jpg, releases the camera and returns the path.
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	path, err := c.capture(ctx)
	if err != nil {
		if errors.Is(err, ErrNoFrame) {
			debug.Errorf("Failed to capture image from webcam")
		} else {
			debug.Errorf("Error capturing image: %v", err)
		}
		return "", err
	}
	debug.Info("Image captured and saved as: %s", path)
	return path, nil
}

func (c *Capturer) capture(ctx context.Context) (string, error) {
	debug.Step(1, "Opening camera")
	cam, err := c.open(ctx)
	if err != nil {
		// A missing or busy device yields no frame, same as a failed read.
		return "", fmt.Errorf("%w: open camera: %v", ErrNoFrame, err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			debug.Errorf("Error releasing camera: %v", err)
		}
	}()

	debug.Step(2, "Reading frame")
	img, err := cam.Frame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNoFrame) {
			return "", fmt.Errorf("%w: %v", ErrNoFrame, err)
		}
		return "", fmt.Errorf("read frame: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return "", ErrNoFrame
	}

	taken := c.now()
	if c.params.TimestampOverlay {
		debug.Verbose("Stamping capture time on frame")
		img = Stamp(img, taken.Format("2006-01-02 15:04:05"))
	}
	if c.params.MaxWidth > 0 && img.Bounds().Dx() > c.params.MaxWidth {
		debug.Verbose("Resizing frame from %d to %d px wide", img.Bounds().Dx(), c.params.MaxWidth)
		img = imaging.Resize(img, c.params.MaxWidth, 0, imaging.Lanczos)
	}

	debug.Step(3, "Writing image")
	path, err := c.nextPath(taken)
	if err != nil {
		return "", err
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(c.params.JPEGQuality)); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// nextPath returns image_<ts>.jpg, or image_<ts>_N.jpg when that name is taken.
func (c *Capturer) nextPath(t time.Time) (string, error) {
	base := "image_" + t.Format(FileTimeFormat)
	path := filepath.Join(c.params.Dir, base+".jpg")
	for n := 1; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		path = filepath.Join(c.params.Dir, fmt.Sprintf("%s_%d.jpg", base, n))
	}
}

// Stamp draws text on a dark band in the bottom-left corner of img.
func Stamp(img image.Image, text string) image.Image {
	dc := gg.NewContextForImage(img)
	h := float64(dc.Height())

	tw, th := dc.MeasureString(text)
	const pad = 4.0
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, h-th-2*pad, tw+2*pad, th+2*pad)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, pad, h-pad, 0, 0)
	return dc.Image()
}
