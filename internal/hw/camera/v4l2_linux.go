//go:build linux

package camera

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/blackjack/webcam"

	"github.com/cjeanneret/lvs/internal/debug"
)

// V4L2 is a Camera backed by a Video4Linux device.
type V4L2 struct {
	cam    *webcam.Webcam
	cfg    V4L2Config
	width  int
	height int
}

// OpenV4L2 opens the device, negotiates format and size, and starts streaming.
func OpenV4L2(cfg V4L2Config) (*V4L2, error) {
	debug.Verbose("Camera: opening %s (%s %dx%d)", cfg.Device, cfg.Format, cfg.Width, cfg.Height)

	cam, err := webcam.Open(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	formats := cam.GetSupportedFormats()
	pf := webcam.PixelFormat(cfg.Format)
	if _, ok := formats[pf]; !ok {
		cam.Close()
		return nil, fmt.Errorf("%s does not support format %s (supported: %s)", cfg.Device, cfg.Format, describeFormats(formats))
	}

	_, w, h, err := cam.SetImageFormat(pf, uint32(cfg.Width), uint32(cfg.Height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("set image format: %w", err)
	}
	if int(w) != cfg.Width || int(h) != cfg.Height {
		debug.Info("Camera: %s negotiated %dx%d instead of %dx%d", cfg.Device, w, h, cfg.Width, cfg.Height)
	}

	if err := cam.SetBufferCount(2); err != nil {
		cam.Close()
		return nil, fmt.Errorf("set buffer count: %w", err)
	}
	if err := cam.SetAutoWhiteBalance(true); err != nil {
		debug.Verbose("Camera: auto white balance not available: %v", err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("start streaming: %w", err)
	}

	return &V4L2{cam: cam, cfg: cfg, width: int(w), height: int(h)}, nil
}

// Frame drops the configured warm-up frames and returns the next one.
func (v *V4L2) Frame(ctx context.Context) (image.Image, error) {
	for i := 0; i <= v.cfg.WarmupFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, release, err := v.next()
		if err != nil {
			return nil, err
		}
		if i < v.cfg.WarmupFrames {
			debug.Trace("Camera: dropped warm-up frame %d/%d", i+1, v.cfg.WarmupFrames)
			release()
			continue
		}
		img, err := decodeFrame(v.cfg.Format, v.width, v.height, buf)
		release()
		if err != nil {
			return nil, err
		}
		return img, nil
	}
	return nil, ErrNoFrame
}

// next waits for a buffer. release must be called once the data is consumed.
func (v *V4L2) next() ([]byte, func(), error) {
	err := v.cam.WaitForFrame(v.cfg.timeoutSeconds())
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, nil, fmt.Errorf("%w: no frame within %v", ErrNoFrame, v.cfg.Timeout)
	default:
		return nil, nil, fmt.Errorf("wait for frame: %w", err)
	}

	frame, index, err := v.cam.GetFrame()
	if err != nil {
		return nil, nil, fmt.Errorf("get frame: %w", err)
	}
	release := func() {
		if err := v.cam.ReleaseFrame(index); err != nil {
			debug.Verbose("Camera: release frame %d: %v", index, err)
		}
	}
	if len(frame) == 0 {
		release()
		return nil, nil, ErrNoFrame
	}
	return frame, release, nil
}

// Close stops streaming and releases the device.
func (v *V4L2) Close() error {
	if err := v.cam.StopStreaming(); err != nil {
		debug.Verbose("Camera: stop streaming: %v", err)
	}
	return v.cam.Close()
}

func describeFormats(formats map[webcam.PixelFormat]string) string {
	names := make([]string, 0, len(formats))
	for f, desc := range formats {
		names = append(names, fmt.Sprintf("%s (%s)", PixelFormat(f), desc))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
