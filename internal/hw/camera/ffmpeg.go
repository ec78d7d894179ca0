package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"strings"
	"time"

	"github.com/cjeanneret/lvs/internal/debug"
)

// FFmpegConfig describes a source read through the ffmpeg binary.
type FFmpegConfig struct {
	Binary      string        // ffmpeg executable
	Input       string        // rtsp://..., /dev/video0, a file...
	InputFormat string        // optional -f for the input (e.g., "v4l2")
	Timeout     time.Duration // whole-command timeout
}

// FFmpeg grabs a single frame by running ffmpeg and decoding the MJPEG it
// writes to stdout. The device is held only while ffmpeg runs.
type FFmpeg struct {
	cfg FFmpegConfig
}

// NewFFmpeg creates an ffmpeg-backed camera.
func NewFFmpeg(cfg FFmpegConfig) *FFmpeg {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	return &FFmpeg{cfg: cfg}
}

// Args returns the ffmpeg command line (without the binary).
func (f *FFmpeg) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if strings.HasPrefix(f.cfg.Input, "rtsp://") || strings.HasPrefix(f.cfg.Input, "rtsps://") {
		args = append(args, "-rtsp_transport", "tcp")
	}
	if f.cfg.InputFormat != "" {
		args = append(args, "-f", f.cfg.InputFormat)
	}
	return append(args,
		"-i", f.cfg.Input,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
}

// Frame runs ffmpeg once and decodes its output.
func (f *FFmpeg) Frame(ctx context.Context) (image.Image, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	args := f.Args()
	debug.Verbose("Camera: %s %s", f.cfg.Binary, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.cfg.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w | %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, ErrNoFrame
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg frame: %w", err)
	}
	return img, nil
}

// Close is a no-op: ffmpeg releases the input when it exits.
func (f *FFmpeg) Close() error { return nil }
