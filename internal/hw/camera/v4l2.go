package camera

import "time"

// V4L2Config describes a Video4Linux device.
type V4L2Config struct {
	Device       string // e.g., "/dev/video0"
	Format       PixelFormat
	Width        int
	Height       int
	Timeout      time.Duration // per-frame wait
	WarmupFrames int           // frames read and dropped before the kept one
}

// timeoutSeconds converts Timeout to the whole seconds the driver expects (at least 1).
func (c V4L2Config) timeoutSeconds() uint32 {
	s := uint32(c.Timeout / time.Second)
	if s == 0 {
		s = 1
	}
	return s
}
