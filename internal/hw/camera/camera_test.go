package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cjeanneret/lvs/internal/config"
)

// ---------- Pixel formats ----------

func TestParsePixelFormat(t *testing.T) {
	cases := []struct {
		in   string
		want PixelFormat
	}{
		{"YUYV", FormatYUYV},
		{"yuyv 4:2:2", FormatYUYV},
		{"MJPG", FormatMJPEG},
		{"Motion-JPEG", FormatMJPEG},
	}
	for _, tc := range cases {
		got, err := ParsePixelFormat(tc.in)
		if err != nil {
			t.Errorf("ParsePixelFormat(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePixelFormat(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParsePixelFormat("H264"); err == nil {
		t.Error("expected error for H264, got nil")
	}
}

func TestPixelFormatString(t *testing.T) {
	if FormatYUYV.String() != "YUYV" {
		t.Errorf("FormatYUYV = %q", FormatYUYV.String())
	}
	if FormatMJPEG.String() != "MJPG" {
		t.Errorf("FormatMJPEG = %q", FormatMJPEG.String())
	}
}

func TestDecodeYUYV(t *testing.T) {
	// 2x2 frame: two pixel pairs, Y0 U Y1 V each.
	buf := []byte{
		10, 100, 20, 200,
		30, 110, 40, 210,
	}
	img, err := decodeYUYV(2, 2, buf)
	if err != nil {
		t.Fatalf("decodeYUYV: %v", err)
	}
	wantY := []uint8{10, 20, 30, 40}
	for i, y := range wantY {
		if img.Y[i] != y {
			t.Errorf("Y[%d] = %d, want %d", i, img.Y[i], y)
		}
	}
	if img.Cb[0] != 100 || img.Cr[0] != 200 || img.Cb[1] != 110 || img.Cr[1] != 210 {
		t.Errorf("chroma = Cb%v Cr%v", img.Cb, img.Cr)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestDecodeYUYV_Errors(t *testing.T) {
	if _, err := decodeYUYV(2, 2, make([]byte, 7)); err == nil {
		t.Error("expected error for short buffer")
	}
	if _, err := decodeYUYV(3, 2, make([]byte, 12)); err == nil {
		t.Error("expected error for odd width")
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeFrame_MJPEG(t *testing.T) {
	img, err := decodeFrame(FormatMJPEG, 0, 0, jpegBytes(t, 8, 4))
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if _, err := decodeFrame(FormatMJPEG, 0, 0, []byte("nope")); err == nil {
		t.Error("expected error for invalid JPEG")
	}
}

// ---------- Mock ----------

func TestMock_Frame(t *testing.T) {
	m := NewMock(16, 8, false)
	img, err := m.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 8) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if m.Frames != 1 {
		t.Errorf("Frames = %d, want 1", m.Frames)
	}
	if err := m.Close(); err != nil || !m.Closed {
		t.Errorf("Close: err=%v closed=%v", err, m.Closed)
	}
}

func TestMock_Fail(t *testing.T) {
	m := NewMock(16, 8, true)
	if _, err := m.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("err = %v, want ErrNoFrame", err)
	}
}

func TestMock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMock(4, 4, false).Frame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMock_ImplementsCamera(t *testing.T) {
	var _ Camera = NewMock(1, 1, false) // compile-time check
	var _ Camera = NewFFmpeg(FFmpegConfig{})
}

// ---------- FFmpeg ----------

func TestFFmpegArgs_RTSP(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Input: "rtsp://cam.local/stream"})
	got := strings.Join(f.Args(), " ")
	if !strings.Contains(got, "-rtsp_transport tcp -i rtsp://cam.local/stream") {
		t.Errorf("args = %q", got)
	}
	if !strings.HasSuffix(got, "-frames:v 1 -q:v 2 -f image2pipe -vcodec mjpeg -") {
		t.Errorf("args = %q", got)
	}
}

func TestFFmpegArgs_V4L2Input(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Input: "/dev/video0", InputFormat: "v4l2"})
	got := strings.Join(f.Args(), " ")
	if strings.Contains(got, "rtsp_transport") {
		t.Errorf("rtsp options on a local device: %q", got)
	}
	if !strings.Contains(got, "-f v4l2 -i /dev/video0") {
		t.Errorf("args = %q", got)
	}
}

func TestFFmpeg_DefaultBinary(t *testing.T) {
	if NewFFmpeg(FFmpegConfig{}).cfg.Binary != "ffmpeg" {
		t.Error("default binary should be ffmpeg")
	}
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: filepath.Join(t.TempDir(), "no-ffmpeg"), Input: "x", Timeout: time.Second})
	if _, err := f.Frame(context.Background()); err == nil {
		t.Error("expected error for missing binary, got nil")
	}
}

func TestFFmpeg_FrameFromFakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.jpg")
	if err := os.WriteFile(frame, jpegBytes(t, 6, 6), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\ncat '" + frame + "'\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	f := NewFFmpeg(FFmpegConfig{Binary: bin, Input: "/dev/video0", Timeout: 5 * time.Second})
	img, err := f.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds().Dx() != 6 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestFFmpeg_EmptyOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	f := NewFFmpeg(FFmpegConfig{Binary: bin, Input: "x"})
	if _, err := f.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("err = %v, want ErrNoFrame", err)
	}
}

// ---------- NewOpener ----------

func TestNewOpener_Mock(t *testing.T) {
	open, err := NewOpener(config.CameraConfig{Type: "mock", Resolution: "32x24"})
	if err != nil {
		t.Fatalf("NewOpener: %v", err)
	}
	cam, err := open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cam.Close()
	img, err := cam.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestNewOpener_FFmpeg(t *testing.T) {
	open, err := NewOpener(config.CameraConfig{Type: "ffmpeg", Device: "rtsp://cam/1", FFmpegPath: "ffmpeg", TimeoutS: 5})
	if err != nil {
		t.Fatalf("NewOpener: %v", err)
	}
	cam, err := open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := cam.(*FFmpeg); !ok {
		t.Errorf("camera = %T, want *FFmpeg", cam)
	}
}

func TestNewOpener_Errors(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.CameraConfig
	}{
		{"unsupported_type", config.CameraConfig{Type: "gphoto2"}},
		{"v4l2_bad_format", config.CameraConfig{Type: "v4l2", Format: "H264", Resolution: "640x480"}},
		{"v4l2_bad_resolution", config.CameraConfig{Type: "v4l2", Format: "YUYV", Resolution: "wide"}},
		{"mock_bad_resolution", config.CameraConfig{Type: "mock", Resolution: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewOpener(tc.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewOpener_V4L2MissingDevice(t *testing.T) {
	open, err := NewOpener(config.CameraConfig{
		Type:       "v4l2",
		Device:     filepath.Join(t.TempDir(), "video9"),
		Format:     "YUYV",
		Resolution: "640x480",
		TimeoutS:   1,
	})
	if err != nil {
		t.Fatalf("NewOpener: %v", err)
	}
	cam, err := open(context.Background())
	if err == nil {
		cam.Close()
		t.Fatal("expected error opening a missing device, got nil")
	}
	if cam != nil {
		t.Errorf("camera should be nil on error, got %T", cam)
	}
}

func TestV4L2TimeoutSeconds(t *testing.T) {
	if got := (V4L2Config{Timeout: 300 * time.Millisecond}).timeoutSeconds(); got != 1 {
		t.Errorf("sub-second timeout = %d, want 1", got)
	}
	if got := (V4L2Config{Timeout: 3 * time.Second}).timeoutSeconds(); got != 3 {
		t.Errorf("3s timeout = %d, want 3", got)
	}
}
