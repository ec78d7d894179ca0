package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
)

// PixelFormat is a V4L2 FourCC code.
type PixelFormat uint32

// Supported pixel formats.
const (
	FormatYUYV  PixelFormat = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	FormatMJPEG PixelFormat = 'M' | 'J'<<8 | 'P'<<16 | 'G'<<24
)

func (f PixelFormat) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// ParsePixelFormat maps a config name to a FourCC.
func ParsePixelFormat(name string) (PixelFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "YUYV", "YUYV 4:2:2":
		return FormatYUYV, nil
	case "MJPG", "MJPEG", "MOTION-JPEG":
		return FormatMJPEG, nil
	default:
		return 0, fmt.Errorf("unsupported pixel format: %q", name)
	}
}

// decodeFrame converts a raw device buffer to an image.
func decodeFrame(format PixelFormat, width, height int, buf []byte) (image.Image, error) {
	switch format {
	case FormatYUYV:
		return decodeYUYV(width, height, buf)
	case FormatMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("decode MJPEG frame: %w", err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported pixel format: %s", format)
	}
}

// decodeYUYV maps packed YUYV 4:2:2 (Y0 U Y1 V per pixel pair) onto image.YCbCr.
func decodeYUYV(width, height int, buf []byte) (*image.YCbCr, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid YUYV frame size %dx%d", width, height)
	}
	if len(buf) < width*height*2 {
		return nil, fmt.Errorf("short YUYV frame: %d bytes, want %d", len(buf), width*height*2)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	for y := 0; y < height; y++ {
		row := buf[y*width*2 : (y+1)*width*2]
		yOff := y * img.YStride
		cOff := y * img.CStride
		for x := 0; x < width/2; x++ {
			p := row[x*4 : x*4+4]
			img.Y[yOff+2*x] = p[0]
			img.Cb[cOff+x] = p[1]
			img.Y[yOff+2*x+1] = p[2]
			img.Cr[cOff+x] = p[3]
		}
	}
	return img, nil
}
