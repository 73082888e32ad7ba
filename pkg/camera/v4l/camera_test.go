//go:build linux

package v4l

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"
	"time"

	"github.com/vladimirvivien/go4vl/v4l2"

	"vision-common/pkg/camera"
	imageutil "vision-common/pkg/utils/image"
)

func TestDeviceName(t *testing.T) {
	if got := DeviceName(2); got != "/dev/video2" {
		t.Fatalf("DeviceName(2) = %s", got)
	}
}

func TestParsePixelFormat(t *testing.T) {
	code, err := ParsePixelFormat("rgb24")
	if err != nil {
		t.Fatal(err)
	}
	if code != v4l2.PixelFmtRGB24 {
		t.Fatalf("unexpected fourcc %d", code)
	}
	if _, err = ParsePixelFormat("yuyv"); !errors.Is(err, ErrUnsupportedPixFmt) {
		t.Fatalf("expected ErrUnsupportedPixFmt, got %v", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	jpg, err := imageutil.EncodeJPEGBytes(image.NewGray(image.Rect(0, 0, 8, 8)), 90)
	if err != nil {
		t.Fatal(err)
	}
	f, err := decodeFrame(jpg, v4l2.PixFormat{PixelFormat: v4l2.PixelFmtJPEG}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if f.Seq != 7 || f.JPEG == nil || f.Image.Bounds().Dx() != 8 {
		t.Fatalf("unexpected jpeg frame %+v", f)
	}

	raw := make([]byte, 4*2*3)
	f, err = decodeFrame(raw, v4l2.PixFormat{PixelFormat: v4l2.PixelFmtRGB24, Width: 4, Height: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if f.Image.Bounds().Dx() != 4 || f.JPEG != nil {
		t.Fatalf("unexpected rgb frame %+v", f)
	}

	if _, err = decodeFrame(raw[:5], v4l2.PixFormat{PixelFormat: v4l2.PixelFmtRGB24, Width: 4, Height: 2}, 1); !errors.Is(err, camera.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame for short buffer, got %v", err)
	}
	if _, err = decodeFrame([]byte("garbage"), v4l2.PixFormat{PixelFormat: v4l2.PixelFmtJPEG}, 1); !errors.Is(err, camera.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame for corrupt jpeg, got %v", err)
	}
}

func TestCamera(t *testing.T) {
	dev := DeviceName(camera.DefaultIndex)
	if _, err := os.Stat(dev); err != nil {
		t.Skipf("no capture device: %s", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	c, err := Open(ctx, dev, Options{Width: 640, Height: 480})
	if err != nil {
		t.Skipf("device not usable: %s", err)
	}
	defer c.Close()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	f, err := c.Read(readCtx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Empty() {
		t.Fatal("empty frame")
	}
}
