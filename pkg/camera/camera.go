// Package camera defines the camera capability consumed by the viewer and
// a still-image implementation. Hardware backends live in sub-packages.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

const DefaultIndex = 0

var (
	ErrNoFrame = errors.New("no frame available")
	ErrClosed  = errors.New("camera closed")
)

// Camera yields at most one frame per Read. Any error means no frame was
// available for this call; callers are free to try again.
type Camera interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Opener opens a camera by device index.
type Opener func(index int) (Camera, error)

// Frame is the most recent image read from a camera. It is not retained
// by the camera after Read returns.
type Frame struct {
	Image image.Image
	// JPEG holds the encoded frame when the backend produced one.
	JPEG []byte
	Seq  uint64
	At   time.Time
}

func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Blank reports whether every sample of the frame is zero.
func (f Frame) Blank() bool {
	if f.Empty() {
		return true
	}
	switch img := f.Image.(type) {
	case *image.Gray:
		return allZero(img.Pix)
	case *image.RGBA:
		return colorZero(img.Pix)
	case *image.NRGBA:
		return colorZero(img.Pix)
	case *image.YCbCr:
		// an all-black YCbCr frame still carries chroma 128
		return allZero(img.Y)
	}

	b := f.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := f.Image.At(x, y).RGBA()
			if r|g|bl != 0 {
				return false
			}
		}
	}
	return true
}

func allZero(pix []byte) bool {
	for _, p := range pix {
		if p != 0 {
			return false
		}
	}
	return true
}

// colorZero checks the colour channels of 4-byte pixels, ignoring alpha.
func colorZero(pix []byte) bool {
	for i := 0; i+2 < len(pix); i += 4 {
		if pix[i]|pix[i+1]|pix[i+2] != 0 {
			return false
		}
	}
	return true
}
