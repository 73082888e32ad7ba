//go:build opencv

// Package cv reads frames from an OpenCV VideoCapture opened by index.
//
// VideoCapture.Read blocks in C and cannot observe a context, so Read only
// checks ctx before it starts.
package cv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"vision-common/pkg/camera"
)

type Camera struct {
	index int

	lock sync.Mutex
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	seq  uint64
}

func Open(index int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open video capture %d: %w", index, err)
	}
	return &Camera{index: index, vc: vc, mat: gocv.NewMat()}, nil
}

// Opener adapts Open to camera.Opener.
func Opener() camera.Opener {
	return func(index int) (camera.Camera, error) {
		return Open(index)
	}
}

func (c *Camera) Read(ctx context.Context) (camera.Frame, error) {
	if err := ctx.Err(); err != nil {
		return camera.Frame{}, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.vc == nil {
		return camera.Frame{}, camera.ErrClosed
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return camera.Frame{}, camera.ErrNoFrame
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%w: %s", camera.ErrNoFrame, err)
	}
	c.seq++

	return camera.Frame{Image: img, Seq: c.seq, At: time.Now()}, nil
}

func (c *Camera) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	_ = c.mat.Close()
	return err
}
