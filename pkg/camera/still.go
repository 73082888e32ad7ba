package camera

import (
	"context"
	"image"
	"sync"
	"time"

	imageutil "vision-common/pkg/utils/image"
)

// Still is a camera that serves the same image on every Read.
type Still struct {
	img image.Image

	lock   sync.Mutex
	seq    uint64
	closed bool
}

func NewStill(img image.Image) *Still {
	return &Still{img: img}
}

// OpenImage loads a PNG or JPEG file as a still camera.
func OpenImage(path string) (*Still, error) {
	img, err := imageutil.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewStill(img), nil
}

func (s *Still) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return Frame{}, ErrClosed
	}
	if s.img == nil {
		return Frame{}, ErrNoFrame
	}
	s.seq++

	return Frame{Image: s.img, Seq: s.seq, At: time.Now()}, nil
}

func (s *Still) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	return nil
}
