package camera

import (
	"context"
	"image"
	"sync"
	"time"
)

// Mock implements Camera for testing.
type Mock struct {
	// ReadFunc is called with the 1-based read number. A nil ReadFunc
	// always fails with ErrNoFrame.
	ReadFunc func(ctx context.Context, n int) (Frame, error)

	mu     sync.Mutex
	reads  int
	closed bool
}

// Serving returns a mock that yields img on every read.
func Serving(img image.Image) *Mock {
	return &Mock{
		ReadFunc: func(_ context.Context, n int) (Frame, error) {
			return Frame{Image: img, Seq: uint64(n), At: time.Now()}, nil
		},
	}
}

// Dead returns a mock that never produces a frame.
func Dead() *Mock {
	return &Mock{}
}

func (m *Mock) Read(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	m.reads++
	n := m.reads
	fn := m.ReadFunc
	m.mu.Unlock()

	if fn == nil {
		return Frame{}, ErrNoFrame
	}
	return fn(ctx, n)
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Reads returns the number of Read invocations.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
