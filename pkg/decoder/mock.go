package decoder

import (
	"image"
	"sync"
)

// Mock implements Decoder for testing.
type Mock struct {
	// DecodeFunc is called when Decode is invoked. A nil DecodeFunc finds
	// nothing.
	DecodeFunc func(img image.Image, symbols []Symbol) ([]Detection, error)

	mu    sync.Mutex
	calls int
	last  []Symbol
}

// Always returns a mock that detects text as a QR code on every call.
func Always(text string) *Mock {
	return &Mock{
		DecodeFunc: func(image.Image, []Symbol) ([]Detection, error) {
			return []Detection{{Data: []byte(text), Symbol: QRCode}}, nil
		},
	}
}

// Failing returns a mock whose every call fails with err.
func Failing(err error) *Mock {
	return &Mock{
		DecodeFunc: func(image.Image, []Symbol) ([]Detection, error) {
			return nil, err
		},
	}
}

func (m *Mock) Decode(img image.Image, symbols []Symbol) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.last = symbols
	fn := m.DecodeFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(img, symbols)
}

// Calls returns the number of Decode invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastSymbols returns the filter passed to the most recent Decode.
func (m *Mock) LastSymbols() []Symbol {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
