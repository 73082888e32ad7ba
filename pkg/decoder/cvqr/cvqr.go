//go:build opencv

// Package cvqr decodes QR codes with OpenCV's QRCodeDetector.
package cvqr

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"vision-common/pkg/decoder"
)

// Decoder owns a native detector; call Close when done. Decode calls are
// serialized.
type Decoder struct {
	lock     sync.Mutex
	detector gocv.QRCodeDetector
	closed   bool
}

func New() *Decoder {
	return &Decoder{detector: gocv.NewQRCodeDetector()}
}

func (d *Decoder) Decode(img image.Image, symbols []decoder.Symbol) ([]decoder.Detection, error) {
	if len(symbols) > 0 && !hasQR(symbols) {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cvqr: detector closed")
	}
	text := d.detector.DetectAndDecode(mat, &points, &straight)
	if text == "" {
		return nil, nil
	}

	return []decoder.Detection{{Data: []byte(text), Symbol: decoder.QRCode}}, nil
}

func (d *Decoder) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.detector.Close()
}

func hasQR(symbols []decoder.Symbol) bool {
	for _, s := range symbols {
		if s == decoder.QRCode {
			return true
		}
	}
	return false
}
