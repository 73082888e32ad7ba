package decoder

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type readerFactory struct {
	symbol Symbol
	newFn  func() gozxing.Reader
}

// 2-D symbols first, then linear ones; this is also the detection order.
var zxingReaders = []readerFactory{
	{QRCode, func() gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{DataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }},
	{Aztec, func() gozxing.Reader { return aztec.NewAztecReader() }},
	{Code128, func() gozxing.Reader { return oned.NewCode128Reader() }},
	{Code93, func() gozxing.Reader { return oned.NewCode93Reader() }},
	{Code39, func() gozxing.Reader { return oned.NewCode39Reader() }},
	{Codabar, func() gozxing.Reader { return oned.NewCodaBarReader() }},
	{EAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }},
	{EAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }},
	{UPCA, func() gozxing.Reader { return oned.NewUPCAReader() }},
	{UPCE, func() gozxing.Reader { return oned.NewUPCEReader() }},
	{I25, func() gozxing.Reader { return oned.NewITFReader() }},
}

// Zxing decodes symbols with gozxing. The zero value is ready to use and
// safe for concurrent use; readers are created per call.
type Zxing struct {
	// TryHarder trades speed for accuracy on noisy frames.
	TryHarder bool
	// FirstOnly stops after the first reader that finds a symbol.
	FirstOnly bool
}

func NewZxing() *Zxing {
	return &Zxing{FirstOnly: true}
}

// Supports reports whether s has a gozxing reader.
func (z *Zxing) Supports(s Symbol) bool {
	for _, r := range zxingReaders {
		if r.symbol == s {
			return true
		}
	}
	return false
}

func (z *Zxing) Decode(img image.Image, symbols []Symbol) ([]Detection, error) {
	readers, err := z.selectReaders(symbols)
	if err != nil {
		return nil, err
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize frame: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if z.TryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	var (
		detections []Detection
		failure    error
	)
	for _, r := range readers {
		result, err := r.newFn().Decode(bmp, hints)
		if err != nil {
			var notFound gozxing.NotFoundException
			if !errors.As(err, &notFound) && failure == nil {
				failure = fmt.Errorf("%s: %w", r.symbol, err)
			}
			continue
		}
		detections = append(detections, Detection{
			Data:   []byte(result.GetText()),
			Symbol: r.symbol,
		})
		if z.FirstOnly {
			break
		}
	}

	// a checksum or format error only matters when nothing else was found
	if len(detections) == 0 && failure != nil {
		return nil, failure
	}
	return detections, nil
}

func (z *Zxing) selectReaders(symbols []Symbol) ([]readerFactory, error) {
	if len(symbols) == 0 {
		return zxingReaders, nil
	}
	var res []readerFactory
	for _, r := range zxingReaders {
		if contains(symbols, r.symbol) {
			res = append(res, r)
		}
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSymbol, symbols)
	}
	return res, nil
}
