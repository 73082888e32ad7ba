// Package decoder turns frames into barcode/QR detections.
package decoder

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

type Symbol string

const (
	QRCode     Symbol = "QRCODE"
	DataMatrix Symbol = "DATAMATRIX"
	Aztec      Symbol = "AZTEC"
	PDF417     Symbol = "PDF417"
	Code128    Symbol = "CODE128"
	Code93     Symbol = "CODE93"
	Code39     Symbol = "CODE39"
	Codabar    Symbol = "CODABAR"
	EAN13      Symbol = "EAN13"
	EAN8       Symbol = "EAN8"
	UPCA       Symbol = "UPCA"
	UPCE       Symbol = "UPCE"
	I25        Symbol = "I25"
)

var (
	ErrUnknownSymbol     = errors.New("unknown symbol type")
	ErrUnsupportedSymbol = errors.New("symbol type not supported by decoder")

	knownSymbols = []Symbol{
		QRCode, DataMatrix, Aztec, PDF417,
		Code128, Code93, Code39, Codabar,
		EAN13, EAN8, UPCA, UPCE, I25,
	}
)

// Detection is one symbol found in a frame.
type Detection struct {
	Data   []byte
	Symbol Symbol
}

// Decoder finds symbols in an image. An empty filter means every type the
// decoder supports. No detections and a nil error means no code is present;
// a non-nil error means decoding this image failed.
type Decoder interface {
	Decode(img image.Image, symbols []Symbol) ([]Detection, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(img image.Image, symbols []Symbol) ([]Detection, error)

func (f DecoderFunc) Decode(img image.Image, symbols []Symbol) ([]Detection, error) {
	return f(img, symbols)
}

func (s Symbol) String() string { return string(s) }

// ParseSymbol accepts zbar style names in any case, with or
// without separators ("qr-code", "EAN_13").
func ParseSymbol(name string) (Symbol, error) {
	n := strings.ToUpper(name)
	n = strings.NewReplacer("-", "", "_", "", " ", "").Replace(n)
	for _, s := range knownSymbols {
		if string(s) == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
}

func ParseSymbols(names []string) ([]Symbol, error) {
	if len(names) == 0 {
		return nil, nil
	}
	res := make([]Symbol, 0, len(names))
	for _, name := range names {
		s, err := ParseSymbol(name)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

// KnownSymbols lists every symbol name ParseSymbol accepts.
func KnownSymbols() []Symbol {
	return append([]Symbol(nil), knownSymbols...)
}

func contains(symbols []Symbol, s Symbol) bool {
	for _, v := range symbols {
		if v == s {
			return true
		}
	}
	return false
}
