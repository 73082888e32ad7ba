package decoder

import (
	"errors"
	"image"
	"testing"

	"vision-common/pkg/decoder/decodertest"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want Symbol
	}{
		{"QRCODE", QRCode},
		{"qrcode", QRCode},
		{"qr-code", QRCode},
		{"EAN_13", EAN13},
		{"upca", UPCA},
		{"i25", I25},
	}
	for _, tc := range tests {
		got, err := ParseSymbol(tc.in)
		if err != nil {
			t.Fatalf("ParseSymbol(%q): %s", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseSymbol(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParseSymbol("hologram"); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestParseSymbols(t *testing.T) {
	got, err := ParseSymbols(nil)
	if err != nil || got != nil {
		t.Fatalf("ParseSymbols(nil) = %v, %v", got, err)
	}
	got, err = ParseSymbols([]string{"qrcode", "code128"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != QRCode || got[1] != Code128 {
		t.Fatalf("unexpected symbols %v", got)
	}
	if _, err = ParseSymbols([]string{"qrcode", "nope"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestZxingQRCode(t *testing.T) {
	img, err := decodertest.QRCode("Test", 240)
	if err != nil {
		t.Fatal(err)
	}

	z := NewZxing()
	for _, filter := range [][]Symbol{nil, {QRCode}, {EAN13, QRCode}} {
		dets, err := z.Decode(img, filter)
		if err != nil {
			t.Fatalf("filter %v: %s", filter, err)
		}
		if len(dets) != 1 {
			t.Fatalf("filter %v: got %d detections", filter, len(dets))
		}
		if string(dets[0].Data) != "Test" || dets[0].Symbol != QRCode {
			t.Fatalf("filter %v: unexpected detection %s/%s", filter, dets[0].Data, dets[0].Symbol)
		}
	}
}

func TestZxingFilterExcludes(t *testing.T) {
	img, err := decodertest.QRCode("Test", 240)
	if err != nil {
		t.Fatal(err)
	}
	// a checksum or format failure is acceptable, a detection is not
	dets, _ := NewZxing().Decode(img, []Symbol{EAN8})
	if len(dets) != 0 {
		t.Fatalf("expected no detections, got %v", dets)
	}
}

func TestZxingCode128(t *testing.T) {
	img, err := decodertest.Code128("VISION-42", 300, 80)
	if err != nil {
		t.Fatal(err)
	}
	dets, err := NewZxing().Decode(img, []Symbol{Code128})
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 1 || string(dets[0].Data) != "VISION-42" {
		t.Fatalf("unexpected detections %v", dets)
	}
}

func TestZxingNoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	dets, err := NewZxing().Decode(blank, []Symbol{QRCode})
	if err != nil {
		t.Fatalf("expected no error for an empty frame, got %s", err)
	}
	if len(dets) != 0 {
		t.Fatalf("expected no detections, got %v", dets)
	}
}

func TestZxingUnsupported(t *testing.T) {
	z := NewZxing()
	if z.Supports(PDF417) {
		t.Fatal("PDF417 should not be supported")
	}
	_, err := z.Decode(image.NewGray(image.Rect(0, 0, 8, 8)), []Symbol{PDF417})
	if !errors.Is(err, ErrUnsupportedSymbol) {
		t.Fatalf("expected ErrUnsupportedSymbol, got %v", err)
	}
}

func TestMock(t *testing.T) {
	m := Always("payload")
	dets, err := m.Decode(nil, []Symbol{QRCode})
	if err != nil || len(dets) != 1 || string(dets[0].Data) != "payload" {
		t.Fatalf("unexpected result %v, %v", dets, err)
	}
	if m.Calls() != 1 || len(m.LastSymbols()) != 1 {
		t.Fatalf("calls %d, last %v", m.Calls(), m.LastSymbols())
	}

	boom := errors.New("boom")
	if _, err = Failing(boom).Decode(nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
