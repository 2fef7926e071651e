package imgcodec

import (
	"bytes"
	"testing"
)

func solidImage(w, h int, r, g, b byte) *Image {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return &Image{Width: w, Height: h, Pix: pix}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := solidImage(8, 6, 10, 20, 30)

	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width != want.Width || got.Height != want.Height {
		t.Fatalf("dims = %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	if !bytes.Equal(got.Pix, want.Pix) {
		t.Errorf("Pix round trip mismatch")
	}
}
