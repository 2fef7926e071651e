package container

import (
	"errors"
	"testing"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	d := make([]byte, 1024)
	h := Header{PayloadSize: 5, Extension: "txt"}

	payloadStart, err := Encode(d, h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, gotStart, err := Parse(d, len(d))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != h {
		t.Errorf("Parse = %+v, want %+v", got, h)
	}
	if gotStart != payloadStart {
		t.Errorf("payloadStart = %d, want %d", gotStart, payloadStart)
	}
}

func TestEncodeRejectsOverlongExtension(t *testing.T) {
	d := make([]byte, 1024)
	_, err := Encode(d, Header{PayloadSize: 0, Extension: "toolongextension"})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestParseBadMagic(t *testing.T) {
	d := make([]byte, 1024) // all zero bytes, no magic written
	_, _, err := Parse(d, len(d))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestParseRejectsOversizedPayload(t *testing.T) {
	d := make([]byte, 256) // tiny image, 256 bits of capacity (one bit per byte)
	h := Header{PayloadSize: 1 << 20, Extension: ""}

	// Encode doesn't itself check capacity, only Parse does.
	if _, err := Encode(d, h); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, _, err := Parse(d, len(d))
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}
