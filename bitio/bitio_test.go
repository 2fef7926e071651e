package bitio

import "testing"

func TestEmbedExtractRoundTrip(t *testing.T) {
	d := make([]byte, 8)
	Embed(d, 0, 1)
	Embed(d, 1, 0)
	Embed(d, 7, 1)

	if got := Extract(d, 0); got != 1 {
		t.Errorf("bit 0 = %d, want 1", got)
	}
	if got := Extract(d, 1); got != 0 {
		t.Errorf("bit 1 = %d, want 0", got)
	}
	if got := Extract(d, 7); got != 1 {
		t.Errorf("bit 7 = %d, want 1", got)
	}
}

func TestEmbedPreservesUpperBits(t *testing.T) {
	d := []byte{0xFE} // 11111110
	Embed(d, 0, 1)
	if d[0] != 0xFF {
		t.Errorf("d[0] = %#x, want 0xff", d[0])
	}
}

func TestOutOfRangeIsNoOp(t *testing.T) {
	d := make([]byte, 2)
	Embed(d, 100, 1) // should not panic
	if got := Extract(d, 100); got != 0 {
		t.Errorf("out-of-range extract = %d, want 0", got)
	}
}

func TestWriteReadBitsRoundTrip(t *testing.T) {
	d := make([]byte, 16)
	p := 0
	WriteBits(d, 0xABCD, 16, &p)
	if p != 16 {
		t.Fatalf("p after write = %d, want 16", p)
	}

	p = 0
	got := ReadBits(d, 16, &p)
	if got != 0xABCD {
		t.Errorf("ReadBits = %#x, want 0xabcd", got)
	}
	if p != 16 {
		t.Fatalf("p after read = %d, want 16", p)
	}
}

func TestWriteReadByteStringRoundTrip(t *testing.T) {
	d := make([]byte, 96)
	want := []byte("hello, stego")

	p := 0
	WriteByteString(d, want, &p)
	if p != 8*len(want) {
		t.Fatalf("p after write = %d, want %d", p, 8*len(want))
	}

	p = 0
	got := ReadByteString(d, len(want), &p)
	if string(got) != string(want) {
		t.Errorf("ReadByteString = %q, want %q", got, want)
	}
}

func TestCapacity(t *testing.T) {
	if got := Capacity(4, 3); got != 36 {
		t.Errorf("Capacity(4,3) = %d, want 36", got)
	}
}
