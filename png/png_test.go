package png

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zanicar/stegofs"
	"github.com/zanicar/stegofs/imgcodec"
)

func writeTestCover(t *testing.T, path string, w, h int) {
	t.Helper()
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = byte(i % 256)
	}
	img := &imgcodec.Image{Width: w, Height: h, Pix: pix}
	require.NoError(t, imgcodec.Store(path, img))
}

func TestConcealRevealRoundTrip(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "cover.png")
	writeTestCover(t, coverPath, 64, 64)

	coverFile, err := os.Open(coverPath)
	require.NoError(t, err)
	defer coverFile.Close()

	want := []byte("a secret message hidden in plain sight")
	var stego bytes.Buffer
	c := New()
	require.NoError(t, c.Conceal(want, coverFile, &stego))

	var revealed bytes.Buffer
	require.NoError(t, c.Reveal(bytes.NewReader(stego.Bytes()), &revealed))
	require.Equal(t, want, revealed.Bytes())
}

func TestConcealRejectsInsufficientCapacity(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "tiny.png")
	writeTestCover(t, coverPath, 4, 4) // 48 bits of capacity

	coverFile, err := os.Open(coverPath)
	require.NoError(t, err)
	defer coverFile.Close()

	var stego bytes.Buffer
	err = New().Conceal([]byte("far too much data for a 4x4 cover image"), coverFile, &stego)
	require.Error(t, err)
	require.True(t, errors.Is(err, stegofs.ErrCapacityOverflow))
}

func TestHideExtractFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "cover.png")
	secretPath := filepath.Join(dir, "secret.txt")
	stegoPath := filepath.Join(dir, "stego.png")
	outPrefix := filepath.Join(dir, "recovered")

	writeTestCover(t, coverPath, 128, 128)
	want := []byte("the hidden file's exact bytes")
	require.NoError(t, os.WriteFile(secretPath, want, 0o644))

	c := New()
	require.NoError(t, c.HideFile(coverPath, secretPath, stegoPath))
	require.NoError(t, c.ExtractFile(stegoPath, outPrefix))

	got, err := os.ReadFile(outPrefix + ".txt")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestHideFileRejectsOversizedSecret(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "cover.png")
	secretPath := filepath.Join(dir, "secret.bin")
	stegoPath := filepath.Join(dir, "stego.png")

	writeTestCover(t, coverPath, 16, 16)
	require.NoError(t, os.WriteFile(secretPath, make([]byte, stegofs.MaxFileSize+1), 0o644))

	err := New().HideFile(coverPath, secretPath, stegoPath)
	require.Error(t, err)
	require.True(t, errors.Is(err, stegofs.ErrCapacityMax))
}

func TestHideFileRejectsInsufficientCapacity(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "cover.png")
	secretPath := filepath.Join(dir, "secret.bin")
	stegoPath := filepath.Join(dir, "stego.png")

	writeTestCover(t, coverPath, 4, 4) // 48 bits of capacity, nowhere near enough
	require.NoError(t, os.WriteFile(secretPath, []byte("too much data for this tiny cover"), 0o644))

	err := New().HideFile(coverPath, secretPath, stegoPath)
	require.Error(t, err)
	require.True(t, errors.Is(err, stegofs.ErrCapacityOverflow))
}

func TestExtractFileRejectsNonStegoImage(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "plain.png")
	writeTestCover(t, coverPath, 16, 16)

	err := New().ExtractFile(coverPath, filepath.Join(dir, "out"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidStegoImage))
}

func TestDeriveExtension(t *testing.T) {
	cases := map[string]string{
		"secret.txt":        "txt",
		"archive.tar.gz":    "gz",
		"noext":             "",
		".hidden":           "",
		"file.toolongextxx": "toolongext",
	}
	for path, want := range cases {
		if got := deriveExtension(path); got != want {
			t.Errorf("deriveExtension(%q) = %q, want %q", path, got, want)
		}
	}
}
