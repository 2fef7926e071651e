// Package imgcodec adapts an arbitrary lossless (or lossy, decode-only)
// raster image to the flat H×W×3 byte buffer contract the rest of stegofs
// is built on (spec §6 "Image codec contract"). It is the pluggable
// collaborator spec §1 places out of scope for the core: any codec that
// can produce and consume that shape satisfies callers here.
//
// The pixel-normalization loop is adapted from
// github.com/zanicar/stegano/png.SteganoPNG.Conceal: RGBA() values are
// premultiplied 16-bit channels and must be downshifted to a raw uint8
// before they participate in LSB arithmetic.
package imgcodec

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decode-only: cover images may be JPEG, per spec §6
	"image/png"
	"io"
	"os"
)

// Image is a decoded H×W×3 row-major RGB buffer paired with its
// dimensions. It is the shape every other stegofs package operates on.
type Image struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*3, row-major, R,G,B per pixel
}

// Load decodes the image at path into an Image, dropping any alpha
// channel. Any registered image.Decode format (PNG, JPEG) satisfies the
// contract; payload survival on a later Store requires a lossless output
// format.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgcodec: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode is Load's reader-based counterpart.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imgcodec: decode: %w", err)
	}

	bounds := src.Bounds()
	width := bounds.Max.X - bounds.Min.X
	height := bounds.Max.Y - bounds.Min.Y
	pix := make([]byte, width*height*3)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			// RGBA() values are premultiplied 16-bit channels; normalize
			// to a raw data byte the same way the teacher's Conceal does.
			pix[i] = uint8(r / 256)
			pix[i+1] = uint8(g / 256)
			pix[i+2] = uint8(b / 256)
			i += 3
		}
	}

	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// Store encodes img as a lossless PNG at path, row stride 3*Width.
func Store(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imgcodec: create %s: %w", path, err)
	}
	defer f.Close()
	if err := Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Encode is Store's writer-based counterpart.
func Encode(w io.Writer, img *Image) error {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	i := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.Set(x, y, color.NRGBA{
				R: img.Pix[i],
				G: img.Pix[i+1],
				B: img.Pix[i+2],
				A: 255,
			})
			i += 3
		}
	}
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("imgcodec: encode: %w", err)
	}
	return nil
}
