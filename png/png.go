// Copyright 2018 Zanicar. All rights reserved.
// Utilizes a BSD-3 license. Refer to the included LICENSE file for details.

// Package png provides the one-shot hide/extract implementation (spec §4.3,
// §4.4): load a cover image, embed a single payload and its extension per
// the container format, and write a lossless PNG stego image; and the
// reverse. It accepts both JPEG and PNG images as input, as the teacher
// package of the same name does.
package png

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zanicar/stegofs"
	"github.com/zanicar/stegofs/bitio"
	"github.com/zanicar/stegofs/container"
	"github.com/zanicar/stegofs/imgcodec"
)

var (
	_ stegofs.Stegano = &Codec{}
)

// ErrInvalidStegoImage is returned by Reveal/ExtractFile when the source
// image carries no valid container magic.
var ErrInvalidStegoImage = errors.New("png: invalid stego image")

// Codec implements the Stegano interface for PNG image steganograms using
// the flat bitio/container scheme (spec §3, §4.1, §4.2).
type Codec struct{}

// New returns a pointer to a new instance of Codec that is ready to use.
func New() *Codec {
	return &Codec{}
}

// Conceal embeds data (with no extension) into the image decoded from
// reader and writes a stego PNG to writer. It returns ErrCapacityMax or
// ErrCapacityOverflow rather than silently truncating data that does not
// fit, matching the Concealer contract's capacity sentinels.
func (c *Codec) Conceal(data []byte, r io.Reader, w io.Writer) error {
	if len(data) > stegofs.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", stegofs.ErrCapacityMax, len(data), stegofs.MaxFileSize)
	}

	img, err := imgcodec.Decode(r)
	if err != nil {
		return err
	}

	capacityBits := bitio.Capacity(img.Width, img.Height)
	required := container.HeaderBits + 8*len(data)
	if required > capacityBits-stegofs.ReserveBits {
		return fmt.Errorf("%w: required %d bits, available %d bits", stegofs.ErrCapacityOverflow, required, capacityBits-stegofs.ReserveBits)
	}

	if err := embed(img, data, ""); err != nil {
		return err
	}
	return imgcodec.Encode(w, img)
}

// Reveal uncovers the payload from the image decoded from reader and
// writes it to writer, discarding any extension information.
func (c *Codec) Reveal(r io.Reader, w io.Writer) error {
	img, err := imgcodec.Decode(r)
	if err != nil {
		return err
	}
	h, payloadStart, err := container.Parse(img.Pix, bitio.Capacity(img.Width, img.Height))
	if err != nil {
		if errors.Is(err, container.ErrBadMagic) {
			return fmt.Errorf("%w: %v", ErrInvalidStegoImage, err)
		}
		return err
	}
	payload := bitio.ReadByteString(img.Pix, h.PayloadSize, &payloadStart)
	_, err = w.Write(payload)
	return err
}

// HideFile implements spec §4.3: load coverImagePath, read secretFilePath,
// embed it (with its derived extension) into the cover, and write a
// lossless PNG stego image to outputPath.
func (c *Codec) HideFile(coverImagePath, secretFilePath, outputPath string) error {
	log.Info().Str("cover", coverImagePath).Msg("png: loading cover image")
	img, err := imgcodec.Load(coverImagePath)
	if err != nil {
		return fmt.Errorf("image-load: %w", err)
	}
	log.Debug().Int("width", img.Width).Int("height", img.Height).Msg("png: cover image loaded")

	data, err := os.ReadFile(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret-open: %w", err)
	}
	log.Debug().Int("size", len(data)).Msg("png: secret file read")

	if len(data) > stegofs.MaxFileSize {
		return fmt.Errorf("too-large: %w: %d bytes (max %d)", stegofs.ErrCapacityMax, len(data), stegofs.MaxFileSize)
	}

	ext := deriveExtension(secretFilePath)

	capacityBits := bitio.Capacity(img.Width, img.Height)
	required := container.HeaderBits + 8*len(ext) + 8*len(data)
	if required > capacityBits-stegofs.ReserveBits {
		return fmt.Errorf("too-large: %w: required %d bits, available %d bits", stegofs.ErrCapacityOverflow, required, capacityBits-stegofs.ReserveBits)
	}

	if err := embed(img, data, ext); err != nil {
		return err
	}

	log.Info().Str("output", outputPath).Msg("png: writing stego image")
	if err := imgcodec.Store(outputPath, img); err != nil {
		return fmt.Errorf("image-write: %w", err)
	}
	log.Info().Int("bytes", len(data)).Msg("png: hide complete")
	return nil
}

// ExtractFile implements spec §4.4: decode stegoImagePath, parse its
// container, and write the recovered payload to outputPrefix (plus
// ".<ext>" when an extension was recorded).
func (c *Codec) ExtractFile(stegoImagePath, outputPrefix string) error {
	log.Info().Str("stego", stegoImagePath).Msg("png: loading stego image")
	img, err := imgcodec.Load(stegoImagePath)
	if err != nil {
		return fmt.Errorf("image-load: %w", err)
	}

	h, payloadStart, err := container.Parse(img.Pix, bitio.Capacity(img.Width, img.Height))
	if err != nil {
		if errors.Is(err, container.ErrBadMagic) {
			return fmt.Errorf("%w: %v", ErrInvalidStegoImage, err)
		}
		return fmt.Errorf("format-error: %w", err)
	}
	log.Debug().Int("payload_size", h.PayloadSize).Str("ext", h.Extension).Msg("png: container parsed")

	payload := bitio.ReadByteString(img.Pix, h.PayloadSize, &payloadStart)

	outPath := outputPrefix
	if h.Extension != "" {
		outPath = outputPrefix + "." + h.Extension
	}

	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("image-write: %w", err)
	}
	log.Info().Str("output", outPath).Int("bytes", len(payload)).Msg("png: extract complete")
	return nil
}

func embed(img *imgcodec.Image, data []byte, ext string) error {
	h := container.Header{PayloadSize: len(data), Extension: ext}
	payloadStart, err := container.Encode(img.Pix, h)
	if err != nil {
		return err
	}
	bitio.WriteByteString(img.Pix, data, &payloadStart)
	return nil
}

// deriveExtension returns the substring of path after the last '.',
// truncated to container.MaxExtLength bytes. If there is no dot, or the
// only dot is the first character of path, it returns "" (spec §4.3).
func deriveExtension(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx <= 0 {
		return ""
	}
	ext := path[idx+1:]
	if len(ext) > container.MaxExtLength {
		ext = ext[:container.MaxExtLength]
	}
	return ext
}
