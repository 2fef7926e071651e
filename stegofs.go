// Copyright 2018 Zanicar. All rights reserved.
// Utilizes a BSD-3 license. Refer to the included LICENSE file for details.

// Package stegofs provides a simple interface for steganography
// implementations and the sentinel errors shared across the codec,
// container and filesystem layers.
package stegofs

import (
	"errors"
	"io"
)

// ErrCapacityMax means that a conceal received a length of bytes that exceeds
// its maximum capacity.
var ErrCapacityMax = errors.New("maximum capacity exceeded")

// ErrCapacityOverflow means that a conceal requires greater concealment capacity
// on the Reader to conceal the given length of bytes.
var ErrCapacityOverflow = errors.New("concealment capacity exceeded")

// Stegano is the interface that groups the basic Conceal and Reveal methods.
type Stegano interface {
	Concealer
	Revealer
}

// Concealer is the interface that wraps the basic Conceal method.
//
// Conceal conceals data into the bytes read from reader and writes
// the result to writer.
// Conceal must not modify the data slice, even temporarily.
//
// Implementations must not retain data.
type Concealer interface {
	Conceal(data []byte, reader io.Reader, writer io.Writer) error
}

// Revealer is the interface that wraps the basic Reveal method.
//
// Reveal reveals the underlying data from reader and writes it to writer.
type Revealer interface {
	Reveal(reader io.Reader, writer io.Writer) error
}

// Constants shared by the one-shot codec (png) and the mounted filesystem
// (fsstate), per spec §6.
const (
	// MaxFileSize is the largest payload or mounted-file size stegofs will
	// accept, in bytes.
	MaxFileSize = 10 * 1024 * 1024

	// MaxFiles is the largest number of directory entries a mounted
	// container may hold at once.
	MaxFiles = 256

	// MaxFilenameLength is the largest name length, including the
	// trailing NUL, a directory entry may carry.
	MaxFilenameLength = 255

	// ReserveBits is the bit-capacity slack a one-shot hide must leave
	// unused beyond the header and payload, per spec §4.3 step 2.
	ReserveBits = 512
)
