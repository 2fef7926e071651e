// Package fsstate implements the in-memory directory/file table described
// in spec §3 and the operation contracts of spec §4.5 (C4+C5, minus the
// FUSE wiring itself, which lives in stegofuse). Keeping this layer free
// of any FUSE import keeps the "hard part" of the system — scatter-write
// position mapping, capacity accounting, concurrent mutation — unit
// testable without a kernel mount.
//
// Bit addressing: spec §9 documents a legacy dual-offset bug (write used a
// fixed METADATA_START_OFFSET, read used file.offset). This implementation
// takes the clean-slate option the spec recommends: every operation
// addresses a file's data region via file.Offset alone. MetadataHeaderBits
// only seeds the initial total data size of a freshly mounted, empty
// container, so that file data placed right after mount does not collide
// with the header space persist() later reserves.
//
// Allocation is a simple bump allocator: Create hands out the current
// TotalDataSize as the new file's Offset, and Write advances TotalDataSize
// past any byte a file has actually used. This keeps concurrently-live
// files from overlapping as long as each file is written before (or as)
// the next is created; creating several zero-length files before writing
// any of them is not a supported ordering, matching the single-mutex,
// no-compaction model spec §3/§9 describes.
package fsstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/zanicar/stegofs"
	"github.com/zanicar/stegofs/bitio"
	"github.com/zanicar/stegofs/container"
)

// Sentinel errors surfaced by operations, translated to FUSE status codes
// at the stegofuse boundary.
var (
	ErrNotFound = errors.New("fsstate: not found")
	ErrNoSpace  = errors.New("fsstate: directory full")
	ErrTooBig   = errors.New("fsstate: file too big")
	ErrExists   = errors.New("fsstate: already exists")
)

// MetadataHeaderBits is the bit width of a container's fixed-width prefix
// (magic + payload_size + ext_length), reserved as the starting data
// frontier for a freshly mounted, header-less image. It replaces the
// legacy METADATA_START_OFFSET constant, which spec §9 calls obsolete for
// a clean-slate implementation.
const MetadataHeaderBits = container.HeaderBits

// File is one directory entry: POSIX-ish metadata plus the bit address of
// its data region within the backing image.
type File struct {
	Name      string
	Size      int // bytes
	Offset    int // bit address of the first byte of file data
	Extension string
	Mtime     time.Time
	Mode      uint32
}

// State is the mounted filesystem's entire in-memory view of one image:
// the directory table, the capacity accounting, and the dirty flag that
// gates persistence (C6).
type State struct {
	Files         []*File
	TotalDataSize int // bit address of the first free bit after the last file
	Dirty         bool

	CapacityBits int // W*H*3 of the backing image
}

// New creates an empty directory table sized for an image of the given
// capacity, with the data frontier seeded past the reserved header space.
func New(capacityBits int) *State {
	return &State{
		CapacityBits:  capacityBits,
		TotalDataSize: MetadataHeaderBits,
	}
}

// NewFromContainer seeds the directory table from a parsed container: when
// payload_size > 0, exactly one derived file named "hidden_file" is
// exposed, per spec §3 ("the directory ... is derived, not stored").
func NewFromContainer(capacityBits int, h container.Header, payloadStart int, mtime time.Time) *State {
	s := New(capacityBits)
	if h.PayloadSize > 0 {
		s.Files = append(s.Files, &File{
			Name:      "hidden_file",
			Size:      h.PayloadSize,
			Offset:    payloadStart,
			Extension: h.Extension,
			Mtime:     mtime,
			Mode:      0o644,
		})
		s.TotalDataSize = payloadStart + 8*h.PayloadSize
	}
	return s
}

// capacityBytes returns the state's total byte capacity, header overhead
// included (spec §8: "Σ file.size ≤ C_bytes − 9").
func (s *State) capacityBytes() int {
	return s.CapacityBits / 8
}

func (s *State) find(name string) (int, *File) {
	for i, f := range s.Files {
		if f.Name == name {
			return i, f
		}
	}
	return -1, nil
}

// GetAttr returns the entry for name, or ErrNotFound.
func (s *State) GetAttr(name string) (*File, error) {
	_, f := s.find(name)
	if f == nil {
		return nil, fmt.Errorf("getattr %s: %w", name, ErrNotFound)
	}
	return f, nil
}

// Readdir returns ".", "..", then every entry's name in stored order
// (spec §4.5, §8: "For any mount of image I with no prior container,
// readdir yields only . and ..").
func (s *State) Readdir() []string {
	names := make([]string, 2+len(s.Files))
	names[0] = "."
	names[1] = ".."
	for i, f := range s.Files {
		names[2+i] = f.Name
	}
	return names
}

// Open reports whether name exists.
func (s *State) Open(name string) (*File, error) {
	return s.GetAttr(name)
}

// Create appends a new zero-length entry for name at the current data
// frontier. Fails with ErrNoSpace once MAX_FILES entries exist, and with
// ErrExists if name is already present (directory names must be unique,
// invariant 3).
func (s *State) Create(name string, mode uint32, now time.Time) (*File, error) {
	if _, f := s.find(name); f != nil {
		return nil, fmt.Errorf("create %s: %w", name, ErrExists)
	}
	if len(s.Files) >= stegofs.MaxFiles {
		return nil, fmt.Errorf("create %s: %w", name, ErrNoSpace)
	}
	if len(name)+1 > stegofs.MaxFilenameLength {
		return nil, fmt.Errorf("create %s: name too long", name)
	}

	f := &File{
		Name:   name,
		Size:   0,
		Offset: s.TotalDataSize,
		Mtime:  now,
		Mode:   mode,
	}
	s.Files = append(s.Files, f)
	s.Dirty = true
	return f, nil
}

// Write embeds len(buf) bytes into name's data region at byte offset off,
// growing the file's recorded size to max(size, off+len(buf)) (spec §4.5).
// It returns the number of bytes written.
func (s *State) Write(image []byte, name string, buf []byte, off int) (int, error) {
	_, f := s.find(name)
	if f == nil {
		return 0, fmt.Errorf("write %s: %w", name, ErrNotFound)
	}

	newSize := off + len(buf)
	if newSize > f.Size {
		if newSize > stegofs.MaxFileSize {
			return 0, fmt.Errorf("write %s: %w", name, ErrTooBig)
		}
		if f.Offset/8+newSize > s.capacityBytes() {
			return 0, fmt.Errorf("write %s: %w", name, ErrNoSpace)
		}
		f.Size = newSize

		// Keep the data frontier past every byte any file has actually
		// used, so a later Create never hands out an offset that
		// overlaps this file's (still growing) data region.
		if frontier := f.Offset + 8*newSize; frontier > s.TotalDataSize {
			s.TotalDataSize = frontier
		}
	}

	p := f.Offset + 8*off
	bitio.WriteByteString(image, buf, &p)
	f.Mtime = time.Now()
	s.Dirty = true
	return len(buf), nil
}

// Read returns up to size bytes of name's data starting at byte offset
// off, clamped to the file's recorded size (spec §4.5).
func (s *State) Read(image []byte, name string, size, off int) ([]byte, error) {
	_, f := s.find(name)
	if f == nil {
		return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if off >= f.Size {
		return []byte{}, nil
	}
	if off+size > f.Size {
		size = f.Size - off
	}

	p := f.Offset + 8*off
	return bitio.ReadByteString(image, size, &p), nil
}

// Unlink removes name, shifting later entries down to preserve order. The
// vacated bit region is not reclaimed (spec §9's documented limitation).
func (s *State) Unlink(name string) error {
	i, f := s.find(name)
	if f == nil {
		return fmt.Errorf("unlink %s: %w", name, ErrNotFound)
	}
	s.Files = append(s.Files[:i], s.Files[i+1:]...)
	s.Dirty = true
	return nil
}

// Truncate sets name's recorded size to n without zeroing any bits.
func (s *State) Truncate(name string, n int) error {
	_, f := s.find(name)
	if f == nil {
		return fmt.Errorf("truncate %s: %w", name, ErrNotFound)
	}
	if n > stegofs.MaxFileSize {
		return fmt.Errorf("truncate %s: %w", name, ErrTooBig)
	}
	f.Size = n
	s.Dirty = true
	return nil
}

// Chmod sets name's mode bits.
func (s *State) Chmod(name string, mode uint32) error {
	_, f := s.find(name)
	if f == nil {
		return fmt.Errorf("chmod %s: %w", name, ErrNotFound)
	}
	f.Mode = mode
	s.Dirty = true
	return nil
}

// Utimens sets name's modification time.
func (s *State) Utimens(name string, mtime time.Time) error {
	_, f := s.find(name)
	if f == nil {
		return fmt.Errorf("utimens %s: %w", name, ErrNotFound)
	}
	f.Mtime = mtime
	s.Dirty = true
	return nil
}

// FirstFile returns the earliest-created directory entry, or nil if the
// directory is empty. Persistence (C6) can only express one file on the
// image, and always expresses this one (spec §4.6).
func (s *State) FirstFile() *File {
	if len(s.Files) == 0 {
		return nil
	}
	return s.Files[0]
}
