// Package stegofuse implements the mounted view of a stego image: the
// pathfs.FileSystem operation handlers of spec §4.5 (C5), backed by
// fsstate (C4) and bitio (C1), plus the on-unmount persistence of §4.6
// (C6).
//
// Grounded on the hanwen/go-fuse/v2 usage visible in the pack
// (beam-cloud/clip, KarpelesLab/squashfs both depend on it for an
// image-backed filesystem); the pathfs API's method names
// (GetAttr/OpenDir/Open/Create/Unlink/Truncate/Chmod/Utimens/OnMount/
// OnUnmount) line up one-for-one with spec §4.5's operation table, which
// is why pathfs was chosen over the lower-level raw FUSE API.
package stegofuse

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/nodefs"
	"github.com/hanwen/go-fuse/v2/pathfs"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/zanicar/stegofs/bitio"
	"github.com/zanicar/stegofs/container"
	"github.com/zanicar/stegofs/fsstate"
	"github.com/zanicar/stegofs/imgcodec"
)

// FileSystem is the mounted view of a single stego image. It satisfies
// pathfs.FileSystem. A single process-wide instance backs one mount, per
// spec §5 and §9's discussion of the FUSE callback ABI passing no user
// context pointer: one process mounts one image, guarded by one mutex.
type FileSystem struct {
	pathfs.FileSystem

	mu        sync.Mutex
	state     *fsstate.State
	image     *imgcodec.Image
	imagePath string
}

// NewFileSystem loads imagePath, parses any existing container (spec §4.2)
// and returns a FileSystem ready to be handed to pathfs.NewPathNodeFs. A
// missing container (ErrBadMagic) is not an error here — spec §3 treats
// an image with no magic as a valid empty container.
func NewFileSystem(imagePath string) (*FileSystem, error) {
	img, err := imgcodec.Load(imagePath)
	if err != nil {
		return nil, fmt.Errorf("stegofuse: load %s: %w", imagePath, err)
	}

	capacityBits := bitio.Capacity(img.Width, img.Height)

	var state *fsstate.State
	h, payloadStart, err := container.Parse(img.Pix, capacityBits)
	switch {
	case err == nil:
		state = fsstate.NewFromContainer(capacityBits, h, payloadStart, time.Now())
		log.Info().Str("image", imagePath).Int("payload_size", h.PayloadSize).Msg("stegofuse: mounted populated container")
	case errors.Is(err, container.ErrBadMagic):
		state = fsstate.New(capacityBits)
		log.Info().Str("image", imagePath).Msg("stegofuse: mounted empty container")
	default:
		return nil, fmt.Errorf("stegofuse: parse %s: %w", imagePath, err)
	}

	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		state:      state,
		image:      img,
		imagePath:  imagePath,
	}, nil
}

// Mount wires a FileSystem for imagePath into a FUSE server at mountPoint
// and serves until unmounted. extraFuseOpts are forwarded verbatim as raw
// mount options, per spec §6 ("forwards unrecognized trailing options to
// the underlying user-space-filesystem framework").
func Mount(imagePath, mountPoint string, extraFuseOpts []string) error {
	sfs, err := NewFileSystem(imagePath)
	if err != nil {
		return err
	}

	pathFS := pathfs.NewPathNodeFs(sfs, nil)
	conn := nodefs.NewFileSystemConnector(pathFS.Root(), nil)

	mountOpts := &fuse.MountOptions{Options: extraFuseOpts}
	server, err := fuse.NewServer(conn.RawFS(), mountPoint, mountOpts)
	if err != nil {
		return fmt.Errorf("stegofuse: mount %s: %w", mountPoint, err)
	}

	log.Info().Str("image", imagePath).Str("mount", mountPoint).Msg("stegofuse: serving")
	server.Serve()
	return nil
}

// errToStatus translates an fsstate sentinel error into a FUSE status
// code. Filesystem callbacks never panic or retry on these: they return
// the mapped code and leave state unchanged (spec §7).
func errToStatus(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, fsstate.ErrNotFound):
		return fuse.Status(unix.ENOENT)
	case errors.Is(err, fsstate.ErrNoSpace):
		return fuse.Status(unix.ENOSPC)
	case errors.Is(err, fsstate.ErrTooBig):
		return fuse.Status(unix.EFBIG)
	case errors.Is(err, fsstate.ErrExists):
		return fuse.Status(unix.EEXIST)
	default:
		log.Error().Err(err).Msg("stegofuse: unmapped error")
		return fuse.Status(unix.EIO)
	}
}

func attrFor(f *fsstate.File) *fuse.Attr {
	return &fuse.Attr{
		Mode:  unix.S_IFREG | f.Mode,
		Size:  uint64(f.Size),
		Mtime: uint64(f.Mtime.Unix()),
		Nlink: 1,
	}
}

// GetAttr implements spec §4.5 getattr.
func (fs *FileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if name == "" {
		return &fuse.Attr{Mode: unix.S_IFDIR | 0o755, Nlink: 2}, fuse.OK
	}

	entry, err := fs.state.GetAttr(name)
	if err != nil {
		return nil, errToStatus(err)
	}
	return attrFor(entry), fuse.OK
}

// OpenDir implements spec §4.5 readdir. Only the root directory ("") is
// ever listed: the filesystem is flat (spec §4.5).
func (fs *FileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if name != "" {
		return nil, errToStatus(fsstate.ErrNotFound)
	}

	names := fs.state.Readdir()
	entries := make([]fuse.DirEntry, len(names))
	for i, n := range names {
		mode := uint32(unix.S_IFREG)
		if n == "." || n == ".." {
			mode = unix.S_IFDIR
		}
		entries[i] = fuse.DirEntry{Name: n, Mode: mode}
	}
	return entries, fuse.OK
}

// Open implements spec §4.5 open.
func (fs *FileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.state.Open(name); err != nil {
		return nil, errToStatus(err)
	}
	return &file{File: nodefs.NewDefaultFile(), fs: fs, name: name}, fuse.OK
}

// Create implements spec §4.5 create.
func (fs *FileSystem) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.state.Create(name, mode, time.Now()); err != nil {
		return nil, errToStatus(err)
	}
	return &file{File: nodefs.NewDefaultFile(), fs: fs, name: name}, fuse.OK
}

// Unlink implements spec §4.5 unlink.
func (fs *FileSystem) Unlink(name string, context *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return errToStatus(fs.state.Unlink(name))
}

// Truncate implements spec §4.5 truncate.
func (fs *FileSystem) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return errToStatus(fs.state.Truncate(name, int(size)))
}

// Chmod implements spec §4.5 chmod.
func (fs *FileSystem) Chmod(name string, mode uint32, context *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return errToStatus(fs.state.Chmod(name, mode))
}

// Utimens implements spec §4.5 utimens.
func (fs *FileSystem) Utimens(name string, Atime *time.Time, Mtime *time.Time, context *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	mtime := time.Now()
	if Mtime != nil {
		mtime = *Mtime
	}
	return errToStatus(fs.state.Utimens(name, mtime))
}

// OnMount implements spec §4.5 init: by the time OnMount fires, state is
// already populated from the mount-time container parse in
// NewFileSystem, so there is nothing left to do but log.
func (fs *FileSystem) OnMount(nodeFS *pathfs.PathNodeFs) {
	log.Debug().Str("image", fs.imagePath).Msg("stegofuse: init")
}

// OnUnmount implements spec §4.5 destroy and spec §4.6 persist: flush
// dirty state back to the image file, then release the buffer and path.
// The FUSE framework offers no return path for destroy, so failures are
// only logged (spec §4.6).
func (fs *FileSystem) OnUnmount() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.persist(); err != nil {
		log.Error().Err(err).Str("image", fs.imagePath).Msg("stegofuse: persist on unmount failed")
	}
	fs.image = nil
	fs.imagePath = ""
}

// persist implements spec §4.6: a no-op when the state is clean;
// otherwise it rewrites the container header for the first directory
// entry — the on-image directory can only ever express one file, spec
// §3 — and re-encodes the image buffer to imagePath as a lossless PNG.
// The entry's extension is carried over unchanged: it was fixed at
// mount-time parse (or left empty for a file created fresh under the
// mount) and determines payloadStart. A file created under the mount sits
// at the data frontier rather than at payloadStart, so when the entry's
// Offset differs from payloadStart its bytes are copied down to
// payloadStart before the header is written.
func (fs *FileSystem) persist() error {
	if !fs.state.Dirty {
		return nil
	}

	h := container.Header{}
	if first := fs.state.FirstFile(); first != nil {
		h.PayloadSize = first.Size
		h.Extension = first.Extension
		if start := container.HeaderBits + 8*len(first.Extension); first.Offset != start {
			p := first.Offset
			data := bitio.ReadByteString(fs.image.Pix, first.Size, &p)
			first.Offset = start
			bitio.WriteByteString(fs.image.Pix, data, &start)
		}
	}

	if _, err := container.Encode(fs.image.Pix, h); err != nil {
		return fmt.Errorf("stegofuse: persist: encode header: %w", err)
	}
	if err := imgcodec.Store(fs.imagePath, fs.image); err != nil {
		return fmt.Errorf("stegofuse: persist: store image: %w", err)
	}

	fs.state.Dirty = false
	return nil
}

// String names the filesystem for pathfs debug logging.
func (fs *FileSystem) String() string {
	return fmt.Sprintf("stegofuse(%s)", fs.imagePath)
}

// file is the nodefs.File handle returned by Open/Create. Read and Write
// implement spec §4.5's per-handle contract; everything else defers to
// the FileSystem-level operations so that every mutation funnels through
// the single mount mutex.
type file struct {
	nodefs.File
	fs   *FileSystem
	name string
}

// Read implements spec §4.5 read.
func (f *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	data, err := f.fs.state.Read(f.fs.image.Pix, f.name, len(dest), int(off))
	if err != nil {
		return nil, errToStatus(err)
	}
	return fuse.ReadResultData(data), fuse.OK
}

// Write implements spec §4.5 write.
func (f *file) Write(data []byte, off int64) (uint32, fuse.Status) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	n, err := f.fs.state.Write(f.fs.image.Pix, f.name, data, int(off))
	if err != nil {
		return 0, errToStatus(err)
	}
	return uint32(n), fuse.OK
}

// GetAttr lets the kernel stat an already-open handle directly.
func (f *file) GetAttr(out *fuse.Attr) fuse.Status {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	entry, err := f.fs.state.GetAttr(f.name)
	if err != nil {
		return errToStatus(err)
	}
	*out = *attrFor(entry)
	return fuse.OK
}

// Truncate mirrors FileSystem.Truncate for an already-open handle.
func (f *file) Truncate(size uint64) fuse.Status {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	return errToStatus(f.fs.state.Truncate(f.name, int(size)))
}

// Flush is a no-op: every write already lands directly in the image
// buffer (spec §4.6 only needs to fix up the header on persist).
func (f *file) Flush() fuse.Status {
	return fuse.OK
}

// Release is a no-op: no per-handle resources are held beyond the shared
// image buffer (spec §5: "no file descriptors are held across
// callbacks").
func (f *file) Release() {}
