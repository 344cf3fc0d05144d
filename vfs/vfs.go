package vfs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// DefaultMaxOpenFiles and DefaultMaxOpenDirs size the fixed-capacity
// handle pools new VFS instances get unless told otherwise.
const (
	DefaultMaxOpenFiles = 32
	DefaultMaxOpenDirs  = 16
)

// VFS is the dispatch layer: path normalization, mount-point routing,
// the open-handle pools, and operation-table dispatch to whichever
// backend (fat12, ramdisk) owns the resolved mount.
type VFS struct {
	cwd    string
	mounts mountTable
	pool   *handlePool
}

// New constructs an empty VFS with default-sized handle pools and cwd
// "/". No mounts are registered yet.
func New() *VFS {
	return &VFS{
		cwd:  "/",
		pool: newHandlePool(DefaultMaxOpenFiles, DefaultMaxOpenDirs),
	}
}

// Mount normalizes path and registers fs at it.
func (v *VFS) Mount(path string, fs FileSystem, readOnly bool) (*Mount, error) {
	norm, err := Normalize(path, v.cwd)
	if err != nil {
		return nil, err
	}
	return v.mounts.add(norm, fs, readOnly)
}

// Unmount tears down the mount at path, forcibly closing every handle
// still open on it first.
func (v *VFS) Unmount(path string) error {
	norm, err := Normalize(path, v.cwd)
	if err != nil {
		return err
	}
	m, err := v.mounts.remove(norm)
	if err != nil {
		return err
	}
	v.pool.closeMount(m)
	return nil
}

// resolve normalizes path, picks its mount, and returns the path
// relative to that mount along with the mount itself.
func (v *VFS) resolve(path string) (*Mount, string, error) {
	norm, err := Normalize(path, v.cwd)
	if err != nil {
		return nil, "", err
	}
	return v.mounts.resolve(norm)
}

// Stat resolves path and returns its metadata.
func (v *VFS) Stat(path string) (Stat, error) {
	m, rel, err := v.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	if rel == "" {
		return Stat{Type: TypeDirectory}, nil
	}
	return m.FS.Stat(rel)
}

// Readdir resolves path to a directory and lists it in caller-facing
// Node form (no handle allocated — see Opendir for the cursor-based
// variant used by the directory handle pool).
func (v *VFS) Readdir(path string) ([]Node, error) {
	m, rel, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	return m.FS.Readdir(rel)
}

// Mkdir resolves path's parent mount and asks it to create a directory.
func (v *VFS) Mkdir(path string) (Node, error) {
	m, rel, err := v.resolve(path)
	if err != nil {
		return Node{}, err
	}
	if m.ReadOnly {
		return Node{}, coreerrors.ErrReadOnly
	}
	return m.FS.Mkdir(rel)
}

// Rmdir resolves path and asks its mount to remove the (empty)
// directory.
func (v *VFS) Rmdir(path string) error {
	m, rel, err := v.resolve(path)
	if err != nil {
		return err
	}
	if m.ReadOnly {
		return coreerrors.ErrReadOnly
	}
	return m.FS.Rmdir(rel)
}

// Unlink resolves path and asks its mount to remove the file. Per the
// delete-restore-impossibility invariant, a subsequent Open(path,
// RDONLY) must fail NotFound.
func (v *VFS) Unlink(path string) error {
	m, rel, err := v.resolve(path)
	if err != nil {
		return err
	}
	if m.ReadOnly {
		return coreerrors.ErrReadOnly
	}
	return m.FS.Unlink(rel)
}

// Rename changes a file or directory's name within its current
// directory.
func (v *VFS) Rename(path, newName string) error {
	m, rel, err := v.resolve(path)
	if err != nil {
		return err
	}
	if m.ReadOnly {
		return coreerrors.ErrReadOnly
	}
	return m.FS.Rename(rel, newName)
}

// Open implements the §4.D Open sequence: normalize, find mount,
// allocate a file slot, look up (creating if CREAT is set and the
// lookup missed), position the cursor, and mark the slot in use.
func (v *VFS) Open(path string, flags int) (FileHandle, error) {
	m, rel, err := v.resolve(path)
	if err != nil {
		return FileHandle{}, err
	}

	if flags&OWRONLY != 0 && m.ReadOnly {
		return FileHandle{}, coreerrors.ErrReadOnly
	}

	node, err := m.FS.Lookup(rel)
	if err != nil {
		if err == coreerrors.ErrNotFound && flags&OCREAT != 0 {
			created, cerr := m.FS.Create(rel)
			if cerr != nil {
				return FileHandle{}, cerr
			}
			node = created
		} else {
			return FileHandle{}, err
		}
	} else if node.IsDirectory() {
		return FileHandle{}, coreerrors.ErrInvalidArgument.WithMessage("cannot open a directory as a file")
	}

	file, err := m.FS.OpenFile(rel)
	if err != nil {
		return FileHandle{}, err
	}

	if flags&OAPPEND != 0 {
		if err := file.Seek(file.Size()); err != nil {
			return FileHandle{}, err
		}
	}

	return v.pool.allocFile(m, node, file, flags)
}

// Read reads from an open file handle.
func (v *VFS) Read(h FileHandle, buf []byte) (int, error) {
	slot, err := v.pool.getFile(h)
	if err != nil {
		return 0, err
	}
	// A write-only handle is the only case to reject here; ORDWR also sets
	// the OWRONLY bit, so it must stay readable.
	if slot.flags&OWRONLY != 0 && slot.flags&ORDWR != ORDWR {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("file not opened for reading")
	}
	return slot.file.Read(buf)
}

// Write writes to an open file handle.
func (v *VFS) Write(h FileHandle, data []byte) (int, error) {
	slot, err := v.pool.getFile(h)
	if err != nil {
		return 0, err
	}
	// OWRONLY's bit is set for both OWRONLY and ORDWR, never for ORDONLY.
	if slot.flags&OWRONLY == 0 {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("file not opened for writing")
	}
	return slot.file.Write(data)
}

// Seek repositions an open file handle. whence follows SeekSet/Cur/End.
func (v *VFS) Seek(h FileHandle, offset int64, whence int) (uint32, error) {
	slot, err := v.pool.getFile(h)
	if err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = int64(slot.file.Position()) + offset
	case SeekEnd:
		target = int64(slot.file.Size()) + offset
	default:
		return 0, coreerrors.ErrInvalidArgument.WithMessage("bad whence")
	}
	if target < 0 {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("seek before start of file")
	}
	if err := slot.file.Seek(uint32(target)); err != nil {
		return 0, err
	}
	return slot.file.Position(), nil
}

// Close flushes and releases an open file handle.
func (v *VFS) Close(h FileHandle) error {
	slot, err := v.pool.getFile(h)
	if err != nil {
		return err
	}
	closeErr := slot.file.Close()
	if relErr := v.pool.releaseFile(h); relErr != nil {
		return relErr
	}
	return closeErr
}

// Opendir resolves path to a directory, snapshots its entries, and
// returns a cursor handle.
func (v *VFS) Opendir(path string) (DirHandle, error) {
	m, rel, err := v.resolve(path)
	if err != nil {
		return DirHandle{}, err
	}
	entries, err := m.FS.Readdir(rel)
	if err != nil {
		return DirHandle{}, err
	}
	return v.pool.allocDir(m, Node{Name: rel, Type: TypeDirectory}, entries)
}

// Readdirnext returns the next entry from an open directory handle, and
// ok=false once the cursor is exhausted.
func (v *VFS) Readdirnext(h DirHandle) (Node, bool, error) {
	slot, err := v.pool.getDir(h)
	if err != nil {
		return Node{}, false, err
	}
	if slot.cursor >= len(slot.entries) {
		return Node{}, false, nil
	}
	n := slot.entries[slot.cursor]
	slot.cursor++
	return n, true, nil
}

// Rewinddir resets an open directory handle's cursor to the start.
func (v *VFS) Rewinddir(h DirHandle) error {
	slot, err := v.pool.getDir(h)
	if err != nil {
		return err
	}
	slot.cursor = 0
	return nil
}

// Closedir releases an open directory handle.
func (v *VFS) Closedir(h DirHandle) error {
	return v.pool.releaseDir(h)
}

// SyncAll iterates every mount and calls Sync on any backend that
// exposes one. Never fails hard — a backend without Sync is skipped, and
// every mount is attempted regardless of earlier failures; all failures
// are aggregated and returned together via go-multierror.
func (v *VFS) SyncAll() error {
	var result *multierror.Error
	for _, m := range v.mounts.mounts {
		if s, ok := m.FS.(Syncer); ok {
			if err := s.Sync(); err != nil {
				result = multierror.Append(result, fmt.Errorf("syncing %q: %w", m.Path, err))
			}
		}
	}
	return result.ErrorOrNil()
}
