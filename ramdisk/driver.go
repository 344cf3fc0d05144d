package ramdisk

import (
	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/retrofuture-os/coreos/vfs"
)

// Driver adapts a RAMDisk to vfs.FileSystem. The namespace is flat, so
// every path the VFS hands in after mount-relative resolution is taken
// as a bare name — leading slashes are stripped, and anything with an
// embedded "/" names a directory that doesn't exist on this backend.
type Driver struct {
	disk *RAMDisk
}

// NewDriver wraps a RAMDisk for use as a VFS backend.
func NewDriver(disk *RAMDisk) *Driver {
	return &Driver{disk: disk}
}

func bareName(path string) (string, error) {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return "", coreerrors.ErrNotADirectory.WithMessage("ramdisk has no directory hierarchy")
		}
	}
	return path, nil
}

func statToNode(s Stat) vfs.Node {
	t := vfs.TypeFile
	if s.IsDirectory() {
		t = vfs.TypeDirectory
	}
	return vfs.Node{Name: s.Name, Type: t, Size: int64(s.Size)}
}

func (d *Driver) Lookup(path string) (vfs.Node, error) {
	if path == "" || path == "/" {
		return vfs.Node{Type: vfs.TypeDirectory}, nil
	}
	name, err := bareName(path)
	if err != nil {
		return vfs.Node{}, err
	}
	s, err := d.disk.Stat(name)
	if err != nil {
		return vfs.Node{}, err
	}
	return statToNode(s), nil
}

// Readdir only accepts the root, since there is nothing below it.
func (d *Driver) Readdir(path string) ([]vfs.Node, error) {
	if path != "" && path != "/" {
		return nil, coreerrors.ErrNotADirectory.WithMessage("ramdisk has no directory hierarchy")
	}
	list := d.disk.List()
	nodes := make([]vfs.Node, len(list))
	for i, s := range list {
		nodes[i] = statToNode(s)
	}
	return nodes, nil
}

func (d *Driver) Stat(path string) (vfs.Stat, error) {
	name, err := bareName(path)
	if err != nil {
		return vfs.Stat{}, err
	}
	s, err := d.disk.Stat(name)
	if err != nil {
		return vfs.Stat{}, err
	}
	mode := uint32(0o644)
	if s.Flags&AttrReadOnly != 0 {
		mode = 0o444
	}
	t := vfs.TypeFile
	if s.IsDirectory() {
		t = vfs.TypeDirectory
	}
	return vfs.Stat{Size: int64(s.Size), Type: t, Mode: mode}, nil
}

func (d *Driver) Create(path string) (vfs.Node, error) {
	name, err := bareName(path)
	if err != nil {
		return vfs.Node{}, err
	}
	if err := d.disk.Create(name); err != nil {
		return vfs.Node{}, err
	}
	s, err := d.disk.Stat(name)
	if err != nil {
		return vfs.Node{}, err
	}
	return statToNode(s), nil
}

// Mkdir is rejected: this backend has no directory hierarchy to create
// one within.
func (d *Driver) Mkdir(path string) (vfs.Node, error) {
	return vfs.Node{}, coreerrors.ErrNotADirectory.WithMessage("ramdisk has no directory hierarchy")
}

func (d *Driver) Unlink(path string) error {
	name, err := bareName(path)
	if err != nil {
		return err
	}
	return d.disk.Delete(name)
}

// Rmdir always fails NotADirectory: nothing created by this backend is
// ever a directory.
func (d *Driver) Rmdir(path string) error {
	return coreerrors.ErrNotADirectory.WithMessage("ramdisk has no directory hierarchy")
}

func (d *Driver) Rename(path, newName string) error {
	name, err := bareName(path)
	if err != nil {
		return err
	}
	return d.disk.Rename(name, newName)
}

func (d *Driver) OpenFile(path string) (vfs.File, error) {
	name, err := bareName(path)
	if err != nil {
		return nil, err
	}
	return d.disk.Open(name, true, false)
}

// Statfs satisfies vfs.StatfsProvider.
func (d *Driver) Statfs() (vfs.FSStat, error) {
	return vfs.FSStat{
		FreeBytes: int64(d.disk.FreeBytes()),
		BlockSize: ArenaRoundUp,
	}, nil
}
