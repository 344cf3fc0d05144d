package fat12

import (
	"github.com/retrofuture-os/coreos/vfs"
)

// Driver adapts a mounted FileSystem to vfs.FileSystem, translating
// between this package's Dirent/ClusterID vocabulary and the VFS's
// generic Node/Stat types. *File already satisfies vfs.File directly —
// Read/Write/Seek/Flush/Close/Size/Position line up verb for verb, so no
// adapter is needed on that side.
type Driver struct {
	fs *FileSystem
}

// NewDriver wraps an already-mounted FileSystem for use as a VFS backend.
func NewDriver(fs *FileSystem) *Driver {
	return &Driver{fs: fs}
}

func direntToNode(d Dirent) vfs.Node {
	t := vfs.TypeFile
	if d.IsDirectory() {
		t = vfs.TypeDirectory
	}
	return vfs.Node{
		Name:  d.Name,
		Type:  t,
		Size:  int64(d.Size),
		Inode: uint64(d.FirstCluster),
	}
}

// fixedMode is the cosmetic permission value FAT12 stat fills in, since
// the on-disk format has no real permission bits beyond read-only.
const fixedMode = 0o755

func direntToStat(fs *FileSystem, d Dirent) vfs.Stat {
	t := vfs.TypeFile
	if d.IsDirectory() {
		t = vfs.TypeDirectory
	}
	return vfs.Stat{
		Size:      int64(d.Size),
		Type:      t,
		Mode:      fixedMode,
		Atime:     d.AccessedAt.Unix(),
		Mtime:     d.ModifiedAt.Unix(),
		Ctime:     d.CreatedAt.Unix(),
		BlockSize: int64(fs.Boot.BytesPerCluster),
	}
}

func (d *Driver) Lookup(path string) (vfs.Node, error) {
	dirent, err := d.fs.Stat(path)
	if err != nil {
		return vfs.Node{}, err
	}
	return direntToNode(dirent), nil
}

func (d *Driver) Readdir(path string) ([]vfs.Node, error) {
	entries, err := d.fs.Readdir(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]vfs.Node, len(entries))
	for i, e := range entries {
		nodes[i] = direntToNode(e)
	}
	return nodes, nil
}

func (d *Driver) Stat(path string) (vfs.Stat, error) {
	dirent, err := d.fs.Stat(path)
	if err != nil {
		return vfs.Stat{}, err
	}
	return direntToStat(d.fs, dirent), nil
}

func (d *Driver) Create(path string) (vfs.Node, error) {
	dirent, err := d.fs.Create(path, 0)
	if err != nil {
		return vfs.Node{}, err
	}
	return direntToNode(dirent), nil
}

func (d *Driver) Mkdir(path string) (vfs.Node, error) {
	dirent, err := d.fs.Mkdir(path)
	if err != nil {
		return vfs.Node{}, err
	}
	return direntToNode(dirent), nil
}

func (d *Driver) Unlink(path string) error {
	return d.fs.Delete(path)
}

func (d *Driver) Rmdir(path string) error {
	return d.fs.Rmdir(path)
}

func (d *Driver) Rename(path, newName string) error {
	return d.fs.Rename(path, newName)
}

func (d *Driver) OpenFile(path string) (vfs.File, error) {
	return d.fs.OpenFile(path)
}

// Sync satisfies vfs.Syncer.
func (d *Driver) Sync() error {
	return d.fs.Sync()
}

// Label satisfies vfs.Labeler.
func (d *Driver) Label() (string, error) {
	return d.fs.Label()
}

// Statfs satisfies vfs.StatfsProvider.
func (d *Driver) Statfs() (vfs.FSStat, error) {
	free, err := d.fs.FreeClusterCount()
	if err != nil {
		return vfs.FSStat{}, err
	}
	return vfs.FSStat{
		TotalBytes: int64(d.fs.Boot.TotalClusters) * int64(d.fs.Boot.BytesPerCluster),
		FreeBytes:  int64(free) * int64(d.fs.Boot.BytesPerCluster),
		BlockSize:  int64(d.fs.Boot.BytesPerCluster),
	}, nil
}
