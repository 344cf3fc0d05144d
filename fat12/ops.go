package fat12

import (
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// Create makes a new zero-length regular file at path. Per the REDESIGN
// FLAG in SPEC_FULL.md §4, this walks the full path (not just a single
// root-level component) — every directory named along the way must
// already exist.
func (fs *FileSystem) Create(path string, attrs uint8) (Dirent, error) {
	if fs.readOnly {
		return Dirent{}, coreerrors.ErrReadOnly
	}

	dir, name, err := fs.resolveParentDir(path)
	if err != nil {
		return Dirent{}, err
	}
	if name == "" {
		return Dirent{}, coreerrors.ErrInvalidArgument.WithMessage("empty name")
	}
	if _, _, err := fs.findInDir(dir, name); err == nil {
		return Dirent{}, coreerrors.ErrAlreadyExists
	} else if err != coreerrors.ErrNotFound {
		return Dirent{}, err
	}

	loc, err := fs.findFreeSlot(dir)
	if err != nil {
		return Dirent{}, err
	}

	rd, err := NewRawDirent(name, attrs, 0, 0)
	if err != nil {
		return Dirent{}, err
	}
	if err := fs.writeDirentAt(loc, rd); err != nil {
		return Dirent{}, err
	}
	if err := fs.Sync(); err != nil {
		return Dirent{}, err
	}

	return NewDirentFromRaw(rd)
}

// Mkdir creates a new subdirectory at path, allocating one cluster and
// seeding it with "." and ".." entries. Like Create, this resolves the
// full path per the REDESIGN FLAG.
func (fs *FileSystem) Mkdir(path string) (Dirent, error) {
	if fs.readOnly {
		return Dirent{}, coreerrors.ErrReadOnly
	}

	dir, name, err := fs.resolveParentDir(path)
	if err != nil {
		return Dirent{}, err
	}
	if name == "" {
		return Dirent{}, coreerrors.ErrInvalidArgument.WithMessage("empty name")
	}
	if _, _, err := fs.findInDir(dir, name); err == nil {
		return Dirent{}, coreerrors.ErrAlreadyExists
	} else if err != coreerrors.ErrNotFound {
		return Dirent{}, err
	}

	cluster, err := fs.AllocateCluster()
	if err != nil {
		return Dirent{}, err
	}

	loc, err := fs.findFreeSlot(dir)
	if err != nil {
		fs.freeIdx.markFree(cluster)
		_ = fs.fat.Set(cluster, clusterFree)
		return Dirent{}, err
	}

	rd, err := NewRawDirent(name, AttrDirectory, cluster, 0)
	if err != nil {
		fs.freeIdx.markFree(cluster)
		_ = fs.fat.Set(cluster, clusterFree)
		return Dirent{}, err
	}
	if err := fs.writeDirentAt(loc, rd); err != nil {
		fs.freeIdx.markFree(cluster)
		_ = fs.fat.Set(cluster, clusterFree)
		return Dirent{}, err
	}

	var parentCluster ClusterID
	if !dir.isRoot {
		parentCluster = dir.cluster
	}

	sectors := make([]byte, fs.Boot.BytesPerCluster)
	dotRaw, _ := NewRawDirent(".", AttrDirectory, cluster, 0)
	dotdotRaw, _ := NewRawDirent("..", AttrDirectory, parentCluster, 0)
	PutRawDirent(sectors[0:DirentSize], dotRaw)
	PutRawDirent(sectors[DirentSize:2*DirentSize], dotdotRaw)

	if err := fs.writeSectors(ClusterToSector(fs.Boot, cluster), sectors); err != nil {
		return Dirent{}, err
	}

	if err := fs.Sync(); err != nil {
		return Dirent{}, err
	}

	return NewDirentFromRaw(rd)
}

// Delete removes a regular file: frees its cluster chain, marks the entry
// deleted (0xE5), and flushes the FAT. Fails InvalidArgument when path
// names a directory — callers must use Rmdir for directories.
func (fs *FileSystem) Delete(path string) error {
	if fs.readOnly {
		return coreerrors.ErrReadOnly
	}

	d, loc, _, err := fs.resolvePath(path)
	if err != nil {
		return err
	}
	if d.IsDirectory() {
		return coreerrors.ErrInvalidArgument.WithMessage("path is a directory; use Rmdir")
	}

	if d.FirstCluster != 0 {
		if err := fs.FreeChain(d.FirstCluster); err != nil {
			return err
		}
	}

	if err := fs.markDeleted(loc); err != nil {
		return err
	}
	return fs.Sync()
}

// Rmdir removes an empty subdirectory: fails NotEmpty unless exactly the
// "." and ".." entries remain.
func (fs *FileSystem) Rmdir(path string) error {
	if fs.readOnly {
		return coreerrors.ErrReadOnly
	}

	d, loc, _, err := fs.resolvePath(path)
	if err != nil {
		return err
	}
	if !d.IsDirectory() {
		return coreerrors.ErrNotADirectory
	}

	entries, err := fs.ListDir(dirHandle{cluster: d.FirstCluster})
	if err != nil {
		return err
	}
	if len(entries) != 2 {
		return coreerrors.ErrNotEmpty
	}

	if err := fs.FreeChain(d.FirstCluster); err != nil {
		return err
	}
	if err := fs.markDeleted(loc); err != nil {
		return err
	}
	return fs.Sync()
}

// Rename changes a file or directory's name in place, within the same
// directory (cross-directory moves are out of scope, matching the
// original's single-directory rename).
func (fs *FileSystem) Rename(path, newName string) error {
	if fs.readOnly {
		return coreerrors.ErrReadOnly
	}

	dir, _, err := fs.resolveParentDir(path)
	if err != nil {
		return err
	}

	_, loc, _, err := fs.resolvePath(path)
	if err != nil {
		return err
	}

	if _, _, err := fs.findInDir(dir, newName); err == nil {
		return coreerrors.ErrAlreadyExists
	} else if err != coreerrors.ErrNotFound {
		return err
	}

	rawName, rawExt, err := EncodeName83(newName)
	if err != nil {
		return err
	}

	buf, err := fs.readSectors(loc.sector, 1)
	if err != nil {
		return err
	}
	off := loc.index * DirentSize
	rd := NewRawDirentFromBytes(buf[off : off+DirentSize])
	rd.Name = rawName
	rd.Extension = rawExt
	PutRawDirent(buf[off:off+DirentSize], rd)

	if err := fs.writeSectors(loc.sector, buf); err != nil {
		return err
	}
	return fs.Sync()
}

// Stat resolves path and returns its decoded directory entry.
func (fs *FileSystem) Stat(path string) (Dirent, error) {
	d, _, _, err := fs.resolvePath(path)
	return d, err
}

// Readdir resolves path (which must be a directory, or "/" for root) and
// lists its live entries.
func (fs *FileSystem) Readdir(path string) ([]Dirent, error) {
	if isRootPath(path) {
		return fs.ListDir(dirHandle{isRoot: true})
	}
	d, _, _, err := fs.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if !d.IsDirectory() {
		return nil, coreerrors.ErrNotADirectory
	}
	return fs.ListDir(dirHandle{cluster: d.FirstCluster})
}

func isRootPath(path string) bool {
	return path == "" || path == "/"
}

// markDeleted rewrites an entry's first name byte to 0xE5, preserving the
// rest of the slot except CreateTimeTenths, which always receives the
// original first name byte.
func (fs *FileSystem) markDeleted(loc direntLocation) error {
	buf, err := fs.readSectors(loc.sector, 1)
	if err != nil {
		return err
	}
	off := loc.index * DirentSize
	rd := NewRawDirentFromBytes(buf[off : off+DirentSize])
	rd.CreateTimeTenths = rd.Name[0]
	rd.Name[0] = 0xE5
	PutRawDirent(buf[off:off+DirentSize], rd)
	return fs.writeSectors(loc.sector, buf)
}
