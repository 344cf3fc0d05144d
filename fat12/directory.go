package fat12

import (
	"strings"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// direntLocation pinpoints one on-disk directory entry: the absolute
// sector it lives in and its 32-byte slot index within that sector.
type direntLocation struct {
	sector uint
	index  int
}

const direntsPerSector = SectorSize / DirentSize

// dirIterator walks a directory's sequence of 32-byte slots, either the
// root region (a fixed run of sectors) or a subdirectory (a cluster
// chain), yielding raw entries in on-disk order.
type dirIterator struct {
	fs        *FileSystem
	isRoot    bool
	chain     []ClusterID // subdirectory only
	chainPos  int         // index into chain
	sectorBuf []byte
	sector    uint
	index     int
	sectorsLeft uint // remaining sectors in the region (root) or current cluster (subdir)
	loaded    bool
}

func (fs *FileSystem) newRootIterator() *dirIterator {
	return &dirIterator{
		fs:          fs,
		isRoot:      true,
		sector:      fs.Boot.RootStart,
		sectorsLeft: fs.Boot.RootSectors,
	}
}

func (fs *FileSystem) newSubdirIterator(startCluster ClusterID) (*dirIterator, error) {
	chain, err := fs.fat.Chain(startCluster)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, coreerrors.ErrCorrupt.WithMessage("subdirectory has no clusters")
	}
	return &dirIterator{
		fs:          fs,
		isRoot:      false,
		chain:       chain,
		sector:      ClusterToSector(fs.Boot, chain[0]),
		sectorsLeft: uint(fs.Boot.SectorsPerCluster),
	}, nil
}

func (it *dirIterator) loadSector() error {
	if it.loaded {
		return nil
	}
	buf, err := it.fs.readSectors(it.sector, 1)
	if err != nil {
		return err
	}
	it.sectorBuf = buf
	it.loaded = true
	return nil
}

// advanceSector moves to the next sector in the region/cluster, following
// the chain for subdirectories. Returns false when the region/chain is
// exhausted.
func (it *dirIterator) advanceSector() bool {
	it.sectorsLeft--
	it.loaded = false
	it.index = 0

	if it.sectorsLeft > 0 {
		it.sector++
		return true
	}

	if it.isRoot {
		return false
	}

	it.chainPos++
	if it.chainPos >= len(it.chain) {
		return false
	}
	it.sector = ClusterToSector(it.fs.Boot, it.chain[it.chainPos])
	it.sectorsLeft = uint(it.fs.Boot.SectorsPerCluster)
	return true
}

// next returns the next raw entry and its location. done=true and a nil
// error means end-of-directory (a first byte of 0x00, or the root region
// or subdirectory chain ran out). Long-name entries (attr==0x0F) are
// skipped transparently; deleted entries (0xE5) are returned, not
// skipped, and callers filter them out themselves.
func (it *dirIterator) next() (RawDirent, direntLocation, bool, error) {
	for {
		if err := it.loadSector(); err != nil {
			return RawDirent{}, direntLocation{}, false, err
		}
		if it.index >= direntsPerSector {
			if !it.advanceSector() {
				return RawDirent{}, direntLocation{}, true, nil
			}
			continue
		}

		off := it.index * DirentSize
		rd := NewRawDirentFromBytes(it.sectorBuf[off : off+DirentSize])
		loc := direntLocation{sector: it.sector, index: it.index}
		it.index++

		if rd.Name[0] == 0x00 {
			return RawDirent{}, direntLocation{}, true, nil
		}
		if rd.AttributeFlags == AttrLongName {
			continue
		}
		return rd, loc, false, nil
	}
}

// findFreeSlot scans for the first free slot (0x00 or 0xE5 first byte),
// returning its location. For root directories, a full region with no
// free slot fails with NoSpace (the root can't grow). For subdirectories,
// if the chain is exhausted, a new cluster is appended and its first slot
// returned — this is the REDESIGN FLAG extension beyond the original
// single-level-only Create; see SPEC_FULL.md §4.
func (fs *FileSystem) findFreeSlot(dir dirHandle) (direntLocation, error) {
	it, err := fs.dirIterator(dir)
	if err != nil {
		return direntLocation{}, err
	}

	for {
		if err := it.loadSector(); err != nil {
			return direntLocation{}, err
		}
		for it.index < direntsPerSector {
			off := it.index * DirentSize
			b := it.sectorBuf[off]
			if b == 0x00 || b == 0xE5 {
				return direntLocation{sector: it.sector, index: it.index}, nil
			}
			it.index++
		}
		if !it.advanceSector() {
			break
		}
	}

	if dir.isRoot {
		return direntLocation{}, coreerrors.ErrNoSpace.WithMessage("root directory is full")
	}

	last := it.chain[len(it.chain)-1]
	next, err := fs.ExtendChain(last)
	if err != nil {
		return direntLocation{}, err
	}
	zeros := make([]byte, fs.Boot.BytesPerCluster)
	if err := fs.writeSectors(ClusterToSector(fs.Boot, next), zeros); err != nil {
		return direntLocation{}, err
	}
	return direntLocation{sector: ClusterToSector(fs.Boot, next), index: 0}, nil
}

// dirHandle identifies a directory to iterate: either the root region or
// a subdirectory's starting cluster.
type dirHandle struct {
	isRoot  bool
	cluster ClusterID
}

func (fs *FileSystem) dirIterator(dir dirHandle) (*dirIterator, error) {
	if dir.isRoot {
		return fs.newRootIterator(), nil
	}
	return fs.newSubdirIterator(dir.cluster)
}

// writeDirentAt encodes rd and writes it to loc, read-modify-write on the
// containing sector.
func (fs *FileSystem) writeDirentAt(loc direntLocation, rd RawDirent) error {
	buf, err := fs.readSectors(loc.sector, 1)
	if err != nil {
		return err
	}
	off := loc.index * DirentSize
	PutRawDirent(buf[off:off+DirentSize], rd)
	return fs.writeSectors(loc.sector, buf)
}

// findInDir scans dir for an entry whose decoded name matches name
// case-insensitively (8.3 packed bytes are already upper-cased, so a
// straight byte comparison suffices once the candidate is also encoded).
func (fs *FileSystem) findInDir(dir dirHandle, name string) (Dirent, direntLocation, error) {
	rawName, rawExt, err := EncodeName83(name)
	if err != nil {
		return Dirent{}, direntLocation{}, err
	}

	it, err := fs.dirIterator(dir)
	if err != nil {
		return Dirent{}, direntLocation{}, err
	}

	for {
		rd, loc, done, err := it.next()
		if err != nil {
			return Dirent{}, direntLocation{}, err
		}
		if done {
			return Dirent{}, direntLocation{}, coreerrors.ErrNotFound
		}
		if rd.Name[0] == 0xE5 {
			continue
		}
		if rd.Name == rawName && rd.Extension == rawExt {
			d, err := NewDirentFromRaw(rd)
			if err != nil {
				return Dirent{}, direntLocation{}, err
			}
			return d, loc, nil
		}
	}
}

// ListDir returns every live (non-deleted, non-long-name) entry in dir.
func (fs *FileSystem) ListDir(dir dirHandle) ([]Dirent, error) {
	it, err := fs.dirIterator(dir)
	if err != nil {
		return nil, err
	}

	var entries []Dirent
	for {
		rd, _, done, err := it.next()
		if err != nil {
			return nil, err
		}
		if done {
			return entries, nil
		}
		if rd.Name[0] == 0xE5 {
			continue
		}
		d, err := NewDirentFromRaw(rd)
		if err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
}

// resolvePath walks a slash-separated path component by component,
// starting at root. Every component but the last must be a directory;
// the final component may be a file or a directory. Returns the resolved
// Dirent, its on-disk location, and the dirHandle of its *containing*
// directory (useful for create/delete/rename).
func (fs *FileSystem) resolvePath(path string) (Dirent, direntLocation, dirHandle, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return Dirent{}, direntLocation{}, dirHandle{}, coreerrors.ErrInvalidArgument.WithMessage("empty path")
	}

	dir := dirHandle{isRoot: true}
	var current Dirent
	var loc direntLocation

	for i, comp := range components {
		d, l, err := fs.findInDir(dir, comp)
		if err != nil {
			return Dirent{}, direntLocation{}, dirHandle{}, err
		}
		current, loc = d, l

		if i < len(components)-1 {
			if !d.IsDirectory() {
				return Dirent{}, direntLocation{}, dirHandle{}, coreerrors.ErrNotADirectory
			}
			dir = dirHandle{cluster: d.FirstCluster}
		}
	}

	parentDir := dir
	return current, loc, parentDir, nil
}

// resolveParentDir walks every component but the last, returning the
// dirHandle of the directory that should contain it (for create/mkdir,
// which need the parent before the final component exists).
func (fs *FileSystem) resolveParentDir(path string) (dirHandle, string, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return dirHandle{}, "", coreerrors.ErrInvalidArgument.WithMessage("empty path")
	}

	dir := dirHandle{isRoot: true}
	for _, comp := range components[:len(components)-1] {
		d, _, err := fs.findInDir(dir, comp)
		if err != nil {
			return dirHandle{}, "", err
		}
		if !d.IsDirectory() {
			return dirHandle{}, "", coreerrors.ErrNotADirectory
		}
		dir = dirHandle{cluster: d.FirstCluster}
	}
	return dir, components[len(components)-1], nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
