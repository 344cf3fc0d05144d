package fat12

import (
	"strings"

	"github.com/retrofuture-os/coreos/blockdev"
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// FileSystem is a mounted FAT12 volume: the boot sector, the in-memory FAT
// cache, the bitmap-backed free-cluster accelerator, and the block device
// it sits on. One FileSystem per mount; there is no shared global state.
type FileSystem struct {
	Device   blockdev.Device
	Boot     *BootSector
	fat      *FAT
	freeIdx  *freeClusterIndex
	readOnly bool
}

// Mount reads sector 0 from dev, validates and decodes the BPB, loads the
// first FAT copy into memory, and builds the free-cluster index. No state
// is mutated on the device; a failure here leaves dev untouched.
func Mount(dev blockdev.Device) (*FileSystem, error) {
	sector0 := make([]byte, SectorSize)
	if n, err := dev.Read(0, 1, sector0); err != nil || n != 1 {
		if err != nil {
			return nil, err
		}
		return nil, coreerrors.ErrDeviceError
	}

	boot, err := ReadBootSector(sector0)
	if err != nil {
		return nil, err
	}

	fatBytes := uint(boot.SectorsPerFAT) * SectorSize
	fatCache := make([]byte, fatBytes)
	n, err := dev.Read(uint64(boot.FATStart), uint(boot.SectorsPerFAT), fatCache)
	if err != nil {
		return nil, err
	}
	if n != uint(boot.SectorsPerFAT) {
		return nil, coreerrors.ErrDeviceError
	}

	fs := &FileSystem{
		Device:   dev,
		Boot:     boot,
		fat:      NewFAT(boot, fatCache),
		readOnly: dev.ReadOnly(),
	}

	idx, err := newFreeClusterIndex(fs.fat)
	if err != nil {
		return nil, err
	}
	fs.freeIdx = idx

	return fs, nil
}

// ReadOnly reports whether mutating operations are rejected.
func (fs *FileSystem) ReadOnly() bool { return fs.readOnly }

// readSectors reads count sectors starting at lba into a fresh buffer.
func (fs *FileSystem) readSectors(lba uint, count uint) ([]byte, error) {
	buf := make([]byte, count*SectorSize)
	n, err := fs.Device.Read(uint64(lba), count, buf)
	if err != nil {
		return nil, err
	}
	if n != count {
		return nil, coreerrors.ErrDeviceError
	}
	return buf, nil
}

// writeSectors writes data (an exact multiple of SectorSize) starting at
// lba.
func (fs *FileSystem) writeSectors(lba uint, data []byte) error {
	if fs.readOnly {
		return coreerrors.ErrReadOnly
	}
	count := uint(len(data)) / SectorSize
	n, err := fs.Device.Write(uint64(lba), count, data)
	if err != nil {
		return err
	}
	if n != count {
		return coreerrors.ErrDeviceError
	}
	return nil
}

// Sync writes the FAT cache out to every on-disk copy, if dirty, and
// flushes the block device. Per the universal invariant, every copy must
// be byte-identical after this returns.
func (fs *FileSystem) Sync() error {
	if fs.fat.Dirty() {
		for i := uint(0); i < uint(fs.Boot.NumFATs); i++ {
			start := fs.Boot.FATStart + i*uint(fs.Boot.SectorsPerFAT)
			if err := fs.writeSectors(start, fs.fat.Bytes()); err != nil {
				return err
			}
		}
		fs.fat.MarkClean()
	}
	return fs.Device.Sync()
}

// AllocateCluster allocates a free cluster, consulting the bitmap
// accelerator for a starting hint and keeping it in lock-step.
func (fs *FileSystem) AllocateCluster() (ClusterID, error) {
	c, err := fs.fat.AllocateCluster(fs.freeIdx.hint())
	if err != nil {
		return 0, err
	}
	fs.freeIdx.markUsed(c)
	return c, nil
}

// ExtendChain allocates a new cluster and links tail to it.
func (fs *FileSystem) ExtendChain(tail ClusterID) (ClusterID, error) {
	next, err := fs.fat.ExtendChain(tail, fs.freeIdx.hint())
	if err != nil {
		return 0, err
	}
	fs.freeIdx.markUsed(next)
	return next, nil
}

// FreeChain frees every cluster in the chain starting at head.
func (fs *FileSystem) FreeChain(head ClusterID) error {
	chain, err := fs.fat.Chain(head)
	if err != nil {
		return err
	}
	if err := fs.fat.FreeChain(head); err != nil {
		return err
	}
	for _, c := range chain {
		fs.freeIdx.markFree(c)
	}
	return nil
}

// FreeClusterCount scans the FAT cache and reports how many clusters are
// currently unallocated, for FSStat/diskctl df.
func (fs *FileSystem) FreeClusterCount() (uint, error) {
	var free uint
	for c := ClusterID(2); c < ClusterID(fs.Boot.TotalClusters+2); c++ {
		v, err := fs.fat.Get(c)
		if err != nil {
			return 0, err
		}
		if v == clusterFree {
			free++
		}
	}
	return free, nil
}

// Chain returns the full cluster chain starting at head, for integrity
// scanning and any other caller that needs the raw chain without going
// through a File.
func (fs *FileSystem) Chain(head ClusterID) ([]ClusterID, error) {
	return fs.fat.Chain(head)
}

// FATCopiesIdentical reads every on-disk FAT copy and reports whether
// they are all byte-identical, per the universal invariant that must hold
// after every sync.
func (fs *FileSystem) FATCopiesIdentical() (bool, error) {
	first, err := fs.readSectors(fs.Boot.FATStart, uint(fs.Boot.SectorsPerFAT))
	if err != nil {
		return false, err
	}
	for i := uint(1); i < uint(fs.Boot.NumFATs); i++ {
		start := fs.Boot.FATStart + i*uint(fs.Boot.SectorsPerFAT)
		copy, err := fs.readSectors(start, uint(fs.Boot.SectorsPerFAT))
		if err != nil {
			return false, err
		}
		if string(copy) != string(first) {
			return false, nil
		}
	}
	return true, nil
}

// Label returns the volume label from the root directory's label entry,
// trimmed of padding, or "" if none is present.
func (fs *FileSystem) Label() (string, error) {
	it := fs.newRootIterator()
	for {
		rd, loc, done, err := it.next()
		if err != nil {
			return "", err
		}
		if done {
			return "", nil
		}
		_ = loc
		if rd.AttributeFlags&AttrVolumeLabel != 0 {
			return strings.TrimRight(string(rd.Name[:])+string(rd.Extension[:]), " "), nil
		}
	}
}
