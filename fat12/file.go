package fat12

import (
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// File is an open handle onto a regular file's data. It tracks the
// current cluster and intra-cluster byte offset so Read/Write never have
// to re-walk the chain from the head on every call; Seek is the one
// operation that re-derives them from scratch.
type File struct {
	fs            *FileSystem
	loc           direntLocation // on-disk location of the directory entry
	name          string
	firstCluster  ClusterID
	size          uint32
	position      uint32
	currentCluster ClusterID
	intraOffset   uint32
	dirty         bool
	readOnly      bool
}

// OpenFile resolves path to a regular file and returns a File handle
// positioned at offset 0.
func (fs *FileSystem) OpenFile(path string) (*File, error) {
	d, loc, _, err := fs.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if d.IsDirectory() {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("path is a directory")
	}

	return &File{
		fs:           fs,
		loc:          loc,
		name:         d.Name,
		firstCluster: d.FirstCluster,
		size:         d.Size,
		currentCluster: d.FirstCluster,
	}, nil
}

func (f *File) Size() uint32 { return f.size }
func (f *File) Position() uint32 { return f.position }

func (f *File) clusterSize() uint32 {
	return uint32(f.fs.Boot.BytesPerCluster)
}

// Seek re-derives the current cluster and intra-cluster offset from
// scratch by walking the chain position/clusterSize steps from the head.
// Any byte offset in [0, size] is allowed.
func (f *File) Seek(offset uint32) error {
	if offset > f.size {
		return coreerrors.ErrInvalidArgument.WithMessage("seek past end of file")
	}

	f.position = offset
	f.intraOffset = offset % f.clusterSize()

	if f.firstCluster == 0 {
		f.currentCluster = 0
		return nil
	}

	steps := offset / f.clusterSize()
	c := f.firstCluster
	for i := uint32(0); i < steps; i++ {
		next, err := f.fs.fat.Get(c)
		if err != nil {
			return err
		}
		if IsEndOfChain(next) {
			if i == steps-1 && f.intraOffset == 0 {
				// offset is exactly the end of the last cluster: stay on it
				// with a full intra-cluster offset, as Write leaves it.
				f.intraOffset = f.clusterSize()
				break
			}
			return coreerrors.ErrCorrupt.WithMessage("chain shorter than file size")
		}
		c = ClusterID(next)
	}
	f.currentCluster = c
	return nil
}

// Read copies up to len(buf) bytes starting at the current position,
// clamped to size-position, without extending the chain.
func (f *File) Read(buf []byte) (int, error) {
	remaining := f.size - f.position
	want := uint32(len(buf))
	if want > remaining {
		want = remaining
	}
	if want == 0 {
		return 0, nil
	}

	cs := f.clusterSize()
	var total uint32
	for total < want {
		if f.currentCluster == 0 {
			break
		}
		sector := ClusterToSector(f.fs.Boot, f.currentCluster) + f.intraOffset/SectorSize
		sectorOffset := f.intraOffset % SectorSize

		sectorBuf, err := f.fs.readSectors(sector, 1)
		if err != nil {
			return int(total), err
		}

		n := uint32(SectorSize) - sectorOffset
		if rem := want - total; n > rem {
			n = rem
		}
		copy(buf[total:total+n], sectorBuf[sectorOffset:sectorOffset+n])

		total += n
		f.position += n
		f.intraOffset += n

		if f.intraOffset == cs {
			next, err := f.fs.fat.Get(f.currentCluster)
			if err != nil {
				return int(total), err
			}
			if IsEndOfChain(next) {
				f.currentCluster = 0
			} else {
				f.currentCluster = ClusterID(next)
			}
			f.intraOffset = 0
		}
	}

	return int(total), nil
}

// Write appends/overwrites len(data) bytes at the current position,
// allocating new clusters as needed. A partial write due to OOM (no free
// cluster) returns the count actually written; the chain is left
// extended by whatever was allocated before the failure, not reclaimed
// (§4.B Write).
func (f *File) Write(data []byte) (int, error) {
	if f.readOnly {
		return 0, coreerrors.ErrReadOnly
	}
	if len(data) == 0 {
		return 0, nil
	}

	if f.firstCluster == 0 {
		c, err := f.fs.AllocateCluster()
		if err != nil {
			return 0, err
		}
		f.firstCluster = c
		f.currentCluster = c
		f.intraOffset = 0
		f.dirty = true
	}

	cs := f.clusterSize()
	var total uint32
	want := uint32(len(data))

	for total < want {
		if f.intraOffset == cs {
			next, err := f.fs.fat.Get(f.currentCluster)
			if err != nil {
				return int(total), err
			}
			if IsEndOfChain(next) {
				newCluster, err := f.fs.ExtendChain(f.currentCluster)
				if err != nil {
					// OOM: return what we've written so far, chain stays
					// extended by whatever allocations already succeeded.
					return int(total), err
				}
				f.currentCluster = newCluster
			} else {
				f.currentCluster = ClusterID(next)
			}
			f.intraOffset = 0
		}

		sector := ClusterToSector(f.fs.Boot, f.currentCluster) + f.intraOffset/SectorSize
		sectorOffset := f.intraOffset % SectorSize

		n := uint32(SectorSize) - sectorOffset
		if rem := want - total; n > rem {
			n = rem
		}

		var sectorBuf []byte
		var err error
		if n < SectorSize {
			// Doesn't fully cover the sector: read-modify-write.
			sectorBuf, err = f.fs.readSectors(sector, 1)
			if err != nil {
				return int(total), err
			}
		} else {
			sectorBuf = make([]byte, SectorSize)
		}
		copy(sectorBuf[sectorOffset:sectorOffset+n], data[total:total+n])
		if err := f.fs.writeSectors(sector, sectorBuf); err != nil {
			return int(total), err
		}

		total += n
		f.position += n
		f.intraOffset += n
		if f.position > f.size {
			f.size = f.position
		}
		f.dirty = true
	}

	return int(total), nil
}

// Flush rewrites the directory entry's size and cluster_low to disk and
// syncs the FAT. Per size-monotonicity (§4.B), on-disk size only changes
// here, never mid-Write.
func (f *File) Flush() error {
	if !f.dirty {
		return nil
	}

	buf, err := f.fs.readSectors(f.loc.sector, 1)
	if err != nil {
		return err
	}
	off := f.loc.index * DirentSize
	rd := NewRawDirentFromBytes(buf[off : off+DirentSize])
	rd.FileSize = f.size
	rd.FirstClusterHigh = uint16(uint32(f.firstCluster) >> 16)
	rd.FirstClusterLow = uint16(uint32(f.firstCluster) & 0xFFFF)
	PutRawDirent(buf[off:off+DirentSize], rd)

	if err := f.fs.writeSectors(f.loc.sector, buf); err != nil {
		return err
	}
	if err := f.fs.Sync(); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// Close flushes any pending metadata change. Callers must still call
// Flush explicitly if they want to observe partial progress mid-write;
// Close is the final opportunity to persist it.
func (f *File) Close() error {
	return f.Flush()
}
