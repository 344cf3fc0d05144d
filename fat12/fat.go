package fat12

import coreerrors "github.com/retrofuture-os/coreos/errors"

// ClusterID is an index into the FAT / data region. 0 and 1 are reserved;
// allocatable clusters start at 2.
type ClusterID uint

const (
	clusterFree     = 0x000
	clusterReserved = 0x001
	clusterBad      = 0xFF7
	clusterEOCMin   = 0xFF8
)

// IsEndOfChain reports whether a FAT entry value marks the end of a chain.
func IsEndOfChain(entry uint16) bool {
	return entry >= clusterEOCMin
}

// FAT holds the in-memory copy of a single FAT table (sectors_per_fat*512
// bytes, one of num_fats identical copies on disk). Reads and lookups
// operate on this cache; Sync mirrors it to every on-disk copy.
type FAT struct {
	boot  *BootSector
	cache []byte
	dirty bool
}

// NewFAT wraps an already-loaded FAT cache buffer.
func NewFAT(boot *BootSector, cache []byte) *FAT {
	return &FAT{boot: boot, cache: cache}
}

// entryOffset returns the byte offset of entry n's packed 16-bit word
// within the cache, per the 12-bit packing formula off = n + n/2.
func entryOffset(n ClusterID) int {
	return int(n) + int(n)/2
}

// Get returns the raw 12-bit value stored for cluster n.
func (f *FAT) Get(n ClusterID) (uint16, error) {
	off := entryOffset(n)
	if off+1 >= len(f.cache) {
		return 0, coreerrors.ErrCorrupt.WithMessage("FAT entry offset out of range")
	}
	word := uint16(f.cache[off]) | uint16(f.cache[off+1])<<8
	if n%2 == 0 {
		return word & 0x0FFF, nil
	}
	return word >> 4, nil
}

// Set stores a 12-bit value for cluster n, preserving the 4 bits belonging
// to the neighboring cluster packed into the same word, and marks the
// cache dirty.
func (f *FAT) Set(n ClusterID, value uint16) error {
	off := entryOffset(n)
	if off+1 >= len(f.cache) {
		return coreerrors.ErrCorrupt.WithMessage("FAT entry offset out of range")
	}
	word := uint16(f.cache[off]) | uint16(f.cache[off+1])<<8
	if n%2 == 0 {
		word = (word & 0xF000) | (value & 0x0FFF)
	} else {
		word = (word & 0x000F) | (value << 4)
	}
	f.cache[off] = byte(word)
	f.cache[off+1] = byte(word >> 8)
	f.dirty = true
	return nil
}

// Dirty reports whether any Set has happened since the last Sync.
func (f *FAT) Dirty() bool { return f.dirty }

// MarkClean clears the dirty flag; called by Sync after the cache has been
// written out to every on-disk copy.
func (f *FAT) MarkClean() { f.dirty = false }

// Bytes returns the raw cache, for writing to every FAT copy on sync.
func (f *FAT) Bytes() []byte { return f.cache }

// ClusterToSector converts a cluster index to its first absolute sector.
func ClusterToSector(boot *BootSector, c ClusterID) uint {
	return boot.DataStart + (uint(c)-2)*uint(boot.SectorsPerCluster)
}

// AllocateCluster performs a linear scan for the first free FAT entry in
// [2, total_clusters+2), marks it end-of-chain, and returns its index.
// Returns NoSpace if nothing is free. hint, if nonzero, is tried as the
// scan's starting point (used by the bitmap-backed allocator to skip
// already-known-full regions).
func (f *FAT) AllocateCluster(hint ClusterID) (ClusterID, error) {
	limit := ClusterID(f.boot.TotalClusters + 2)
	start := ClusterID(2)
	if hint >= 2 && hint < limit {
		start = hint
	}

	for _, rng := range [][2]ClusterID{{start, limit}, {2, start}} {
		for c := rng[0]; c < rng[1]; c++ {
			v, err := f.Get(c)
			if err != nil {
				return 0, err
			}
			if v == clusterFree {
				if err := f.Set(c, clusterEOCMin); err != nil {
					return 0, err
				}
				return c, nil
			}
		}
	}
	return 0, coreerrors.ErrNoSpace
}

// ExtendChain allocates a new cluster and links tail's FAT entry to it.
func (f *FAT) ExtendChain(tail ClusterID, hint ClusterID) (ClusterID, error) {
	next, err := f.AllocateCluster(hint)
	if err != nil {
		return 0, err
	}
	if err := f.Set(tail, uint16(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// FreeChain walks the chain from head, zeroing each entry as it goes.
func (f *FAT) FreeChain(head ClusterID) error {
	c := head
	for c != 0 {
		next, err := f.Get(c)
		if err != nil {
			return err
		}
		if err := f.Set(c, clusterFree); err != nil {
			return err
		}
		if IsEndOfChain(next) {
			break
		}
		c = ClusterID(next)
	}
	return nil
}

// Chain walks the full cluster chain starting at head, returning every
// cluster index in order. Bounds the walk at total_clusters steps to
// guard against a cyclic (corrupt) chain, returning Corrupt if exceeded.
func (f *FAT) Chain(head ClusterID) ([]ClusterID, error) {
	var clusters []ClusterID
	c := head
	limit := f.boot.TotalClusters
	for i := uint(0); c != 0 && !IsEndOfChain(uint16(c)); i++ {
		if i >= limit {
			return nil, coreerrors.ErrCorrupt.WithMessage("cluster chain exceeds total_clusters; possible cycle")
		}
		clusters = append(clusters, c)
		next, err := f.Get(c)
		if err != nil {
			return nil, err
		}
		c = ClusterID(next)
	}
	return clusters, nil
}
