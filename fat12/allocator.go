package fat12

import (
	"github.com/boljen/go-bitmap"
)

// freeClusterIndex is a bitmap-backed accelerator for AllocateCluster's
// linear FAT scan. It is never a source of truth — the FAT cache remains
// authoritative — it only narrows where the scan starts so repeated
// allocation on a nearly-full disk doesn't re-walk already-known-used
// clusters from index 2 every time.
type freeClusterIndex struct {
	bm         bitmap.Bitmap
	totalUnits uint
	cursor     ClusterID
}

// newFreeClusterIndex builds the index from an already-mounted FAT by
// reading every entry once.
func newFreeClusterIndex(f *FAT) (*freeClusterIndex, error) {
	total := f.boot.TotalClusters
	idx := &freeClusterIndex{
		bm:         bitmap.New(int(total)),
		totalUnits: total,
		cursor:     2,
	}
	for c := ClusterID(2); c < ClusterID(total+2); c++ {
		v, err := f.Get(c)
		if err != nil {
			return nil, err
		}
		idx.bm.Set(int(c-2), v != clusterFree)
	}
	return idx, nil
}

// markUsed records that cluster c is now allocated.
func (idx *freeClusterIndex) markUsed(c ClusterID) {
	if c < 2 {
		return
	}
	idx.bm.Set(int(c-2), true)
}

// markFree records that cluster c is now available.
func (idx *freeClusterIndex) markFree(c ClusterID) {
	if c < 2 {
		return
	}
	idx.bm.Set(int(c-2), false)
	if c < idx.cursor {
		idx.cursor = c
	}
}

// hint returns a starting point for the next linear scan: the lowest
// cluster index the index believes may still be free.
func (idx *freeClusterIndex) hint() ClusterID {
	for c := idx.cursor; c < ClusterID(idx.totalUnits+2); c++ {
		if !idx.bm.Get(int(c - 2)) {
			idx.cursor = c
			return c
		}
	}
	return 0
}
