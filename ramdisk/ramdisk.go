// Package ramdisk implements a flat, bump-allocated in-memory file store:
// a fixed-size file table and a byte arena, exposing the same semantic
// verbs as fat12 so the VFS can mount either behind the same path API.
package ramdisk

import (
	"strings"

	"github.com/boljen/go-bitmap"
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// Attribute flags, shared bit positions with fat12 where they overlap
// (readonly/hidden/system/directory) plus an executable bit this engine
// alone has a use for.
const (
	AttrReadOnly   = 0x01
	AttrHidden     = 0x02
	AttrSystem     = 0x04
	AttrExecutable = 0x20
	AttrDirectory  = 0x10
)

// MaxNameLength is the longest name a slot can hold, not counting the
// NUL the original C struct reserves a byte for.
const MaxNameLength = 31

// ArenaRoundUp is the granularity write-extension rounds newly allocated
// spans up to.
const ArenaRoundUp = 4096

// slot is one fixed-size file-table record.
type slot struct {
	inUse        bool
	name         string
	size         uint32
	offset       uint32
	allocated    uint32
	flags        uint32
	createdTick  uint64
	modifiedTick uint64
}

// RAMDisk is a singleton-shaped (but not actually global) in-memory
// filesystem: one fixed slot table, one bump-pointer arena. Deletes free
// the slot but never reclaim arena space — defragmentation is out of
// scope per spec.md §4.C.
type RAMDisk struct {
	slots    []slot
	slotBm   bitmap.Bitmap
	arena    []byte
	arenaPtr uint32
	tick     uint64
}

// New allocates a RAM disk with the given slot count and arena size.
func New(maxSlots int, arenaSize uint32) *RAMDisk {
	return &RAMDisk{
		slots:  make([]slot, maxSlots),
		slotBm: bitmap.New(maxSlots),
		arena:  make([]byte, arenaSize),
	}
}

// tickNow returns and advances the RAM disk's internal logical clock,
// standing in for the original's interrupt-driven tick counter (there is
// no timer interrupt to read here).
func (r *RAMDisk) tickNow() uint64 {
	r.tick++
	return r.tick
}

func normalizeName(name string) string {
	return strings.ToLower(name)
}

func (r *RAMDisk) findSlot(name string) (int, error) {
	key := normalizeName(name)
	for i := range r.slots {
		if r.slots[i].inUse && normalizeName(r.slots[i].name) == key {
			return i, nil
		}
	}
	return -1, coreerrors.ErrNotFound
}

func (r *RAMDisk) findFreeSlotIndex() (int, error) {
	for i := range r.slots {
		if !r.slots[i].inUse {
			return i, nil
		}
	}
	return -1, coreerrors.ErrNoSlots
}

// roundUp4K rounds n up to the next multiple of ArenaRoundUp.
func roundUp4K(n uint32) uint32 {
	return (n + ArenaRoundUp - 1) / ArenaRoundUp * ArenaRoundUp
}

// bumpAlloc reserves span bytes from the arena, bumping the pointer.
// Returns NoSpace if the arena is exhausted.
func (r *RAMDisk) bumpAlloc(span uint32) (uint32, error) {
	if uint64(r.arenaPtr)+uint64(span) > uint64(len(r.arena)) {
		return 0, coreerrors.ErrNoSpace
	}
	offset := r.arenaPtr
	r.arenaPtr += span
	return offset, nil
}

// Create makes a new zero-length file. Fails AlreadyExists if name is
// already used (case-insensitively), InvalidArgument if the name is
// empty or too long.
func (r *RAMDisk) Create(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return coreerrors.ErrInvalidArgument.WithMessage("invalid ramdisk file name")
	}
	if _, err := r.findSlot(name); err == nil {
		return coreerrors.ErrAlreadyExists
	}

	idx, err := r.findFreeSlotIndex()
	if err != nil {
		return err
	}

	now := r.tickNow()
	r.slots[idx] = slot{
		inUse:        true,
		name:         name,
		createdTick:  now,
		modifiedTick: now,
	}
	r.slotBm.Set(idx, true)
	return nil
}

// Delete frees the slot. The arena span it occupied is not reclaimed.
func (r *RAMDisk) Delete(name string) error {
	idx, err := r.findSlot(name)
	if err != nil {
		return err
	}
	if r.slots[idx].flags&AttrReadOnly != 0 {
		return coreerrors.ErrReadOnly
	}
	r.slots[idx] = slot{}
	r.slotBm.Set(idx, false)
	return nil
}

// Rename changes a slot's name in place.
func (r *RAMDisk) Rename(name, newName string) error {
	if newName == "" || len(newName) > MaxNameLength {
		return coreerrors.ErrInvalidArgument.WithMessage("invalid ramdisk file name")
	}
	idx, err := r.findSlot(name)
	if err != nil {
		return err
	}
	if _, err := r.findSlot(newName); err == nil {
		return coreerrors.ErrAlreadyExists
	}
	r.slots[idx].name = newName
	return nil
}

// Stat describes one slot's metadata, for Readdir/Lookup.
type Stat struct {
	Name  string
	Size  uint32
	Flags uint32
}

func (s Stat) IsDirectory() bool { return s.Flags&AttrDirectory != 0 }

// Stat resolves name to its current metadata.
func (r *RAMDisk) Stat(name string) (Stat, error) {
	idx, err := r.findSlot(name)
	if err != nil {
		return Stat{}, err
	}
	sl := r.slots[idx]
	return Stat{Name: sl.name, Size: sl.size, Flags: sl.flags}, nil
}

// List returns every in-use slot's metadata. There is no directory
// hierarchy, so this always lists the whole flat namespace.
func (r *RAMDisk) List() []Stat {
	var out []Stat
	for i := range r.slots {
		if r.slots[i].inUse {
			out = append(out, Stat{Name: r.slots[i].name, Size: r.slots[i].size, Flags: r.slots[i].flags})
		}
	}
	return out
}

// FreeBytes returns the arena bytes never yet bump-allocated (an upper
// bound on usable space; deleted files' spans are not included since
// they were never reclaimed).
func (r *RAMDisk) FreeBytes() uint32 {
	return uint32(len(r.arena)) - r.arenaPtr
}

// FragmentedBytes is arena_used minus the sum of live file sizes — space
// lost to deletes that never get reclaimed, per §4.C.
func (r *RAMDisk) FragmentedBytes() uint32 {
	var live uint32
	for i := range r.slots {
		if r.slots[i].inUse {
			live += r.slots[i].size
		}
	}
	return r.arenaPtr - live
}
