package ramdisk

import coreerrors "github.com/retrofuture-os/coreos/errors"

// Handle is an open read, write, or append handle onto one slot. Matches
// vfs.File's verb set (Read/Write/Seek/Flush/Close/Size/Position) so it
// can be returned directly as a vfs.File from the VFS driver adapter.
type Handle struct {
	disk     *RAMDisk
	index    int
	position uint32
	write    bool
}

// Open opens name for reading, or for writing when write is true. A
// write-opened nonexistent file is auto-created; append is write plus a
// seek-to-end. Opening a read-only file for writing fails ReadOnly.
func (r *RAMDisk) Open(name string, write bool, appendMode bool) (*Handle, error) {
	idx, err := r.findSlot(name)
	if err != nil {
		if err == coreerrors.ErrNotFound && write {
			if cerr := r.Create(name); cerr != nil {
				return nil, cerr
			}
			idx, err = r.findSlot(name)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if write && r.slots[idx].flags&AttrReadOnly != 0 {
		return nil, coreerrors.ErrReadOnly
	}

	h := &Handle{disk: r, index: idx, write: write}
	if appendMode {
		h.position = r.slots[idx].size
	}
	return h, nil
}

func (h *Handle) Size() uint32     { return h.disk.slots[h.index].size }
func (h *Handle) Position() uint32 { return h.position }

// Seek allows any offset in [0, size].
func (h *Handle) Seek(offset uint32) error {
	if offset > h.Size() {
		return coreerrors.ErrInvalidArgument.WithMessage("seek past end of file")
	}
	h.position = offset
	return nil
}

// Read copies up to len(buf) bytes from the current position, clamped to
// size-position.
func (h *Handle) Read(buf []byte) (int, error) {
	sl := &h.disk.slots[h.index]
	remaining := sl.size - h.position
	want := uint32(len(buf))
	if want > remaining {
		want = remaining
	}
	if want == 0 {
		return 0, nil
	}
	copy(buf[:want], h.disk.arena[sl.offset+h.position:sl.offset+h.position+want])
	h.position += want
	return int(want), nil
}

// Write writes data at the current position, growing the slot's arena
// span (rounded up to ArenaRoundUp) and relocating its content when the
// write would extend past the currently allocated span.
func (h *Handle) Write(data []byte) (int, error) {
	if !h.write {
		return 0, coreerrors.ErrReadOnly
	}
	if len(data) == 0 {
		return 0, nil
	}

	sl := &h.disk.slots[h.index]
	end := h.position + uint32(len(data))

	if end > sl.allocated {
		newSpan := roundUp4K(end)
		newOffset, err := h.disk.bumpAlloc(newSpan)
		if err != nil {
			return 0, err
		}
		if sl.size > 0 {
			copy(h.disk.arena[newOffset:newOffset+sl.size], h.disk.arena[sl.offset:sl.offset+sl.size])
		}
		sl.offset = newOffset
		sl.allocated = newSpan
	}

	copy(h.disk.arena[sl.offset+h.position:sl.offset+end], data)
	h.position = end
	if end > sl.size {
		sl.size = end
	}
	sl.modifiedTick = h.disk.tickNow()
	return len(data), nil
}

// Flush is a no-op: ramdisk writes are already in their final location
// in the arena the moment Write returns.
func (h *Handle) Flush() error { return nil }

// Close is a no-op beyond whatever Flush would have done; there is no
// pooled handle state here to release (the VFS's own handle pool owns
// that).
func (h *Handle) Close() error { return nil }
