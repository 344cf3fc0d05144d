package vfs

import coreerrors "github.com/retrofuture-os/coreos/errors"

// Open flags, per §6.
const (
	ORDONLY = 0x0001
	OWRONLY = 0x0002
	ORDWR   = 0x0003
	OCREAT  = 0x0100
	OTRUNC  = 0x0200
	OAPPEND = 0x0400
)

// Seek whence values, per §6.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// FileHandle is the caller-visible token for an open file: a pool index
// plus a generation counter, so a stale handle from a closed slot can't
// be mistaken for whatever opened into that slot next (ABA protection),
// per the design note in §9.
type FileHandle struct {
	index int
	gen   uint32
}

// DirHandle is the directory-listing counterpart of FileHandle.
type DirHandle struct {
	index int
	gen   uint32
}

type openFile struct {
	inUse bool
	gen   uint32
	mount *Mount
	node  Node
	file  File
	flags int
}

type openDir struct {
	inUse   bool
	gen     uint32
	mount   *Mount
	node    Node
	entries []Node
	cursor  int
}

// handlePool is a fixed-size open-file/open-dir table. Opening reserves a
// slot; closing releases it. Exhaustion is a hard failure (NoSlots), not
// a dynamic grow — matching the no-dynamic-allocation-in-the-hot-path
// design note.
type handlePool struct {
	files []openFile
	dirs  []openDir
}

func newHandlePool(maxFiles, maxDirs int) *handlePool {
	return &handlePool{
		files: make([]openFile, maxFiles),
		dirs:  make([]openDir, maxDirs),
	}
}

func (p *handlePool) allocFile(mount *Mount, node Node, file File, flags int) (FileHandle, error) {
	for i := range p.files {
		if !p.files[i].inUse {
			p.files[i] = openFile{inUse: true, gen: p.files[i].gen + 1, mount: mount, node: node, file: file, flags: flags}
			return FileHandle{index: i, gen: p.files[i].gen}, nil
		}
	}
	return FileHandle{}, coreerrors.ErrNoSlots
}

func (p *handlePool) getFile(h FileHandle) (*openFile, error) {
	if h.index < 0 || h.index >= len(p.files) {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("bad file handle")
	}
	slot := &p.files[h.index]
	if !slot.inUse || slot.gen != h.gen {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("stale file handle")
	}
	return slot, nil
}

func (p *handlePool) releaseFile(h FileHandle) error {
	slot, err := p.getFile(h)
	if err != nil {
		return err
	}
	slot.inUse = false
	slot.file = nil
	slot.mount = nil
	return nil
}

// closeMount forcibly closes every handle belonging to mount, without
// notifying whoever had it open — per §4.D's unmount teardown contract.
func (p *handlePool) closeMount(mount *Mount) {
	for i := range p.files {
		if p.files[i].inUse && p.files[i].mount == mount {
			if p.files[i].file != nil {
				p.files[i].file.Close()
			}
			p.files[i].inUse = false
			p.files[i].file = nil
			p.files[i].mount = nil
		}
	}
	for i := range p.dirs {
		if p.dirs[i].inUse && p.dirs[i].mount == mount {
			p.dirs[i].inUse = false
			p.dirs[i].mount = nil
		}
	}
}

func (p *handlePool) allocDir(mount *Mount, node Node, entries []Node) (DirHandle, error) {
	for i := range p.dirs {
		if !p.dirs[i].inUse {
			p.dirs[i] = openDir{inUse: true, gen: p.dirs[i].gen + 1, mount: mount, node: node, entries: entries}
			return DirHandle{index: i, gen: p.dirs[i].gen}, nil
		}
	}
	return DirHandle{}, coreerrors.ErrNoSlots
}

func (p *handlePool) getDir(h DirHandle) (*openDir, error) {
	if h.index < 0 || h.index >= len(p.dirs) {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("bad directory handle")
	}
	slot := &p.dirs[h.index]
	if !slot.inUse || slot.gen != h.gen {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("stale directory handle")
	}
	return slot, nil
}

func (p *handlePool) releaseDir(h DirHandle) error {
	slot, err := p.getDir(h)
	if err != nil {
		return err
	}
	slot.inUse = false
	return nil
}
