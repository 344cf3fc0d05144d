package vfs

// NodeType tags what kind of thing a resolved path names.
type NodeType int

const (
	TypeFile NodeType = iota
	TypeDirectory
	TypeDevice
	TypeSymlink
)

// Node is a resolved path result: an ephemeral value, never a cached
// object, carrying just enough for the VFS to make routing and stat
// decisions without reaching back into the backend.
type Node struct {
	Name  string
	Type  NodeType
	Size  int64
	Inode uint64
}

func (n Node) IsDirectory() bool { return n.Type == TypeDirectory }

// Stat is the full metadata record returned by the VFS Stat call, per §6.
type Stat struct {
	Size      int64
	Type      NodeType
	Mode      uint32
	UID, GID  uint32
	Atime     int64
	Mtime     int64
	Ctime     int64
	Blocks    int64
	BlockSize int64
}

// FSStat is filesystem-wide space/inode accounting, per statfs.
type FSStat struct {
	TotalBytes int64
	FreeBytes  int64
	BlockSize  int64
}

// File is the per-handle operation set a backend's OpenFile returns.
// Mirrors fat12.File and ramdisk's file handle exactly so both can
// satisfy this interface without adapter boilerplate.
type File interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(offset uint32) error
	Flush() error
	Close() error
	Size() uint32
	Position() uint32
}

// FileSystem is the operation table a mount dispatches to: every
// filesystem implementation (fat12, ramdisk) provides one. Unimplemented
// operations are allowed to be absent from the concrete type — callers
// type-assert against the optional interfaces below (Syncer, Labeler,
// StatfsProvider) rather than finding null function pointers.
type FileSystem interface {
	Lookup(path string) (Node, error)
	Readdir(path string) ([]Node, error)
	Stat(path string) (Stat, error)
	Create(path string) (Node, error)
	Mkdir(path string) (Node, error)
	Unlink(path string) error
	Rmdir(path string) error
	Rename(path, newName string) error
	OpenFile(path string) (File, error)
}

// Syncer is implemented by filesystems with something worth flushing.
type Syncer interface {
	Sync() error
}

// Labeler is implemented by filesystems that carry a volume label.
type Labeler interface {
	Label() (string, error)
}

// StatfsProvider is implemented by filesystems that can report
// filesystem-wide space accounting.
type StatfsProvider interface {
	Statfs() (FSStat, error)
}
