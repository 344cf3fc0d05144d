// Package blockdev hides the physical storage backend behind a uniform
// sector-addressed read/write interface with geometry metadata. Drivers
// above this package (fat12) never touch a file or a byte slice directly;
// they only ever see a Device.
package blockdev

// Kind tags what kind of physical (or virtual) medium backs a Device.
// Generalizes the original firmware's blkdev_type_t so the abstraction has
// room for device kinds this repo doesn't itself drive.
type Kind int

const (
	KindUnknown Kind = iota
	KindATA
	KindFloppy
	KindRAM
	KindCDROM
)

func (k Kind) String() string {
	switch k {
	case KindATA:
		return "ata"
	case KindFloppy:
		return "floppy"
	case KindRAM:
		return "ram"
	case KindCDROM:
		return "cdrom"
	default:
		return "unknown"
	}
}

// Geometry is optional CHS geometry, reported by devices that have it
// (floppy images, mostly). Drivers that don't know or care about CHS
// leave all three fields zero.
type Geometry struct {
	Cylinders uint
	Heads     uint
	SectorsPerTrack uint
}

// Device presents an arbitrary storage backend as a uniform
// sector-addressed read/write interface. Read and write never panic or
// return an error for a short transfer — they report how many sectors
// were actually moved and let the caller decide whether that's a failure.
type Device interface {
	// Name is a human-readable device name, e.g. "hda" or "fd0".
	Name() string
	// Model is a human-readable model string, may be empty.
	Model() string
	// SectorSize is the logical sector size in bytes. Always 512 for the
	// devices this module implements.
	SectorSize() uint
	// SectorCount is the total number of addressable sectors.
	SectorCount() uint64
	// Geometry returns CHS geometry, zero-valued if not applicable.
	Geometry() Geometry
	// Present reports whether the medium is currently inserted/attached.
	Present() bool
	// Removable reports whether the medium can be physically ejected.
	Removable() bool
	// ReadOnly reports whether writes are rejected outright.
	ReadOnly() bool

	// Read reads count contiguous sectors starting at lba into buf, which
	// must be at least count*SectorSize() bytes. Returns the number of
	// sectors actually read; a short read is not itself an error.
	Read(lba uint64, count uint, buf []byte) (uint, error)
	// Write is the dual of Read. On return, data is committed to the
	// device's own cache at minimum; Sync forces a deeper flush.
	Write(lba uint64, count uint, buf []byte) (uint, error)
	// Sync flushes any device-side cache. For backends that are already
	// synchronous on Write, this is a no-op that reports success.
	Sync() error
	// Eject releases the medium. Only meaningful for Removable() devices;
	// the devices in this package are not removable and return
	// ErrInvalidArgument.
	Eject() error
}
