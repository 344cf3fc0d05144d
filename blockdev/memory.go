package blockdev

import (
	"io"

	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a Device backed entirely by memory, via
// bytesextra.NewReadWriteSeeker over a fixed-size byte slice. It's the
// backing store for tests; diskctl always uses a FileDevice.
type MemoryDevice struct {
	name        string
	sectorSize  uint
	sectorCount uint64
	readOnly    bool
	stream      io.ReadWriteSeeker
}

// NewMemoryDevice allocates a zeroed in-memory device of sectorCount
// sectors, each sectorSize bytes.
func NewMemoryDevice(name string, sectorSize uint, sectorCount uint64) *MemoryDevice {
	buf := make([]byte, sectorSize*uint(sectorCount))
	return &MemoryDevice{
		name:        name,
		sectorSize:  sectorSize,
		sectorCount: sectorCount,
		stream:      bytesextra.NewReadWriteSeeker(buf),
	}
}

// NewMemoryDeviceFromBytes wraps an existing image already loaded into
// memory, e.g. one produced by unpacking a fixture.
func NewMemoryDeviceFromBytes(name string, sectorSize uint, image []byte) *MemoryDevice {
	return &MemoryDevice{
		name:        name,
		sectorSize:  sectorSize,
		sectorCount: uint64(len(image)) / uint64(sectorSize),
		stream:      bytesextra.NewReadWriteSeeker(image),
	}
}

func (d *MemoryDevice) Name() string          { return d.name }
func (d *MemoryDevice) Model() string         { return "memory" }
func (d *MemoryDevice) SectorSize() uint      { return d.sectorSize }
func (d *MemoryDevice) SectorCount() uint64   { return d.sectorCount }
func (d *MemoryDevice) Geometry() Geometry    { return Geometry{} }
func (d *MemoryDevice) Present() bool         { return true }
func (d *MemoryDevice) Removable() bool       { return false }
func (d *MemoryDevice) ReadOnly() bool        { return d.readOnly }
func (d *MemoryDevice) SetReadOnly(ro bool)   { d.readOnly = ro }

func (d *MemoryDevice) checkBounds(lba uint64, count uint) error {
	if count == 0 {
		return coreerrors.ErrInvalidArgument.WithMessage("count must be > 0")
	}
	if lba+uint64(count) > d.sectorCount {
		return coreerrors.ErrInvalidArgument.WithMessage("request extends past end of device")
	}
	return nil
}

func (d *MemoryDevice) seek(lba uint64) error {
	_, err := d.stream.Seek(int64(lba)*int64(d.sectorSize), io.SeekStart)
	if err != nil {
		return coreerrors.ErrDeviceError.WrapError(err)
	}
	return nil
}

// Read reads count contiguous sectors starting at lba into buf. Returns the
// number of sectors actually read; a short read from the underlying stream
// is reported via the return count, not an error, matching the
// read-your-writes contract's "never throws" requirement.
func (d *MemoryDevice) Read(lba uint64, count uint, buf []byte) (uint, error) {
	if err := d.checkBounds(lba, count); err != nil {
		return 0, err
	}
	if err := d.seek(lba); err != nil {
		return 0, err
	}
	want := int(count) * int(d.sectorSize)
	if len(buf) < want {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("buf too small")
	}
	n, err := io.ReadFull(d.stream, buf[:want])
	sectorsRead := uint(n) / d.sectorSize
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return sectorsRead, coreerrors.ErrDeviceError.WrapError(err)
	}
	return sectorsRead, nil
}

// Write is the dual of Read. MemoryDevice's backing stream commits
// synchronously, so Sync is a no-op.
func (d *MemoryDevice) Write(lba uint64, count uint, buf []byte) (uint, error) {
	if d.readOnly {
		return 0, coreerrors.ErrReadOnly
	}
	if err := d.checkBounds(lba, count); err != nil {
		return 0, err
	}
	if err := d.seek(lba); err != nil {
		return 0, err
	}
	want := int(count) * int(d.sectorSize)
	if len(buf) < want {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("buf too small")
	}
	n, err := d.stream.Write(buf[:want])
	sectorsWritten := uint(n) / d.sectorSize
	if err != nil {
		return sectorsWritten, coreerrors.ErrDeviceError.WrapError(err)
	}
	return sectorsWritten, nil
}

// Sync is a no-op: writes to the in-memory stream are already durable for
// the lifetime of the process, same as the original firmware's PIO-backed
// ata_blkdev_sync.
func (d *MemoryDevice) Sync() error {
	return nil
}

func (d *MemoryDevice) Eject() error {
	return coreerrors.ErrInvalidArgument.WithMessage("memory device is not removable")
}
