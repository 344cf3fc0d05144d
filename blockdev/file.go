package blockdev

import (
	"io"
	"os"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// FileDevice wraps an *os.File holding a disk image, for diskctl's on-disk
// image mode. Same read-your-writes contract as MemoryDevice since the OS
// file cache already guarantees it for a single open handle.
type FileDevice struct {
	name        string
	sectorSize  uint
	sectorCount uint64
	readOnly    bool
	file        *os.File
}

// OpenFileDevice opens an existing disk image file. sectorSize must divide
// the file's size evenly.
func OpenFileDevice(name string, sectorSize uint, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		return nil, coreerrors.ErrDeviceError.WrapError(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, coreerrors.ErrDeviceError.WrapError(err)
	}
	if uint64(info.Size())%uint64(sectorSize) != 0 {
		f.Close()
		return nil, coreerrors.ErrInvalidArgument.WithMessage("image size is not a multiple of sector size")
	}
	return &FileDevice{
		name:        name,
		sectorSize:  sectorSize,
		sectorCount: uint64(info.Size()) / uint64(sectorSize),
		readOnly:    readOnly,
		file:        f,
	}, nil
}

// CreateFileDevice creates a new zero-filled disk image of sectorCount
// sectors and opens it as a FileDevice.
func CreateFileDevice(name string, sectorSize uint, sectorCount uint64) (*FileDevice, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, coreerrors.ErrDeviceError.WrapError(err)
	}
	if err := f.Truncate(int64(sectorCount) * int64(sectorSize)); err != nil {
		f.Close()
		return nil, coreerrors.ErrDeviceError.WrapError(err)
	}
	return &FileDevice{
		name:        name,
		sectorSize:  sectorSize,
		sectorCount: sectorCount,
		file:        f,
	}, nil
}

func (d *FileDevice) Name() string        { return d.name }
func (d *FileDevice) Model() string       { return "disk image" }
func (d *FileDevice) SectorSize() uint    { return d.sectorSize }
func (d *FileDevice) SectorCount() uint64 { return d.sectorCount }
func (d *FileDevice) Geometry() Geometry  { return Geometry{} }
func (d *FileDevice) Present() bool       { return true }
func (d *FileDevice) Removable() bool     { return false }
func (d *FileDevice) ReadOnly() bool      { return d.readOnly }

func (d *FileDevice) checkBounds(lba uint64, count uint) error {
	if count == 0 {
		return coreerrors.ErrInvalidArgument.WithMessage("count must be > 0")
	}
	if lba+uint64(count) > d.sectorCount {
		return coreerrors.ErrInvalidArgument.WithMessage("request extends past end of device")
	}
	return nil
}

func (d *FileDevice) Read(lba uint64, count uint, buf []byte) (uint, error) {
	if err := d.checkBounds(lba, count); err != nil {
		return 0, err
	}
	want := int(count) * int(d.sectorSize)
	if len(buf) < want {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("buf too small")
	}
	n, err := d.file.ReadAt(buf[:want], int64(lba)*int64(d.sectorSize))
	sectorsRead := uint(n) / d.sectorSize
	if err != nil && err != io.EOF {
		return sectorsRead, coreerrors.ErrDeviceError.WrapError(err)
	}
	return sectorsRead, nil
}

func (d *FileDevice) Write(lba uint64, count uint, buf []byte) (uint, error) {
	if d.readOnly {
		return 0, coreerrors.ErrReadOnly
	}
	if err := d.checkBounds(lba, count); err != nil {
		return 0, err
	}
	want := int(count) * int(d.sectorSize)
	if len(buf) < want {
		return 0, coreerrors.ErrInvalidArgument.WithMessage("buf too small")
	}
	n, err := d.file.WriteAt(buf[:want], int64(lba)*int64(d.sectorSize))
	sectorsWritten := uint(n) / d.sectorSize
	if err != nil {
		return sectorsWritten, coreerrors.ErrDeviceError.WrapError(err)
	}
	return sectorsWritten, nil
}

// Sync flushes the OS file cache to stable storage.
func (d *FileDevice) Sync() error {
	if err := d.file.Sync(); err != nil {
		return coreerrors.ErrDeviceError.WrapError(err)
	}
	return nil
}

func (d *FileDevice) Eject() error {
	return coreerrors.ErrInvalidArgument.WithMessage("file device is not removable")
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error {
	return d.file.Close()
}
