// Package fat12 interprets and mutates the FAT12 on-disk format atop a
// blockdev.Device: boot sector parsing, the 12-bit FAT, cluster chains,
// 8.3 directory entries, and mkfs.
package fat12

import (
	"bytes"
	"encoding/binary"
	"fmt"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// SectorSize is the only sector size this engine speaks. The BPB carries
// its own bytes_per_sector field but mount rejects anything else.
const SectorSize = 512

// DirentSize is the size of a single packed directory entry, in bytes.
const DirentSize = 32

// RawBootSector is the first 512-byte sector, decoded field-for-field per
// the byte-exact layout in §6 of the on-disk format. All multi-byte
// integers are little-endian.
type RawBootSector struct {
	JumpInstruction  [3]byte
	OEMName          [8]byte
	BytesPerSector   uint16
	SectorsPerCluster uint8
	ReservedSectors  uint16
	NumFATs          uint8
	RootEntryCount   uint16
	TotalSectors16   uint16
	MediaType        uint8
	SectorsPerFAT    uint16
	SectorsPerTrack  uint16
	Heads            uint16
	HiddenSectors    uint32
	TotalSectors32   uint32
	DriveNumber      uint8
	_                uint8 // reserved
	ExtendedSignature uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	FSType           [8]byte
}

// BootSector extends RawBootSector with the layout values derived from it
// at mount time.
type BootSector struct {
	RawBootSector

	TotalSectors   uint
	FATStart       uint
	RootStart      uint
	RootSectors    uint
	DataStart      uint
	TotalClusters  uint
	BytesPerCluster uint
}

// ReadBootSector decodes sector 0 of raw into a BootSector, deriving the
// FAT/root/data layout and validating the invariants mount depends on.
// Returns Corrupt if validation fails; no partial state is returned.
func ReadBootSector(raw []byte) (*BootSector, error) {
	if len(raw) < SectorSize {
		return nil, coreerrors.ErrInvalidArgument.WithMessage("boot sector buffer shorter than 512 bytes")
	}

	var rawHeader RawBootSector
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &rawHeader); err != nil {
		return nil, coreerrors.ErrCorrupt.WrapError(err)
	}

	if rawHeader.BytesPerSector != 512 {
		return nil, coreerrors.ErrCorrupt.WithMessage(
			fmt.Sprintf("bytes_per_sector must be 512, got %d", rawHeader.BytesPerSector))
	}
	if rawHeader.NumFATs < 1 {
		return nil, coreerrors.ErrCorrupt.WithMessage("num_fats must be >= 1")
	}
	switch rawHeader.SectorsPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		return nil, coreerrors.ErrCorrupt.WithMessage(
			fmt.Sprintf("sectors_per_cluster must be a power of 2 in [1,128], got %d", rawHeader.SectorsPerCluster))
	}
	if raw[510] != 0x55 || raw[511] != 0xAA {
		return nil, coreerrors.ErrCorrupt.WithMessage("missing boot signature 0x55AA")
	}

	fatStart := uint(rawHeader.ReservedSectors)
	rootStart := fatStart + uint(rawHeader.NumFATs)*uint(rawHeader.SectorsPerFAT)
	rootSectors := (uint(rawHeader.RootEntryCount)*DirentSize + SectorSize - 1) / SectorSize
	dataStart := rootStart + rootSectors

	totalSectors := uint(rawHeader.TotalSectors16)
	if totalSectors == 0 {
		totalSectors = uint(rawHeader.TotalSectors32)
	}

	if totalSectors < dataStart {
		return nil, coreerrors.ErrCorrupt.WithMessage("total_sectors smaller than reserved+FAT+root region")
	}
	totalClusters := (totalSectors - dataStart) / uint(rawHeader.SectorsPerCluster)

	bytesPerCluster := uint(rawHeader.BytesPerSector) * uint(rawHeader.SectorsPerCluster)
	if bytesPerCluster > 32768 {
		return nil, coreerrors.ErrCorrupt.WithMessage(
			fmt.Sprintf("bytes_per_cluster cannot exceed 32768, got %d", bytesPerCluster))
	}

	return &BootSector{
		RawBootSector:   rawHeader,
		TotalSectors:    totalSectors,
		FATStart:        fatStart,
		RootStart:       rootStart,
		RootSectors:     rootSectors,
		DataStart:       dataStart,
		TotalClusters:   totalClusters,
		BytesPerCluster: bytesPerCluster,
	}, nil
}
