package fat12

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/retrofuture-os/coreos/blockdev"
	"github.com/retrofuture-os/coreos/disks"
	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// FormatParams is the geometry calcParams chooses for Format. See
// disks.Preset for the tiers this engine picks between when auto-sizing.
type FormatParams struct {
	TotalSectors      uint
	BytesPerSector    uint16
	ReservedSectors   uint16
	NumFATs           uint8
	SectorsPerCluster uint8
	RootEntryCount    uint16
	SectorsPerTrack   uint16
	Heads             uint16
	MediaType         uint8
	SectorsPerFAT     uint16
}

// calcParams picks sectors_per_cluster, root_entry_count, and geometry
// defaults by disk size tier, then doubles sectors_per_cluster until the
// resulting data-cluster count fits the FAT12 upper bound of 4084.
func calcParams(totalSectors uint) FormatParams {
	preset := disks.PresetFor(uint64(totalSectors))

	p := FormatParams{
		TotalSectors:      totalSectors,
		BytesPerSector:    SectorSize,
		ReservedSectors:   1,
		NumFATs:           2,
		SectorsPerCluster: preset.SectorsPerCluster,
		RootEntryCount:    preset.RootEntryCount,
		SectorsPerTrack:   preset.SectorsPerTrack,
		Heads:             preset.Heads,
		MediaType:         preset.MediaType,
	}

	for {
		rootSectors := (uint(p.RootEntryCount)*DirentSize + SectorSize - 1) / SectorSize
		dataSectors := totalSectors - uint(p.ReservedSectors) - rootSectors

		estClusters := dataSectors / uint(p.SectorsPerCluster)
		fatBytes := (estClusters*3+1)/2 + 3
		sectorsPerFAT := (fatBytes + SectorSize - 1) / SectorSize
		p.SectorsPerFAT = uint16(sectorsPerFAT)

		finalData := dataSectors - uint(p.NumFATs)*sectorsPerFAT
		finalClusters := finalData / uint(p.SectorsPerCluster)
		if finalClusters <= 4084 {
			break
		}
		p.SectorsPerCluster *= 2
	}

	return p
}

// Format writes a fresh FAT12 volume to dev: boot sector, every FAT copy,
// and a root directory holding only the volume label entry. Destructive
// and non-atomic — a write failure partway leaves the disk in an
// undefined state; callers own any "are you sure" prompt.
func Format(dev blockdev.Device, label string) error {
	totalSectors := uint(dev.SectorCount())
	params := calcParams(totalSectors)

	sector := make([]byte, SectorSize)
	w := bytewriter.New(sector)

	w.Write([]byte{0xEB, 0x3C, 0x90})
	writePadded(w, "CORE12", 8)

	binary.Write(w, binary.LittleEndian, params.BytesPerSector)
	w.Write([]byte{byte(params.SectorsPerCluster)})
	binary.Write(w, binary.LittleEndian, params.ReservedSectors)
	w.Write([]byte{byte(params.NumFATs)})
	binary.Write(w, binary.LittleEndian, params.RootEntryCount)

	if params.TotalSectors < 65536 {
		binary.Write(w, binary.LittleEndian, uint16(params.TotalSectors))
	} else {
		binary.Write(w, binary.LittleEndian, uint16(0))
	}
	w.Write([]byte{params.MediaType})
	binary.Write(w, binary.LittleEndian, params.SectorsPerFAT)
	binary.Write(w, binary.LittleEndian, params.SectorsPerTrack)
	binary.Write(w, binary.LittleEndian, params.Heads)
	binary.Write(w, binary.LittleEndian, uint32(0)) // hidden sectors

	if params.TotalSectors >= 65536 {
		binary.Write(w, binary.LittleEndian, uint32(params.TotalSectors))
	} else {
		binary.Write(w, binary.LittleEndian, uint32(0))
	}

	w.Write([]byte{0x00})                    // drive number
	w.Write([]byte{0x00})                    // reserved
	w.Write([]byte{0x29})                    // extended boot signature
	binary.Write(w, binary.LittleEndian, generateVolumeID())

	rawLabel11, err := EncodeLabel11(label)
	if err != nil {
		return err
	}
	w.Write(rawLabel11[:])

	writePadded(w, "FAT12", 8)

	sector[510] = 0x55
	sector[511] = 0xAA

	if n, err := dev.Write(0, 1, sector); err != nil || n != 1 {
		if err != nil {
			return err
		}
		return coreerrors.ErrDeviceError
	}

	fatStart := uint(params.ReservedSectors)
	for i := uint8(0); i < params.NumFATs; i++ {
		for s := uint(0); s < uint(params.SectorsPerFAT); s++ {
			fatSector := make([]byte, SectorSize)
			if s == 0 {
				fatSector[0] = params.MediaType
				fatSector[1] = 0xFF
				fatSector[2] = 0xFF
			}
			lba := fatStart + uint(i)*uint(params.SectorsPerFAT) + s
			if n, err := dev.Write(uint64(lba), 1, fatSector); err != nil || n != 1 {
				if err != nil {
					return err
				}
				return coreerrors.ErrDeviceError
			}
		}
	}

	rootStart := fatStart + uint(params.NumFATs)*uint(params.SectorsPerFAT)
	rootSectors := (uint(params.RootEntryCount)*DirentSize + SectorSize - 1) / SectorSize

	for s := uint(0); s < rootSectors; s++ {
		rootSector := make([]byte, SectorSize)
		if s == 0 {
			labelEntry, err := NewRawDirentForLabel(label, AttrVolumeLabel)
			if err != nil {
				return err
			}
			PutRawDirent(rootSector[0:DirentSize], labelEntry)
		}
		if n, err := dev.Write(uint64(rootStart+s), 1, rootSector); err != nil || n != 1 {
			if err != nil {
				return err
			}
			return coreerrors.ErrDeviceError
		}
	}

	return dev.Sync()
}

func writePadded(w io.Writer, s string, length int) {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, s)
	w.Write(buf)
}

// generateVolumeID synthesizes a volume serial number. The original
// firmware derives this from an RTC reading; with no clock in scope this
// engine uses a fixed constant instead of fabricating entropy it doesn't
// have.
func generateVolumeID() uint32 {
	return 0x12345678
}
