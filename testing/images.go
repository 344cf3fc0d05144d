// Package testing holds disk-image fixtures shared across this module's
// test suites, the same role the teacher's own testing package plays:
// give every *_test.go file one place to get a ready-to-use device or
// volume instead of re-deriving boilerplate setup per package.
package testing

import (
	"testing"

	"github.com/retrofuture-os/coreos/blockdev"
	"github.com/retrofuture-os/coreos/fat12"
	"github.com/stretchr/testify/require"
)

// NewBlankDevice returns a zeroed in-memory block device of the given
// size, the RAM-backed counterpart of LoadDiskImage's decompressed
// stream.
func NewBlankDevice(t *testing.T, sectorSize, totalSectors uint) blockdev.Device {
	t.Helper()
	return blockdev.NewMemoryDevice("test-image", sectorSize, uint64(totalSectors))
}

// NewFormattedVolume formats a blank in-memory device and mounts it,
// returning the ready-to-use FileSystem. Most fat12 tests start here
// instead of hand-assembling a boot sector.
func NewFormattedVolume(t *testing.T, totalSectors uint, label string) *fat12.FileSystem {
	t.Helper()

	dev := NewBlankDevice(t, fat12.SectorSize, totalSectors)
	require.NoError(t, fat12.Format(dev, label))

	fs, err := fat12.Mount(dev)
	require.NoError(t, err)
	return fs
}

// NewFloppyVolume is NewFormattedVolume sized to the classic 1.44M
// floppy's 2880 sectors, the geometry scenario S1-S6 in spec.md §8 are
// framed against.
func NewFloppyVolume(t *testing.T, label string) *fat12.FileSystem {
	t.Helper()
	return NewFormattedVolume(t, 2880, label)
}
