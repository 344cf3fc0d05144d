package fat12_test

import (
	"testing"

	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/retrofuture-os/coreos/fat12"
	"github.com/retrofuture-os/coreos/internal/integrity"
	coretest "github.com/retrofuture-os/coreos/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1 — Format then list.
func TestFormatThenList(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	entries, err := fs.Readdir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "HELLO", entries[0].Name)
	assert.True(t, entries[0].IsVolumeLabel())

	require.NoError(t, integrity.Scan(fs))
}

// S2 — Write, close, reopen, read.
func TestWriteCloseReopenRead(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	_, err := fs.Create("/A.TXT", 0)
	require.NoError(t, err)

	f, err := fs.OpenFile("/A.TXT")
	require.NoError(t, err)
	n, err := f.Write([]byte("Hello World!\n"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())

	f2, err := fs.OpenFile("/A.TXT")
	require.NoError(t, err)
	buf := make([]byte, 512)
	n, err = f2.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, "Hello World!\n", string(buf[:n]))

	require.NoError(t, integrity.Scan(fs))
}

// S3 — Cluster-boundary write.
func TestClusterBoundaryWrite(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")
	require.EqualValues(t, 1, fs.Boot.SectorsPerCluster)

	_, err := fs.Create("/B.BIN", 0)
	require.NoError(t, err)

	f, err := fs.OpenFile("/B.BIN")
	require.NoError(t, err)

	data := make([]byte, 1024)
	for i := range data {
		data[i] = 0xAB
	}
	n, err := f.Write(data)
	require.NoError(t, err)
	assert.Equal(t, 1024, n)
	require.NoError(t, f.Close())

	dirent, err := fs.Stat("/B.BIN")
	require.NoError(t, err)
	chain, err := fs.Chain(dirent.FirstCluster)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chain), 2)

	f2, err := fs.OpenFile("/B.BIN")
	require.NoError(t, err)
	readBack := make([]byte, 1024)
	n, err = f2.Read(readBack)
	require.NoError(t, err)
	assert.Equal(t, 1024, n)
	for _, b := range readBack {
		assert.Equal(t, byte(0xAB), b)
	}

	require.NoError(t, integrity.Scan(fs))
}

// S4 — Unlink reclaims.
func TestUnlinkReclaims(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	f1, err := fs.FreeClusterCount()
	require.NoError(t, err)

	_, err = fs.Create("/C.DAT", 0)
	require.NoError(t, err)
	f, err := fs.OpenFile("/C.DAT")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 4096))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, err := fs.FreeClusterCount()
	require.NoError(t, err)
	assert.Less(t, f2, f1)

	require.NoError(t, fs.Delete("/C.DAT"))

	f3, err := fs.FreeClusterCount()
	require.NoError(t, err)
	assert.Equal(t, f1, f3)

	require.NoError(t, integrity.Scan(fs))
}

// S5 — mkdir and rmdir.
func TestMkdirRmdir(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	dir, err := fs.Mkdir("/DIR1")
	require.NoError(t, err)

	entries, err := fs.Readdir("/DIR1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, dir.FirstCluster, entries[0].FirstCluster)
	assert.Equal(t, "..", entries[1].Name)
	assert.EqualValues(t, 0, entries[1].FirstCluster)

	require.NoError(t, integrity.Scan(fs))

	require.NoError(t, fs.Rmdir("/DIR1"))
	_, err = fs.Stat("/DIR1")
	assert.Equal(t, coreerrors.ErrNotFound, err)

	require.NoError(t, integrity.Scan(fs))
}

// S6 — Path normalization is covered in vfs_test.go; this just checks the
// REDESIGN FLAG multi-level path resolution this engine adds on top.
func TestMultiLevelCreateAndMkdir(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	_, err := fs.Mkdir("/DIR1")
	require.NoError(t, err)

	_, err = fs.Create("/DIR1/X.TXT", 0)
	require.NoError(t, err)

	f, err := fs.OpenFile("/DIR1/X.TXT")
	require.NoError(t, err)
	_, err = f.Write([]byte("nested"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := fs.Readdir("/DIR1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.NoError(t, integrity.Scan(fs))
}

// Invariant 9: round-trip 8.3 name encoding.
func TestRoundTrip83Name(t *testing.T) {
	nameBytes, extBytes, err := fat12.EncodeName83("foo.txt")
	require.NoError(t, err)
	decoded := fat12.DecodeName83(nameBytes, extBytes)
	assert.Equal(t, "FOO.TXT", decoded)
}

// Invariant 10: delete-restore impossibility.
func TestDeleteThenOpenFails(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")
	_, err := fs.Create("/D.TXT", 0)
	require.NoError(t, err)
	require.NoError(t, fs.Delete("/D.TXT"))

	_, err = fs.OpenFile("/D.TXT")
	assert.Error(t, err)
}

func TestDirectoryExtendsWhenFull(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")
	_, err := fs.Mkdir("/BIGDIR")
	require.NoError(t, err)

	// One cluster at sectors_per_cluster=1 holds 16 entries; "." and ".."
	// already take two, so filling past 14 more forces a chain extension.
	for i := 0; i < 20; i++ {
		name := "/BIGDIR/F" + string(rune('A'+i)) + ".TXT"
		_, err := fs.Create(name, 0)
		require.NoError(t, err)
	}

	entries, err := fs.Readdir("/BIGDIR")
	require.NoError(t, err)
	assert.Len(t, entries, 22)

	require.NoError(t, integrity.Scan(fs))
}

func TestRootDirectoryFullFailsNoSpace(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")

	// The floppy preset's root holds 224 entries; one is already the
	// volume label.
	var lastErr error
	for i := 0; i < 230; i++ {
		name := "/F" + paddedDigits(i) + ".TXT"
		_, lastErr = fs.Create(name, 0)
		if lastErr != nil {
			break
		}
	}
	assert.ErrorIs(t, lastErr, coreerrors.ErrNoSpace)
}

func paddedDigits(i int) string {
	digits := "0123456789"
	return string(digits[(i/100)%10]) + string(digits[(i/10)%10]) + string(digits[i%10])
}
