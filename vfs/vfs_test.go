package vfs_test

import (
	"testing"

	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/retrofuture-os/coreos/fat12"
	"github.com/retrofuture-os/coreos/ramdisk"
	coretest "github.com/retrofuture-os/coreos/testing"
	"github.com/retrofuture-os/coreos/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S6 — Path normalization.
func TestNormalize(t *testing.T) {
	p, err := vfs.Normalize("/a/b/./../c/", "/")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", p)

	p, err = vfs.Normalize("../x", "/a/b")
	require.NoError(t, err)
	assert.Equal(t, "/a/x", p)

	p, err = vfs.Normalize("", "/a")
	require.NoError(t, err)
	assert.Equal(t, "/a", p)
}

// Invariant 6: normalization is idempotent.
func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []string{"/a/b/./../c/", "../x", "", "/", "//a//b//", "/a/../../b"}
	for _, raw := range cases {
		first, err := vfs.Normalize(raw, "/a/b")
		require.NoError(t, err)
		second, err := vfs.Normalize(first, "/a/b")
		require.NoError(t, err)
		assert.Equal(t, first, second, "normalize(normalize(%q)) should be stable", raw)
	}
}

func newMountedFAT12(t *testing.T) *vfs.VFS {
	t.Helper()
	fs := coretest.NewFloppyVolume(t, "HELLO")
	v := vfs.New()
	_, err := v.Mount("/", fat12.NewDriver(fs), false)
	require.NoError(t, err)
	return v
}

func TestOpenCreateWriteReadClose(t *testing.T) {
	v := newMountedFAT12(t)

	h, err := v.Open("/a.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)
	n, err := v.Write(h, []byte("hello vfs"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	require.NoError(t, v.Close(h))

	h2, err := v.Open("/a.txt", vfs.ORDONLY)
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, err = v.Read(h2, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello vfs", string(buf[:n]))
	require.NoError(t, v.Close(h2))
}

func TestOpenNonexistentWithoutCreateFails(t *testing.T) {
	v := newMountedFAT12(t)
	_, err := v.Open("/missing.txt", vfs.ORDONLY)
	assert.Equal(t, coreerrors.ErrNotFound, err)
}

func TestWriteRejectedOnReadOnlyMount(t *testing.T) {
	fs := coretest.NewFloppyVolume(t, "HELLO")
	v := vfs.New()
	_, err := v.Mount("/", fat12.NewDriver(fs), true)
	require.NoError(t, err)

	_, err = v.Open("/a.txt", vfs.OWRONLY|vfs.OCREAT)
	assert.Equal(t, coreerrors.ErrReadOnly, err)
}

func TestSeekWhenceVariants(t *testing.T) {
	v := newMountedFAT12(t)
	h, err := v.Open("/s.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)
	_, err = v.Write(h, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, v.Close(h))

	h2, err := v.Open("/s.txt", vfs.ORDONLY)
	require.NoError(t, err)

	pos, err := v.Seek(h2, 3, vfs.SeekSet)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pos)

	pos, err = v.Seek(h2, 2, vfs.SeekCur)
	require.NoError(t, err)
	assert.EqualValues(t, 5, pos)

	pos, err = v.Seek(h2, -4, vfs.SeekEnd)
	require.NoError(t, err)
	assert.EqualValues(t, 6, pos)

	_, err = v.Seek(h2, -100, vfs.SeekSet)
	assert.Error(t, err)
}

func TestCloseInvalidatesHandle(t *testing.T) {
	v := newMountedFAT12(t)
	h, err := v.Open("/t.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)
	require.NoError(t, v.Close(h))

	_, err = v.Read(h, make([]byte, 1))
	assert.Error(t, err)
}

func TestOpendirReaddirnextRewinddir(t *testing.T) {
	v := newMountedFAT12(t)
	_, err := v.Open("/x.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)

	dh, err := v.Opendir("/")
	require.NoError(t, err)

	var names []string
	for {
		n, ok, err := v.Readdirnext(dh)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "X.TXT")
	assert.Contains(t, names, "HELLO")

	require.NoError(t, v.Rewinddir(dh))
	_, ok, err := v.Readdirnext(dh)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, v.Closedir(dh))
}

// Longest-prefix mount resolution across two simultaneously mounted
// backends: one FAT12 volume at "/", one ramdisk at "/ram".
func TestLongestPrefixMountResolution(t *testing.T) {
	fatFS := coretest.NewFloppyVolume(t, "ROOT")
	ram := ramdisk.New(8, 16384)

	v := vfs.New()
	_, err := v.Mount("/", fat12.NewDriver(fatFS), false)
	require.NoError(t, err)
	_, err = v.Mount("/ram", ramdisk.NewDriver(ram), false)
	require.NoError(t, err)

	h, err := v.Open("/ram/scratch.bin", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)
	_, err = v.Write(h, []byte("ramside"))
	require.NoError(t, err)
	require.NoError(t, v.Close(h))

	// Confirm it landed on the ramdisk, not the FAT12 root: the FAT12
	// root listing should not show it.
	entries, err := v.Readdir("/")
	require.NoError(t, err)
	for _, n := range entries {
		assert.NotEqual(t, "scratch.bin", n.Name)
	}

	s, err := ram.Stat("scratch.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 7, s.Size)
}

func TestUnmountClosesOpenHandles(t *testing.T) {
	fatFS := coretest.NewFloppyVolume(t, "HELLO")
	v := vfs.New()
	_, err := v.Mount("/", fat12.NewDriver(fatFS), false)
	require.NoError(t, err)

	h, err := v.Open("/u.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)

	require.NoError(t, v.Unmount("/"))

	_, err = v.Write(h, []byte("x"))
	assert.Error(t, err)
}

// Invariant 10, exercised through the VFS rather than fat12 directly.
func TestUnlinkThenOpenFailsNotFound(t *testing.T) {
	v := newMountedFAT12(t)
	h, err := v.Open("/d.txt", vfs.OWRONLY|vfs.OCREAT)
	require.NoError(t, err)
	require.NoError(t, v.Close(h))

	require.NoError(t, v.Unlink("/d.txt"))

	_, err = v.Open("/d.txt", vfs.ORDONLY)
	assert.Equal(t, coreerrors.ErrNotFound, err)
}
