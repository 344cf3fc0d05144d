package ramdisk_test

import (
	"testing"

	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/retrofuture-os/coreos/ramdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_DuplicateNameRejected(t *testing.T) {
	r := ramdisk.New(4, 4096)
	require.NoError(t, r.Create("readme.txt"))
	err := r.Create("README.TXT")
	assert.Equal(t, coreerrors.ErrAlreadyExists, err)
}

func TestCreate_SlotTableExhaustion(t *testing.T) {
	r := ramdisk.New(2, 4096)
	require.NoError(t, r.Create("a"))
	require.NoError(t, r.Create("b"))
	err := r.Create("c")
	assert.Equal(t, coreerrors.ErrNoSlots, err)
}

func TestHandle_WriteThenReadBack(t *testing.T) {
	r := ramdisk.New(4, 4096)
	h, err := r.Open("notes.txt", true, false)
	require.NoError(t, err)

	n, err := h.Write([]byte("hello ramdisk"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	require.NoError(t, h.Seek(0))
	buf := make([]byte, 13)
	n, err = h.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, "hello ramdisk", string(buf))
}

func TestHandle_WriteGrowsArenaSpanAcrossRoundUp(t *testing.T) {
	// The first write takes one 4K span; regrowing bump-allocates a fresh
	// 8K span without reclaiming the first, so the arena needs 12K.
	r := ramdisk.New(2, 3*ramdisk.ArenaRoundUp)
	h, err := r.Open("big.bin", true, false)
	require.NoError(t, err)

	first := make([]byte, 100)
	_, err = h.Write(first)
	require.NoError(t, err)

	// Force the span past the first 4K round-up so the handle has to
	// reallocate and copy forward.
	require.NoError(t, h.Seek(0))
	second := make([]byte, ramdisk.ArenaRoundUp+1)
	n, err := h.Write(second)
	require.NoError(t, err)
	assert.Equal(t, len(second), n)
	assert.EqualValues(t, len(second), h.Size())
}

func TestHandle_AppendSeeksToEnd(t *testing.T) {
	r := ramdisk.New(4, 4096)
	h, err := r.Open("log.txt", true, false)
	require.NoError(t, err)
	_, err = h.Write([]byte("line one\n"))
	require.NoError(t, err)

	h2, err := r.Open("log.txt", true, true)
	require.NoError(t, err)
	assert.EqualValues(t, 9, h2.Position())

	_, err = h2.Write([]byte("line two\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 18, h2.Size())
}

func TestOpen_NonexistentReadOnlyFails(t *testing.T) {
	r := ramdisk.New(4, 4096)
	_, err := r.Open("missing.txt", false, false)
	assert.Equal(t, coreerrors.ErrNotFound, err)
}

func TestOpen_WriteAutoCreatesFile(t *testing.T) {
	r := ramdisk.New(4, 4096)
	_, err := r.Open("new.txt", true, false)
	require.NoError(t, err)

	_, err = r.Stat("new.txt")
	require.NoError(t, err)
}

func TestDelete_DoesNotReclaimArena(t *testing.T) {
	r := ramdisk.New(4, 4096)
	h, err := r.Open("a.txt", true, false)
	require.NoError(t, err)
	_, err = h.Write(make([]byte, 100))
	require.NoError(t, err)

	before := r.FreeBytes()
	require.NoError(t, r.Delete("a.txt"))
	after := r.FreeBytes()

	assert.Equal(t, before, after, "deleting must not give back arena space")
	assert.NotZero(t, r.FragmentedBytes())
}

func TestRename_ToExistingNameRejected(t *testing.T) {
	r := ramdisk.New(4, 4096)
	require.NoError(t, r.Create("a.txt"))
	require.NoError(t, r.Create("b.txt"))
	err := r.Rename("a.txt", "b.txt")
	assert.Equal(t, coreerrors.ErrAlreadyExists, err)
}

func TestList_ReflectsFlatNamespace(t *testing.T) {
	r := ramdisk.New(4, 4096)
	require.NoError(t, r.Create("a.txt"))
	require.NoError(t, r.Create("b.txt"))
	entries := r.List()
	assert.Len(t, entries, 2)
}
