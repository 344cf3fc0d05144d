package blockdev_test

import (
	"testing"

	"github.com/retrofuture-os/coreos/blockdev"
	coreerrors "github.com/retrofuture-os/coreos/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDevice_ReadYourWrites(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 16)

	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}

	n, err := dev.Write(3, 1, data)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	readBack := make([]byte, 512)
	n, err = dev.Read(3, 1, readBack)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, data, readBack)
}

func TestMemoryDevice_ReadPastEndIsError(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 4)
	buf := make([]byte, 512*2)

	_, err := dev.Read(3, 2, buf)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidArgument)
}

func TestMemoryDevice_WriteRejectedWhenReadOnly(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 4)
	dev.SetReadOnly(true)

	_, err := dev.Write(0, 1, make([]byte, 512))
	assert.ErrorIs(t, err, coreerrors.ErrReadOnly)
}

func TestMemoryDevice_SyncIsNoop(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 1)
	assert.NoError(t, dev.Sync())
}

func TestMemoryDevice_EjectNotSupported(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 1)
	assert.Error(t, dev.Eject())
}

func TestMemoryDevice_MultiSectorReadWrite(t *testing.T) {
	dev := blockdev.NewMemoryDevice("test0", 512, 8)
	data := make([]byte, 512*3)
	for i := range data {
		data[i] = byte(i % 251)
	}

	n, err := dev.Write(2, 3, data)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	readBack := make([]byte, 512*3)
	n, err = dev.Read(2, 3, readBack)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, data, readBack)
}
