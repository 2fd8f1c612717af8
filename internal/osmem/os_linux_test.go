//go:build linux

package osmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLinuxBackend_Lifecycle(t *testing.T) {
	b := New()
	ps := b.PageSize()

	id, err := b.Create(0, 2*ps, unix.PROT_READ|unix.PROT_WRITE, false)
	require.NoError(t, err)
	require.NotZero(t, id)

	info, err := b.Info(id)
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, 2*ps, info.Size)
	assert.Zero(t, info.Base%ps)
	assert.Equal(t, Native(unix.PROT_READ|unix.PROT_WRITE), info.Prot)
	assert.True(t, info.Committed)
	assert.False(t, info.Shared)

	bytesAt(info.Base, info.Size)[0] = 0x2a

	require.NoError(t, b.Protect(info.Base, info.Size, unix.PROT_READ))
	info, err = b.Info(id)
	require.NoError(t, err)
	assert.Equal(t, Native(unix.PROT_READ), info.Prot)

	require.NoError(t, b.Delete(id))
	_, err = b.Info(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, b.Delete(id), ErrNotFound)
}

func TestLinuxBackend_ExactPlacement(t *testing.T) {
	b := New()
	ps := b.PageSize()

	probe, err := b.Create(0, ps, unix.PROT_NONE, false)
	require.NoError(t, err)
	info, err := b.Info(probe)
	require.NoError(t, err)
	base := info.Base

	// Occupied: must not clobber.
	_, err = b.Create(base, ps, unix.PROT_READ, true)
	assert.ErrorIs(t, err, ErrInUse)

	require.NoError(t, b.Delete(probe))

	id, err := b.Create(base, ps, unix.PROT_READ|unix.PROT_WRITE, true)
	require.NoError(t, err)
	defer b.Delete(id)

	info, err = b.Info(id)
	require.NoError(t, err)
	assert.Equal(t, base, info.Base)
}

func TestLinuxBackend_ProtectUnmapped(t *testing.T) {
	b := New()
	ps := b.PageSize()

	id, err := b.Create(0, ps, unix.PROT_READ, false)
	require.NoError(t, err)
	info, err := b.Info(id)
	require.NoError(t, err)
	require.NoError(t, b.Delete(id))

	err = b.Protect(info.Base, ps, unix.PROT_READ)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinuxBackend_OpenFindsReservation(t *testing.T) {
	b := New()
	ps := b.PageSize()

	id, err := b.Create(0, ps, unix.PROT_READ, false)
	require.NoError(t, err)
	defer b.Delete(id)
	want, err := b.Info(id)
	require.NoError(t, err)

	c, err := b.Open(want.Base)
	require.NoError(t, err)
	defer c.Close()

	var got AreaInfo
	require.True(t, c.Next(&got))
	assert.True(t, got.Contains(want.Base))
	assert.Equal(t, want.Prot, got.Prot)
}

func TestLinuxBackend_LockUnlock(t *testing.T) {
	b := New()
	ps := b.PageSize()

	id, err := b.Create(0, ps, unix.PROT_READ|unix.PROT_WRITE, false)
	require.NoError(t, err)
	defer b.Delete(id)
	info, err := b.Info(id)
	require.NoError(t, err)

	if err := b.Lock(info.Base, ps); err != nil {
		t.Skipf("mlock not permitted here: %v", err)
	}
	require.NoError(t, b.Unlock(info.Base, ps))
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("op", unix.ENOMEM), ErrNoMemory)
	assert.ErrorIs(t, classify("op", unix.EEXIST), ErrInUse)
	assert.ErrorIs(t, classify("op", unix.EINVAL), ErrBadValue)
	assert.ErrorIs(t, classify("op", unix.EFAULT), ErrBadAddress)

	err := classify("op", unix.EIO)
	assert.ErrorIs(t, err, unix.EIO)
	for _, kind := range []error{ErrNoMemory, ErrInUse, ErrBadValue, ErrBadAddress, ErrNotFound} {
		assert.NotErrorIs(t, err, kind)
	}
}
