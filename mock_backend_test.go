package region

import (
	"testing"

	"github.com/hupe1980/region/internal/osmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) PageSize() uintptr {
	args := m.Called()
	return args.Get(0).(uintptr)
}

func (m *MockBackend) Create(addr, size uintptr, prot osmem.Native, exact bool) (osmem.AreaID, error) {
	args := m.Called(addr, size, prot, exact)
	return args.Get(0).(osmem.AreaID), args.Error(1)
}

func (m *MockBackend) Delete(id osmem.AreaID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockBackend) Info(id osmem.AreaID) (osmem.AreaInfo, error) {
	args := m.Called(id)
	return args.Get(0).(osmem.AreaInfo), args.Error(1)
}

func (m *MockBackend) Protect(addr, size uintptr, prot osmem.Native) error {
	args := m.Called(addr, size, prot)
	return args.Error(0)
}

func (m *MockBackend) Open(origin uintptr) (osmem.Cursor, error) {
	args := m.Called(origin)
	if c := args.Get(0); c != nil {
		return c.(osmem.Cursor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Lock(addr, size uintptr) error {
	args := m.Called(addr, size)
	return args.Error(0)
}

func (m *MockBackend) Unlock(addr, size uintptr) error {
	args := m.Called(addr, size)
	return args.Error(0)
}

func newMockSpace(t *testing.T) (*Space, *MockBackend) {
	t.Helper()
	m := new(MockBackend)
	m.On("PageSize").Return(testPageSize)
	return NewSpace(withBackend(m)), m
}

func TestProtect_UnregisteredNeverReachesOS(t *testing.T) {
	s, m := newMockSpace(t)

	err := s.Protect(0x7f0000000000, testPageSize, ProtRead)
	require.ErrorIs(t, err, ErrUnmappedRegion)

	m.AssertNotCalled(t, "Protect", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "Info", mock.Anything)
}

func TestProtect_RefreshesBeforeProtecting(t *testing.T) {
	s, m := newMockSpace(t)

	const (
		id   osmem.AreaID = 7
		base uintptr      = 0x7f0000000000
	)
	info := osmem.AreaInfo{ID: id, Base: base, Size: 2 * testPageSize, Prot: ProtReadWrite.toNative(), Committed: true}

	m.On("Create", uintptr(0), 2*testPageSize, ProtReadWrite.toNative(), false).Return(id, nil).Once()
	m.On("Info", id).Return(info, nil)
	m.On("Protect", base+testPageSize, testPageSize, ProtRead.toNative()).Return(nil).Once()
	m.On("Delete", id).Return(nil).Once()

	a, err := s.Alloc(2*testPageSize, ProtReadWrite)
	require.NoError(t, err)

	require.NoError(t, s.Protect(base+testPageSize, 1, ProtRead))
	require.NoError(t, a.Close())

	m.AssertExpectations(t)
}

func TestProtect_StaleReservation(t *testing.T) {
	s, m := newMockSpace(t)

	const (
		id   osmem.AreaID = 9
		base uintptr      = 0x7f0000000000
	)
	info := osmem.AreaInfo{ID: id, Base: base, Size: testPageSize, Committed: true}
	notFound := &osmem.Error{Op: "info", Kind: osmem.ErrNotFound}

	m.On("Create", uintptr(0), testPageSize, ProtReadWrite.toNative(), false).Return(id, nil).Once()
	m.On("Info", id).Return(info, nil).Once()
	m.On("Info", id).Return(osmem.AreaInfo{}, notFound).Once()
	m.On("Info", id).Return(info, nil).Once()
	m.On("Delete", id).Return(nil).Once()

	a, err := s.Alloc(testPageSize, ProtReadWrite)
	require.NoError(t, err)

	err = s.Protect(base, testPageSize, ProtRead)
	require.ErrorIs(t, err, ErrUnmappedRegion)
	m.AssertNotCalled(t, "Protect", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, a.Close())
	m.AssertExpectations(t)
}

func TestClose_ReleaseRacingOutOfBandFree(t *testing.T) {
	s, m := newMockSpace(t)

	const (
		id   osmem.AreaID = 11
		base uintptr      = 0x7f0000000000
	)
	info := osmem.AreaInfo{ID: id, Base: base, Size: testPageSize, Committed: true}
	notFound := &osmem.Error{Op: "info", Kind: osmem.ErrNotFound}

	m.On("Create", uintptr(0), testPageSize, ProtReadWrite.toNative(), false).Return(id, nil).Once()
	m.On("Info", id).Return(info, nil).Twice()
	m.On("Delete", id).Return(&osmem.Error{Op: "delete", Kind: osmem.ErrNotFound}).Once()
	m.On("Info", id).Return(osmem.AreaInfo{}, notFound).Once()

	a, err := s.Alloc(testPageSize, ProtReadWrite)
	require.NoError(t, err)

	assert.NotPanics(t, func() { _ = a.Close() })
	assert.Zero(t, s.Pages())
	assert.Zero(t, s.Reserved())
	m.AssertExpectations(t)
}

func TestProtect_PinsEveryAllocationInRange(t *testing.T) {
	s, m := newMockSpace(t)

	const (
		id1  osmem.AreaID = 21
		id2  osmem.AreaID = 22
		base uintptr      = 0x7f0000000000
	)
	native := ProtReadWrite.toNative()
	m.On("Create", base, testPageSize, native, true).Return(id1, nil).Once()
	m.On("Create", base+testPageSize, testPageSize, native, true).Return(id2, nil).Once()
	m.On("Info", id1).Return(osmem.AreaInfo{ID: id1, Base: base, Size: testPageSize, Prot: native}, nil)
	m.On("Info", id2).Return(osmem.AreaInfo{ID: id2, Base: base + testPageSize, Size: testPageSize, Prot: native}, nil)

	first, err := s.AllocAt(base, testPageSize, ProtReadWrite)
	require.NoError(t, err)
	second, err := s.AllocAt(base+testPageSize, testPageSize, ProtReadWrite)
	require.NoError(t, err)

	var released bool
	m.On("Delete", id2).Run(func(mock.Arguments) { released = true }).Return(nil).Once()
	m.On("Delete", id1).Return(nil).Once()

	m.On("Protect", base, 2*testPageSize, ProtRead.toNative()).Run(func(mock.Arguments) {
		// Closing the neighbour while the OS call is in flight must not
		// release it yet.
		require.NoError(t, second.Close())
		assert.False(t, released)
	}).Return(nil).Once()

	require.NoError(t, s.Protect(base, 2*testPageSize, ProtRead))
	assert.True(t, released, "released once the call returned")
	assert.Equal(t, 1, s.Pages())

	require.NoError(t, first.Close())
	m.AssertExpectations(t)
}
