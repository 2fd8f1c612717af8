package region

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtection_String(t *testing.T) {
	tests := []struct {
		p    Protection
		want string
	}{
		{ProtNone, "---"},
		{ProtRead, "r--"},
		{ProtWrite, "-w-"},
		{ProtExecute, "--x"},
		{ProtReadWrite, "rw-"},
		{ProtReadExecute, "r-x"},
		{ProtWriteExecute, "-wx"},
		{ProtReadWriteExecute, "rwx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.String())
	}
}

func TestProtection_Contains(t *testing.T) {
	assert.True(t, ProtReadWrite.Contains(ProtRead))
	assert.True(t, ProtReadWrite.Contains(ProtNone))
	assert.False(t, ProtRead.Contains(ProtWrite))
	assert.False(t, ProtReadExecute.Contains(ProtReadWrite))
}

func TestProtection_NativeRoundTrip(t *testing.T) {
	for p := ProtNone; p <= protAll; p++ {
		want := p
		if runtime.GOOS == "windows" && p.Contains(ProtWrite) {
			want |= ProtRead
		}
		assert.Equal(t, want, protectionFromNative(p.toNative()), "protection %s", p)
	}
}

func TestProtection_IgnoresUnknownBits(t *testing.T) {
	assert.Equal(t, ProtRead.toNative(), (ProtRead | 0x80).toNative())
}
