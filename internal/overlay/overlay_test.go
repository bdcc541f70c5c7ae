package overlay

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag(t *testing.T) {
	var f Flag
	assert.False(t, f.Open())
	f.Set(true)
	assert.True(t, f.Open())
	f.Set(false)
	assert.False(t, f.Open())
}

func TestNewKinds(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)
	assert.False(t, s.Open())

	s, err = New(ProbeNone, nil)
	require.NoError(t, err)
	assert.IsType(t, &Flag{}, s)

	_, err = New("bogus", nil)
	assert.Error(t, err)
}

// fakeMemory maps addresses to byte values; reads outside it fail.
type fakeMemory map[uintptr]byte

func (m fakeMemory) read(addr uintptr, buf []byte) error {
	for i := range buf {
		b, ok := m[addr+uintptr(i)]
		if !ok {
			return errors.New("access violation")
		}
		buf[i] = b
	}
	return nil
}

func (m fakeMemory) putPtr(addr uintptr, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	for i, x := range b {
		m[addr+uintptr(i)] = x
	}
}

func TestSteamProbe(t *testing.T) {
	const base, heap = 0x10000000, 0x20000000
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		moduleErr error
		setup     func(m fakeMemory)
		want      bool
	}{
		{
			name:      "module missing",
			moduleErr: errors.New("not loaded"),
			want:      false,
		},
		{
			name: "null pointer",
			setup: func(m fakeMemory) {
				m.putPtr(base+steamBaseOffset, 0)
			},
			want: false,
		},
		{
			name: "closed",
			setup: func(m fakeMemory) {
				m.putPtr(base+steamBaseOffset, heap)
				m[heap+steamFlagOffset] = 0
			},
			want: false,
		},
		{
			name: "open",
			setup: func(m fakeMemory) {
				m.putPtr(base+steamBaseOffset, heap)
				m[heap+steamFlagOffset] = 1
			},
			want: true,
		},
		{
			name: "flag unreadable",
			setup: func(m fakeMemory) {
				m.putPtr(base+steamBaseOffset, heap)
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := fakeMemory{}
			if tt.setup != nil {
				tt.setup(mem)
			}
			p := &SteamProbe{
				moduleBase: func() (uintptr, error) { return base, tt.moduleErr },
				read:       mem.read,
				logger:     logger,
			}
			assert.Equal(t, tt.want, p.Open())
		})
	}
}

func TestSteamProbeReresolves(t *testing.T) {
	const base, heap = 0x10000000, 0x20000000
	mem := fakeMemory{}
	mem.putPtr(base+steamBaseOffset, heap)
	mem[heap+steamFlagOffset] = 1
	p := &SteamProbe{
		moduleBase: func() (uintptr, error) { return base, nil },
		read:       mem.read,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	assert.True(t, p.Open())

	delete(mem, heap+steamFlagOffset)
	assert.False(t, p.Open())

	mem.putPtr(base+steamBaseOffset, heap+0x100)
	mem[heap+0x100+steamFlagOffset] = 1
	assert.True(t, p.Open())
}
