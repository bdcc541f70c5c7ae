package vigem

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		name string
		code uintptr
		want string
	}{
		{name: "success", code: errNone},
		{name: "no free slot", code: errNoFreeSlot, want: "vigem: no free slot"},
		{name: "bus not found", code: errBusNotFound, want: "vigem: bus not found"},
		{name: "unknown", code: 0xE00000FF, want: "vigem: unknown error 0xe00000ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newError(tt.code)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			var ve *Error
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestReportLayout(t *testing.T) {
	assert.Equal(t, uintptr(12), unsafe.Sizeof(xusbReport{}))
	assert.Equal(t, uintptr(4), unsafe.Offsetof(xusbReport{}.ThumbLX))
}
