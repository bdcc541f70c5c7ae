//go:build !windows

package xinput

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/steamtarget/internal/engine"
)

func TestStubReportsAbsent(t *testing.T) {
	x := New()
	for slot := 0; slot < 4; slot++ {
		_, err := x.State(slot)
		assert.ErrorIs(t, err, engine.ErrDeviceAbsent)
	}
	assert.ErrorIs(t, x.SetVibration(0, 1, 1), engine.ErrDeviceAbsent)
}
