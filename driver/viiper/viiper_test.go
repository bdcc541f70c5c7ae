package viiper_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/driver/viiper"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
	th "github.com/Alia5/steamtarget/internal/testing"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestInitBusSelection(t *testing.T) {
	tests := []struct {
		name     string
		existing []uint32
		cfgBus   uint32
		wantBus  uint32
		wantOwns bool
	}{
		{name: "creates first bus", wantBus: 1, wantOwns: true},
		{name: "uses lowest existing", existing: []uint32{5, 3}, wantBus: 3},
		{name: "configured existing", existing: []uint32{2, 4}, cfgBus: 4, wantBus: 4},
		{name: "configured missing is created", existing: []uint32{2}, cfgBus: 9, wantBus: 9, wantOwns: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := th.StartFakeViiper(t, "")
			for _, b := range tt.existing {
				srv.AddBus(b)
			}
			d := viiper.New(viiper.Config{Addr: srv.Addr, BusID: tt.cfgBus}, nil, nil)
			require.NoError(t, d.Init())
			assert.Equal(t, tt.wantBus, d.BusID())

			require.NoError(t, d.Shutdown())
			_, stillThere := srv.Buses()[tt.wantBus]
			assert.Equal(t, !tt.wantOwns, stillThere, "bus removed only when created by the driver")
		})
	}
}

func TestInitUnreachable(t *testing.T) {
	d := viiper.New(viiper.Config{Addr: "127.0.0.1:1"}, nil, nil)
	err := d.Init()
	require.Error(t, err)
	assert.True(t, errors.Is(err, driver.ErrDriverUnavailable))
}

func TestPlugBeforeInit(t *testing.T) {
	d := viiper.New(viiper.Config{Addr: "127.0.0.1:1"}, nil, nil)
	_, err := d.Plug()
	assert.ErrorIs(t, err, driver.ErrDriverUnavailable)
}

func TestPlugSubmitFeedbackUnplug(t *testing.T) {
	srv := th.StartFakeViiper(t, "pw")
	raw := &syncBuffer{}
	d := viiper.New(viiper.Config{Addr: srv.Addr, Password: "pw"}, nil, log.NewRaw(raw))

	type fb struct {
		serial driver.Serial
		rumble gamepad.Rumble
	}
	got := make(chan fb, 4)
	d.SetFeedbackHandler(func(s driver.Serial, r gamepad.Rumble) { got <- fb{s, r} })
	require.NoError(t, d.Init())
	bus := d.BusID()

	s1, err := d.Plug()
	require.NoError(t, err)
	s2, err := d.Plug()
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
	assert.NotZero(t, s1)

	state := gamepad.InputState{Buttons: gamepad.ButtonB, RT: 200}
	require.NoError(t, d.Submit(s2, state))
	require.Eventually(t, func() bool {
		st, ok := srv.State(bus, s2.String())
		return ok && st == state
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, raw.String(), "P->V serial="+s2.String())

	require.Eventually(t, func() bool { return srv.StreamOpen(bus, s1.String()) }, time.Second, 5*time.Millisecond)
	require.NoError(t, srv.Rumble(bus, s1.String(), gamepad.Rumble{LargeMotor: 0x40, SmallMotor: 0x10}))
	select {
	case f := <-got:
		assert.Equal(t, s1, f.serial)
		assert.Equal(t, gamepad.Rumble{LargeMotor: 0x40, SmallMotor: 0x10}, f.rumble)
	case <-time.After(time.Second):
		t.Fatal("feedback not delivered")
	}

	require.NoError(t, d.Unplug(s1))
	assert.Equal(t, []string{s2.String()}, srv.Buses()[bus])
	assert.ErrorIs(t, d.Unplug(s1), driver.ErrDriverUnavailable)
	assert.ErrorIs(t, d.Submit(s1, state), driver.ErrDriverUnavailable)

	require.NoError(t, d.Shutdown())
	_, exists := srv.Buses()[bus]
	assert.False(t, exists)
}

func TestPlugFailure(t *testing.T) {
	srv := th.StartFakeViiper(t, "")
	d := viiper.New(viiper.Config{Addr: srv.Addr}, nil, nil)
	require.NoError(t, d.Init())
	srv.SetFailAdd(true)

	_, err := d.Plug()
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrDriverUnavailable)
	assert.Contains(t, err.Error(), "no free port")
	require.NoError(t, d.Shutdown())
}
