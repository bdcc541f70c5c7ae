package engine_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/engine"
	"github.com/Alia5/steamtarget/internal/overlay"
	th "github.com/Alia5/steamtarget/internal/testing"
)

type rig struct {
	drv   *th.FakeDriver
	in    *th.FakeInput
	scan  *th.FakeScanner
	focus *th.FakeFocus
	ov    *overlay.Flag
	eng   *engine.Engine
}

// newRig connects physical Xbox 360 pads at the first indices and builds an engine.
func newRig(t *testing.T, physical int, cfg engine.Config) *rig {
	t.Helper()
	r := &rig{
		in:    th.NewFakeInput(),
		scan:  th.NewFakeScanner(physical),
		focus: &th.FakeFocus{},
		ov:    &overlay.Flag{},
	}
	r.drv = th.NewFakeDriver().WireTo(r.in)
	for i := 0; i < physical; i++ {
		r.in.Connect()
	}
	eng, err := engine.New(cfg, engine.Deps{
		Driver:  r.drv,
		Input:   r.in,
		Scanner: r.scan,
		Focus:   r.focus,
		Overlay: r.ov,
	})
	require.NoError(t, err)
	r.eng = eng
	t.Cleanup(func() { _ = eng.Close() })
	return r
}

func enabled() engine.Config {
	return engine.Config{EnableControllers: true, RefreshRate: 60}
}

// scenarioA: one physical pad, two more devices appear.
func scenarioA(t *testing.T) *rig {
	r := newRig(t, 1, enabled())
	r.in.Connect()
	r.in.Connect()
	r.in.SetState(1, gamepad.InputState{Buttons: gamepad.ButtonA})
	r.in.SetState(2, gamepad.InputState{Buttons: gamepad.ButtonB, LT: 77})

	r.eng.Reconcile()
	r.eng.Step()
	return r
}

func TestScenarioAPlugsAdditionalDevices(t *testing.T) {
	r := scenarioA(t)
	snap := r.eng.Snapshot()

	assert.Equal(t, 1, snap.RealCount)
	assert.Equal(t, 2, snap.VirtualCount)
	assert.Equal(t, 2, snap.TotalCount)
	assert.Equal(t, []int{1, 2}, snap.Plugged)

	pool := r.eng.Pool()
	st, ok := r.drv.Last(pool.Serial(1))
	require.True(t, ok)
	assert.True(t, st.Pressed(gamepad.ButtonA))
	st, ok = r.drv.Last(pool.Serial(2))
	require.True(t, ok)
	assert.Equal(t, uint8(77), st.LT)

	r.eng.Step()
	assert.Equal(t, 2, r.drv.PluggedCount(), "steady state plugs nothing new")
}

func TestScenarioBUnplugsRemovedDevice(t *testing.T) {
	r := scenarioA(t)
	s1 := r.eng.Pool().Serial(1)

	r.in.Disconnect(1)
	r.eng.Step()

	snap := r.eng.Snapshot()
	assert.Equal(t, 1, snap.VirtualCount)
	assert.Equal(t, []int{2}, snap.Plugged)
	assert.Contains(t, r.drv.Calls(), "unplug "+s1.String())
}

func TestScenarioCResetControllers(t *testing.T) {
	r := scenarioA(t)
	r.scan.Set(2)

	require.Equal(t, 2, r.eng.Snapshot().VirtualCount)

	require.NoError(t, r.eng.ResetControllers(context.Background()))
	snap := r.eng.Snapshot()
	assert.Zero(t, snap.VirtualCount)
	assert.Zero(t, r.drv.PluggedCount())
	assert.Equal(t, 2, snap.RealCount)
	assert.Zero(t, snap.TotalCount)
	assert.False(t, snap.Paused)
}

func TestResetPausesDuringSettle(t *testing.T) {
	r := newRig(t, 0, engine.Config{EnableControllers: true, SettleDelay: 300 * time.Millisecond})
	r.in.Connect()
	r.eng.Reconcile()
	r.eng.Step()
	require.Equal(t, 1, r.eng.Snapshot().VirtualCount)

	done := make(chan error, 1)
	go func() { done <- r.eng.ResetControllers(context.Background()) }()

	require.Eventually(t, func() bool {
		s := r.eng.Snapshot()
		return s.Paused && s.VirtualCount == 0
	}, 250*time.Millisecond, 5*time.Millisecond)

	r.eng.Step()
	assert.Zero(t, r.eng.Snapshot().VirtualCount, "paused engine does not replug")

	require.NoError(t, <-done)
	assert.False(t, r.eng.Snapshot().Paused)
}

func TestResetHonoursContext(t *testing.T) {
	r := newRig(t, 0, engine.Config{EnableControllers: true, SettleDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.eng.ResetControllers(ctx), context.Canceled)
}

func TestEnableControllers(t *testing.T) {
	r := newRig(t, 1, enabled())
	r.in.Connect()
	r.eng.Reconcile()
	r.eng.Step()
	require.Equal(t, 1, r.eng.Snapshot().VirtualCount)

	require.NoError(t, r.eng.EnableControllers(context.Background(), false))
	snap := r.eng.Snapshot()
	assert.True(t, snap.Paused)
	assert.Zero(t, snap.VirtualCount)

	r.eng.Reconcile()
	r.eng.Step()
	assert.Zero(t, r.eng.Snapshot().VirtualCount, "disabled engine leaves devices alone")

	require.NoError(t, r.eng.EnableControllers(context.Background(), true))
	r.eng.Reconcile()
	r.eng.Step()
	snap = r.eng.Snapshot()
	assert.False(t, snap.Paused)
	assert.Equal(t, 1, snap.VirtualCount)
}

func TestScenarioEDriverInitFailure(t *testing.T) {
	drv := th.NewFakeDriver()
	drv.InitErr = errors.New("ViGEmBus not installed")
	scan := th.NewFakeScanner(1)

	eng, err := engine.New(enabled(), engine.Deps{
		Driver:  drv,
		Input:   th.NewFakeInput(),
		Scanner: scan,
		Focus:   &th.FakeFocus{},
	})
	require.Error(t, err)
	assert.Nil(t, eng)
	assert.ErrorIs(t, err, engine.ErrDriverInit)
	assert.Contains(t, err.Error(), "ViGEmBus not installed")
	assert.Equal(t, []string{"init"}, drv.Calls())
	assert.Zero(t, scan.Scans())
}

func TestFeedbackRoundTrip(t *testing.T) {
	r := scenarioA(t)
	s1 := r.eng.Pool().Serial(1)
	s2 := r.eng.Pool().Serial(2)

	r.drv.Rumble(s2, gamepad.Rumble{LargeMotor: 10, SmallMotor: 20})
	r.drv.Rumble(s1, gamepad.Rumble{LargeMotor: 255, SmallMotor: 0})
	assert.Equal(t, []th.Vibration{
		{Slot: 2, Left: 10 * 0xff, Right: 20 * 0xff},
		{Slot: 1, Left: 255 * 0xff, Right: 0},
	}, r.in.Vibrations())

	r.eng.Pool().Unplug(1)
	r.drv.Rumble(s1, gamepad.Rumble{LargeMotor: 1})
	r.drv.Rumble(999, gamepad.Rumble{LargeMotor: 1})
	assert.Len(t, r.in.Vibrations(), 2, "stale and unknown serials are dropped")
}

func TestPlugFailureRetriedNextFrame(t *testing.T) {
	r := newRig(t, 1, enabled())
	r.in.Connect()
	r.eng.Reconcile()

	r.drv.SetPlugErr(errors.New("no free slot"))
	r.eng.Step()
	assert.Zero(t, r.eng.Snapshot().VirtualCount)

	r.drv.SetPlugErr(nil)
	r.eng.Step()
	assert.Equal(t, []int{1}, r.eng.Snapshot().Plugged)
}

func TestFocusRunsEveryFrameWhilePaused(t *testing.T) {
	r := newRig(t, 0, engine.Config{DrawOverlay: true})
	r.in.Connect()
	r.eng.Reconcile()

	r.ov.Set(true)
	for i := 0; i < 3; i++ {
		r.eng.Step()
	}
	ticks, opens, top := r.focus.Counts()
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 3, opens)
	assert.Equal(t, 3, top)
	assert.Zero(t, r.eng.Snapshot().VirtualCount)
}

func TestShowCommands(t *testing.T) {
	r := newRig(t, 0, enabled())
	r.eng.ShowConsole(true)
	r.eng.ShowOverlay(false)
	assert.True(t, r.eng.Flags().ConsoleVisible())
	assert.False(t, r.eng.Flags().OverlayVisible())
	assert.Equal(t, []bool{true}, r.focus.Console)
	assert.Equal(t, []bool{false}, r.focus.Overlay)

	r.eng.Step()
	_, _, top := r.focus.Counts()
	assert.Zero(t, top)
}

// Randomised device churn: physical slots are never virtualised and the
// virtual count always matches the plugged records.
func TestInvariantsUnderChurn(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		physical := rng.Intn(3)
		r := newRig(t, physical, enabled())

		for i := 0; i < 200; i++ {
			switch rng.Intn(4) {
			case 0:
				r.in.Connect()
			case 1:
				r.in.Disconnect(physical + rng.Intn(gamepad.MaxSlots-physical))
			case 2:
				r.eng.Reconcile()
			default:
				r.eng.Step()
			}

			snap := r.eng.Snapshot()
			for slot := 0; slot < snap.RealCount; slot++ {
				require.False(t, r.eng.Pool().IsPlugged(slot), "seed %d: physical slot %d virtualised", seed, slot)
			}
			require.Equal(t, len(snap.Plugged), snap.VirtualCount, "seed %d", seed)
			require.Equal(t, snap.VirtualCount, r.drv.PluggedCount(), "seed %d", seed)
		}
	}
}

func TestRunAndClose(t *testing.T) {
	r := newRig(t, 0, engine.Config{EnableControllers: true, RefreshRate: 500})
	r.in.Connect()

	done := make(chan error, 1)
	go func() { done <- r.eng.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return r.eng.Snapshot().VirtualCount == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, r.eng.Flags().Running())

	require.NoError(t, r.eng.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.False(t, r.eng.Flags().Running())
	assert.Zero(t, r.drv.PluggedCount())
	assert.True(t, r.drv.IsShutdown())

	require.NoError(t, r.eng.Close())
	assert.ErrorIs(t, r.eng.Run(context.Background()), engine.ErrClosed)
}

func TestRunStopsOnContext(t *testing.T) {
	r := newRig(t, 0, enabled())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.eng.Run(ctx) }()

	require.Eventually(t, func() bool { return r.eng.Flags().Running() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, r.eng.Run(ctx), engine.ErrAlreadyRunning)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
