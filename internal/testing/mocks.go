// Package testing holds fakes for the engine's collaborators and an
// in-process VIIPER server.
package testing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/engine"
)

// FakeInput models XInput: four indices, each present or not. A device that
// connects takes the lowest free index; the live count the engine sees runs
// from index 0 to the first gap.
type FakeInput struct {
	mu         sync.Mutex
	present    [gamepad.MaxSlots]bool
	states     [gamepad.MaxSlots]gamepad.InputState
	virtual    map[driver.Serial]int
	vibrations []Vibration
	queried    []int
	failErr    error
}

// Vibration is one recorded SetVibration call.
type Vibration struct {
	Slot        int
	Left, Right uint16
}

func NewFakeInput() *FakeInput {
	return &FakeInput{virtual: map[driver.Serial]int{}}
}

// Connect occupies the lowest free index and returns it, or -1 when full.
func (f *FakeInput) Connect() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectLocked()
}

func (f *FakeInput) connectLocked() int {
	for i, p := range f.present {
		if !p {
			f.present[i] = true
			return i
		}
	}
	return -1
}

// Disconnect frees index i.
func (f *FakeInput) Disconnect(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present[i] = false
	f.states[i] = gamepad.InputState{}
}

// AttachVirtual makes a freshly plugged virtual target visible as a device.
func (f *FakeInput) AttachVirtual(serial driver.Serial) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.connectLocked(); i >= 0 {
		f.virtual[serial] = i
	}
}

// DetachVirtual removes the device backing serial.
func (f *FakeInput) DetachVirtual(serial driver.Serial) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.virtual[serial]; ok {
		f.present[i] = false
		delete(f.virtual, serial)
	}
}

func (f *FakeInput) SetState(i int, s gamepad.InputState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[i] = s
}

// FailWith makes every State call fail with err (nil restores normal behaviour).
func (f *FakeInput) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *FakeInput) State(slot int) (gamepad.InputState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, slot)
	if slot < 0 || slot >= gamepad.MaxSlots {
		return gamepad.InputState{}, fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
	}
	if f.failErr != nil {
		return gamepad.InputState{}, f.failErr
	}
	if !f.present[slot] {
		return gamepad.InputState{}, fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
	}
	return f.states[slot], nil
}

func (f *FakeInput) SetVibration(slot int, left, right uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot < 0 || slot >= gamepad.MaxSlots || !f.present[slot] {
		return engine.ErrDeviceAbsent
	}
	f.vibrations = append(f.vibrations, Vibration{Slot: slot, Left: left, Right: right})
	return nil
}

func (f *FakeInput) Vibrations() []Vibration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Vibration(nil), f.vibrations...)
}

// TakeQueried returns and clears the slots queried so far.
func (f *FakeInput) TakeQueried() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queried
	f.queried = nil
	return q
}

// FakeDriver is an in-memory driver.Driver.
type FakeDriver struct {
	mu        sync.Mutex
	InitErr   error
	plugErr   error
	unplugErr error
	next      driver.Serial
	plugged   map[driver.Serial]gamepad.InputState
	feedback  driver.FeedbackFunc
	calls     []string
	shutdown  bool

	// OnPlug and OnUnplug run after the driver state changed.
	OnPlug   func(driver.Serial)
	OnUnplug func(driver.Serial)
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{plugged: map[driver.Serial]gamepad.InputState{}}
}

// WireTo makes plugged targets appear on in as devices.
func (d *FakeDriver) WireTo(in *FakeInput) *FakeDriver {
	d.OnPlug = in.AttachVirtual
	d.OnUnplug = in.DetachVirtual
	return d
}

func (d *FakeDriver) SetPlugErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plugErr = err
}

func (d *FakeDriver) SetUnplugErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unplugErr = err
}

func (d *FakeDriver) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *FakeDriver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("init")
	return d.InitErr
}

func (d *FakeDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("shutdown")
	d.shutdown = true
	return nil
}

func (d *FakeDriver) SetFeedbackHandler(f driver.FeedbackFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.feedback = f
}

func (d *FakeDriver) Plug() (driver.Serial, error) {
	d.mu.Lock()
	if d.plugErr != nil {
		err := d.plugErr
		d.record("plug error")
		d.mu.Unlock()
		return 0, driver.Unavailable("plug", err)
	}
	d.next++
	s := d.next
	d.plugged[s] = gamepad.InputState{}
	d.record("plug " + s.String())
	hook := d.OnPlug
	d.mu.Unlock()
	if hook != nil {
		hook(s)
	}
	return s, nil
}

func (d *FakeDriver) Unplug(s driver.Serial) error {
	d.mu.Lock()
	_, ok := d.plugged[s]
	delete(d.plugged, s)
	d.record("unplug " + s.String())
	err := d.unplugErr
	hook := d.OnUnplug
	d.mu.Unlock()
	if ok && hook != nil {
		hook(s)
	}
	if !ok {
		return driver.Unavailable("unplug", errors.New("unknown serial"))
	}
	if err != nil {
		return driver.Unavailable("unplug", err)
	}
	return nil
}

func (d *FakeDriver) Submit(s driver.Serial, st gamepad.InputState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.plugged[s]; !ok {
		return driver.Unavailable("submit", errors.New("unknown serial"))
	}
	d.plugged[s] = st
	return nil
}

// Rumble fires the registered feedback handler as the driver would.
func (d *FakeDriver) Rumble(s driver.Serial, r gamepad.Rumble) {
	d.mu.Lock()
	fb := d.feedback
	d.mu.Unlock()
	if fb != nil {
		fb(s, r)
	}
}

// Last returns the last state submitted to s.
func (d *FakeDriver) Last(s driver.Serial) (gamepad.InputState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.plugged[s]
	return st, ok
}

func (d *FakeDriver) PluggedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.plugged)
}

func (d *FakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *FakeDriver) IsShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown
}

// FakeScanner returns a settable physical count.
type FakeScanner struct {
	mu    sync.Mutex
	count int
	scans int
}

func NewFakeScanner(n int) *FakeScanner { return &FakeScanner{count: n} }

func (s *FakeScanner) Set(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
}

func (s *FakeScanner) Scan() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	return s.count
}

func (s *FakeScanner) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// FakeFocus counts engine focus calls.
type FakeFocus struct {
	mu       sync.Mutex
	Ticks    int
	Opens    int
	TopCalls int
	Console  []bool
	Overlay  []bool
}

func (f *FakeFocus) Tick(open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ticks++
	if open {
		f.Opens++
	}
}

func (f *FakeFocus) KeepOnTop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TopCalls++
}

func (f *FakeFocus) ShowConsole(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Console = append(f.Console, v)
}

func (f *FakeFocus) ShowOverlay(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Overlay = append(f.Overlay, v)
}

// Counts returns Ticks, Opens and TopCalls under the lock.
func (f *FakeFocus) Counts() (ticks, opens, top int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Ticks, f.Opens, f.TopCalls
}
