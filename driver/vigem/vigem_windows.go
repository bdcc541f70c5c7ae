//go:build windows

package vigem

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
)

var (
	client = windows.NewLazyDLL("ViGEmClient.dll")

	procAlloc                          = client.NewProc("vigem_alloc")
	procFree                           = client.NewProc("vigem_free")
	procConnect                        = client.NewProc("vigem_connect")
	procDisconnect                     = client.NewProc("vigem_disconnect")
	procTargetAdd                      = client.NewProc("vigem_target_add")
	procTargetFree                     = client.NewProc("vigem_target_free")
	procTargetRemove                   = client.NewProc("vigem_target_remove")
	procTargetGetIndex                 = client.NewProc("vigem_target_get_index")
	procTargetX360Alloc                = client.NewProc("vigem_target_x360_alloc")
	procTargetX360RegisterNotification = client.NewProc("vigem_target_x360_register_notification")
	procTargetX360UnregisterNotify     = client.NewProc("vigem_target_x360_unregister_notification")
	procTargetX360Update               = client.NewProc("vigem_target_x360_update")
)

// Driver implements driver.Driver over ViGEmClient.dll.
type Driver struct {
	logger *slog.Logger
	raw    log.RawLogger

	mu       sync.Mutex
	handle   uintptr
	targets  map[driver.Serial]uintptr
	serials  map[uintptr]driver.Serial
	feedback driver.FeedbackFunc
	notify   uintptr
}

// New returns an uninitialised driver. raw may be nil.
func New(logger *slog.Logger, raw log.RawLogger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	d := &Driver{
		logger:  logger,
		raw:     raw,
		targets: map[driver.Serial]uintptr{},
		serials: map[uintptr]driver.Serial{},
	}
	d.notify = windows.NewCallback(d.onNotification)
	return d
}

func (d *Driver) onNotification(_, target uintptr, large, small, _ uint8, _ uintptr) uintptr {
	d.mu.Lock()
	serial, ok := d.serials[target]
	fb := d.feedback
	d.mu.Unlock()
	if !ok || fb == nil {
		return 0
	}
	r := gamepad.Rumble{LargeMotor: large, SmallMotor: small}
	if b, err := r.MarshalBinary(); err == nil {
		d.raw.Log(log.FromTarget, uint32(serial), b)
	}
	fb(serial, r)
	return 0
}

func (d *Driver) SetFeedbackHandler(f driver.FeedbackFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.feedback = f
}

func (d *Driver) Init() error {
	if err := client.Load(); err != nil {
		return driver.Unavailable("load ViGEmClient.dll", err)
	}
	h, _, _ := procAlloc.Call()
	if h == 0 {
		return driver.Unavailable("vigem_alloc", errors.New("allocation failed"))
	}
	ret, _, _ := procConnect.Call(h)
	if err := newError(ret); err != nil {
		procFree.Call(h)
		return driver.Unavailable("vigem_connect", err)
	}
	d.mu.Lock()
	d.handle = h
	d.mu.Unlock()
	d.logger.Info("Connected to ViGEmBus")
	return nil
}

func (d *Driver) Plug() (driver.Serial, error) {
	d.mu.Lock()
	h := d.handle
	d.mu.Unlock()
	if h == 0 {
		return 0, driver.Unavailable("plug", errors.New("not initialised"))
	}

	t, _, _ := procTargetX360Alloc.Call()
	if t == 0 {
		return 0, driver.Unavailable("vigem_target_x360_alloc", errors.New("allocation failed"))
	}
	ret, _, _ := procTargetAdd.Call(h, t)
	if err := newError(ret); err != nil {
		procTargetFree.Call(t)
		return 0, driver.Unavailable("vigem_target_add", err)
	}
	idx, _, _ := procTargetGetIndex.Call(t)
	serial := driver.Serial(uint32(idx))

	d.mu.Lock()
	d.targets[serial] = t
	d.serials[t] = serial
	d.mu.Unlock()

	ret, _, _ = procTargetX360RegisterNotification.Call(h, t, d.notify, 0)
	if err := newError(ret); err != nil {
		d.logger.Warn("Rumble notifications unavailable", "serial", serial, "error", err)
	}
	return serial, nil
}

func (d *Driver) Unplug(serial driver.Serial) error {
	d.mu.Lock()
	t, ok := d.targets[serial]
	delete(d.targets, serial)
	delete(d.serials, t)
	h := d.handle
	d.mu.Unlock()
	if !ok {
		return driver.Unavailable("unplug", fmt.Errorf("unknown serial %s", serial))
	}

	procTargetX360UnregisterNotify.Call(t)
	ret, _, _ := procTargetRemove.Call(h, t)
	procTargetFree.Call(t)
	if err := newError(ret); err != nil {
		return driver.Unavailable("vigem_target_remove", err)
	}
	return nil
}

func (d *Driver) Submit(serial driver.Serial, state gamepad.InputState) error {
	d.mu.Lock()
	t, ok := d.targets[serial]
	h := d.handle
	d.mu.Unlock()
	if !ok {
		return driver.Unavailable("submit", fmt.Errorf("unknown serial %s", serial))
	}
	report := xusbReport{
		Buttons:      state.Buttons,
		LeftTrigger:  state.LT,
		RightTrigger: state.RT,
		ThumbLX:      state.LX,
		ThumbLY:      state.LY,
		ThumbRX:      state.RX,
		ThumbRY:      state.RY,
	}
	// XUSB_REPORT is larger than a register, so the x64 ABI passes it by reference.
	ret, _, _ := procTargetX360Update.Call(h, t, uintptr(unsafe.Pointer(&report)))
	if err := newError(ret); err != nil {
		return driver.Unavailable("vigem_target_x360_update", err)
	}
	d.raw.Log(log.ToTarget, uint32(serial), state.BuildReport())
	return nil
}

func (d *Driver) Shutdown() error {
	d.mu.Lock()
	serials := make([]driver.Serial, 0, len(d.targets))
	for s := range d.targets {
		serials = append(serials, s)
	}
	d.mu.Unlock()

	var errs []error
	for _, s := range serials {
		if err := d.Unplug(s); err != nil {
			errs = append(errs, err)
		}
	}

	d.mu.Lock()
	h := d.handle
	d.handle = 0
	d.mu.Unlock()
	if h != 0 {
		procDisconnect.Call(h)
		procFree.Call(h)
	}
	return errors.Join(errs...)
}
