// Package viiper plugs virtual Xbox 360 targets into a VIIPER USBIP server.
package viiper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
	"github.com/Alia5/steamtarget/internal/viiperapi"
)

const (
	deviceType = "xbox360"
	maxBusTry  = 100
	opTimeout  = 5 * time.Second
)

// Config selects the VIIPER server.
type Config struct {
	Addr     string `help:"VIIPER API server address" default:"localhost:3242" env:"STEAMTARGET_VIIPER_ADDR"`
	Password string `help:"VIIPER API password (empty = unauthenticated)" env:"STEAMTARGET_VIIPER_PASSWORD"`
	BusID    uint32 `help:"Bus to plug targets into (0 = lowest existing bus, or create one)" default:"0" env:"STEAMTARGET_VIIPER_BUS_ID"`
}

type target struct {
	devID  string
	stream *viiperapi.Stream
}

// Driver implements driver.Driver on top of the VIIPER API.
type Driver struct {
	cfg    Config
	client *viiperapi.Client
	logger *slog.Logger
	raw    log.RawLogger

	mu       sync.Mutex
	busID    uint32
	ownsBus  bool
	ready    bool
	targets  map[driver.Serial]*target
	feedback driver.FeedbackFunc
	readers  sync.WaitGroup
}

// New returns an uninitialised driver. raw may be nil.
func New(cfg Config, logger *slog.Logger, raw log.RawLogger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Driver{
		cfg:     cfg,
		client:  viiperapi.New(cfg.Addr, &viiperapi.Config{Password: cfg.Password}),
		logger:  logger,
		raw:     raw,
		targets: map[driver.Serial]*target{},
	}
}

// BusID returns the bus targets are plugged into, 0 before Init.
func (d *Driver) BusID() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busID
}

func (d *Driver) SetFeedbackHandler(f driver.FeedbackFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.feedback = f
}

func (d *Driver) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := d.client.Ping(ctx); err != nil {
		return driver.Unavailable("ping viiper", err)
	}
	busID, owns, err := d.pickBus(ctx)
	if err != nil {
		return driver.Unavailable("select bus", err)
	}

	d.mu.Lock()
	d.busID, d.ownsBus, d.ready = busID, owns, true
	d.mu.Unlock()
	d.logger.Info("Connected to VIIPER", "addr", d.cfg.Addr, "bus", busID, "created", owns)
	return nil
}

func (d *Driver) pickBus(ctx context.Context) (uint32, bool, error) {
	list, err := d.client.BusList(ctx)
	if err != nil {
		return 0, false, err
	}
	if d.cfg.BusID != 0 {
		if slices.Contains(list.Buses, d.cfg.BusID) {
			return d.cfg.BusID, false, nil
		}
		r, err := d.client.BusCreate(ctx, d.cfg.BusID)
		if err != nil {
			return 0, false, err
		}
		return r.BusID, true, nil
	}
	if len(list.Buses) > 0 {
		return slices.Min(list.Buses), false, nil
	}
	var createErr error
	for try := uint32(1); try <= maxBusTry; try++ {
		r, err := d.client.BusCreate(ctx, try)
		if err == nil {
			return r.BusID, true, nil
		}
		createErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, false, fmt.Errorf("create bus: %w", createErr)
}

func (d *Driver) Plug() (driver.Serial, error) {
	d.mu.Lock()
	busID, ready := d.busID, d.ready
	d.mu.Unlock()
	if !ready {
		return 0, driver.Unavailable("plug", errors.New("not initialised"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	dev, err := d.client.DeviceAdd(ctx, busID, deviceType, nil, nil)
	if err != nil {
		return 0, driver.Unavailable("add device", err)
	}
	n, err := strconv.ParseUint(dev.DevID, 10, 32)
	if err != nil || n == 0 {
		d.removeDevice(busID, dev.DevID)
		return 0, driver.Unavailable("add device", fmt.Errorf("unusable device id %q", dev.DevID))
	}
	serial := driver.Serial(n)

	stream, err := d.client.OpenStream(ctx, busID, dev.DevID)
	if err != nil {
		d.removeDevice(busID, dev.DevID)
		return 0, driver.Unavailable("open stream", err)
	}

	d.mu.Lock()
	d.targets[serial] = &target{devID: dev.DevID, stream: stream}
	d.mu.Unlock()

	d.readers.Add(1)
	go d.readFeedback(serial, stream)

	d.logger.Debug("Plugged VIIPER device", "bus", busID, "dev", dev.DevID)
	return serial, nil
}

func (d *Driver) readFeedback(serial driver.Serial, stream *viiperapi.Stream) {
	defer d.readers.Done()
	err := stream.ReadFrames(gamepad.RumbleSize, func(b []byte) {
		d.raw.Log(log.FromTarget, uint32(serial), b)
		var r gamepad.Rumble
		if err := r.UnmarshalBinary(b); err != nil {
			return
		}
		d.mu.Lock()
		fb := d.feedback
		d.mu.Unlock()
		if fb != nil {
			fb(serial, r)
		}
	})
	if err != nil {
		d.logger.Warn("Feedback stream ended", "serial", serial, "error", err)
	}
}

func (d *Driver) removeDevice(busID uint32, devID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := d.client.DeviceRemove(ctx, busID, devID)
	return err
}

func (d *Driver) Unplug(serial driver.Serial) error {
	d.mu.Lock()
	t, ok := d.targets[serial]
	delete(d.targets, serial)
	busID := d.busID
	d.mu.Unlock()
	if !ok {
		return driver.Unavailable("unplug", fmt.Errorf("unknown serial %s", serial))
	}

	_ = t.stream.Close()
	if err := d.removeDevice(busID, t.devID); err != nil {
		return driver.Unavailable("remove device", err)
	}
	return nil
}

func (d *Driver) Submit(serial driver.Serial, state gamepad.InputState) error {
	d.mu.Lock()
	t, ok := d.targets[serial]
	d.mu.Unlock()
	if !ok {
		return driver.Unavailable("submit", fmt.Errorf("unknown serial %s", serial))
	}
	if err := t.stream.WriteBinary(&state); err != nil {
		return driver.Unavailable("submit", err)
	}
	if b, err := state.MarshalBinary(); err == nil {
		d.raw.Log(log.ToTarget, uint32(serial), b)
	}
	return nil
}

// Shutdown removes remaining devices, and the bus if Init created it.
func (d *Driver) Shutdown() error {
	d.mu.Lock()
	if !d.ready {
		d.mu.Unlock()
		return nil
	}
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
	d.readers.Wait()

	d.mu.Lock()
	busID, owns := d.busID, d.ownsBus
	d.ready, d.busID, d.ownsBus = false, 0, false
	d.mu.Unlock()

	if owns {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, err := d.client.BusRemove(ctx, busID); err != nil {
			errs = append(errs, fmt.Errorf("remove bus %d: %w", busID, err))
		}
	}
	return errors.Join(errs...)
}
