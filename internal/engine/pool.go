package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
)

type slotRecord struct {
	serial  driver.Serial
	plugged bool
}

// Pool owns the virtual targets, one record per controller slot. The records
// double as the serial registry feedback is routed through.
//
// Driver calls are made without holding the pool lock so a feedback callback
// fired from inside the driver can still resolve serials. Callers serialise
// Plug/Unplug for a given slot.
type Pool struct {
	drv    driver.Driver
	logger *slog.Logger

	mu    sync.Mutex
	slots [gamepad.MaxSlots]slotRecord
}

func NewPool(drv driver.Driver, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{drv: drv, logger: logger}
}

func validSlot(slot int) bool { return slot >= 0 && slot < gamepad.MaxSlots }

// Plug creates a target at slot. A slot that is already plugged keeps its target.
func (p *Pool) Plug(slot int) (driver.Serial, error) {
	if !validSlot(slot) {
		return 0, fmt.Errorf("plug slot %d: %w", slot, ErrSlotOutOfRange)
	}
	p.mu.Lock()
	if rec := p.slots[slot]; rec.plugged {
		p.mu.Unlock()
		return rec.serial, nil
	}
	p.mu.Unlock()

	serial, err := p.drv.Plug()
	if err != nil {
		return 0, fmt.Errorf("plug slot %d: %w", slot, err)
	}

	p.mu.Lock()
	p.slots[slot] = slotRecord{serial: serial, plugged: true}
	p.mu.Unlock()
	return serial, nil
}

// Unplug removes the target at slot and reports whether there was one.
// Driver errors are logged; the slot is released regardless.
func (p *Pool) Unplug(slot int) bool {
	if !validSlot(slot) {
		return false
	}
	p.mu.Lock()
	rec := p.slots[slot]
	p.slots[slot] = slotRecord{}
	p.mu.Unlock()
	if !rec.plugged {
		return false
	}
	if err := p.drv.Unplug(rec.serial); err != nil {
		p.logger.Warn("Unplug failed, treating target as gone", "slot", slot, "serial", rec.serial, "error", err)
	}
	return true
}

// UnplugAll releases every slot and returns how many targets were removed.
func (p *Pool) UnplugAll() int {
	n := 0
	for slot := 0; slot < gamepad.MaxSlots; slot++ {
		if p.Unplug(slot) {
			n++
		}
	}
	return n
}

// Forward submits state to the target at slot. Unplugged slots are skipped.
func (p *Pool) Forward(slot int, state gamepad.InputState) error {
	if !validSlot(slot) {
		return fmt.Errorf("forward slot %d: %w", slot, ErrSlotOutOfRange)
	}
	p.mu.Lock()
	rec := p.slots[slot]
	p.mu.Unlock()
	if !rec.plugged {
		p.logger.Debug("Forward to unplugged slot ignored", "slot", slot)
		return nil
	}
	if err := p.drv.Submit(rec.serial, state); err != nil {
		return fmt.Errorf("forward slot %d: %w", slot, err)
	}
	return nil
}

// SlotOf resolves a serial back to the slot holding it.
func (p *Pool) SlotOf(serial driver.Serial) (int, bool) {
	if serial == 0 {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, rec := range p.slots {
		if rec.plugged && rec.serial == serial {
			return i, true
		}
	}
	return 0, false
}

// Serial returns the serial at slot, 0 if unplugged.
func (p *Pool) Serial(slot int) driver.Serial {
	if !validSlot(slot) {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[slot].serial
}

func (p *Pool) IsPlugged(slot int) bool {
	if !validSlot(slot) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[slot].plugged
}

// VirtualCount is the number of plugged slots.
func (p *Pool) VirtualCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, rec := range p.slots {
		if rec.plugged {
			n++
		}
	}
	return n
}

// Plugged lists the plugged slot indices in ascending order.
func (p *Pool) Plugged() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []int
	for i, rec := range p.slots {
		if rec.plugged {
			out = append(out, i)
		}
	}
	return out
}
