// Package overlay exposes whether a third-party overlay is currently open.
package overlay

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Signal reports whether the overlay is open.
type Signal interface {
	Open() bool
}

// Flag is a settable Signal. The zero value is closed.
type Flag struct{ v atomic.Bool }

func (f *Flag) Open() bool    { return f.v.Load() }
func (f *Flag) Set(open bool) { f.v.Store(open) }

// Probe kinds accepted by New.
const (
	ProbeNone  = "none"
	ProbeSteam = "steam"
)

// Config is embedded into the run command under the "overlay." prefix.
type Config struct {
	Probe string `help:"How to detect the Steam overlay" enum:"none,steam" default:"none" env:"STEAMTARGET_OVERLAY_PROBE"`
}

// New returns the Signal for kind.
func New(kind string, logger *slog.Logger) (Signal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch kind {
	case "", ProbeNone:
		return &Flag{}, nil
	case ProbeSteam:
		p, err := newSteamProbe(logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown overlay probe %q", kind)
	}
}

// Offsets into GameOverlayRenderer64.dll leading to the overlay-open byte.
const (
	steamModule     = "GameOverlayRenderer64.dll"
	steamBaseOffset = 0x1365e8
	steamFlagOffset = 0x40
)

type memReader func(addr uintptr, buf []byte) error

// SteamProbe reads the Steam overlay's open byte out of the renderer module
// Steam injects into the process.
type SteamProbe struct {
	moduleBase func() (uintptr, error)
	read       memReader
	logger     *slog.Logger

	mu   sync.Mutex
	addr uintptr
}

func (p *SteamProbe) resolve() (uintptr, error) {
	base, err := p.moduleBase()
	if err != nil {
		return 0, err
	}
	var ptr [8]byte
	if err := p.read(base+steamBaseOffset, ptr[:]); err != nil {
		return 0, fmt.Errorf("read overlay pointer: %w", err)
	}
	target := uintptr(binary.LittleEndian.Uint64(ptr[:]))
	if target == 0 {
		return 0, fmt.Errorf("overlay pointer is null")
	}
	return target + steamFlagOffset, nil
}

// Open reports the overlay state. Any failure counts as closed; the pointer
// chain is resolved again on the next call.
func (p *SteamProbe) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addr == 0 {
		addr, err := p.resolve()
		if err != nil {
			return false
		}
		p.addr = addr
		p.logger.Info("Steam overlay found", "module", steamModule, "flag", fmt.Sprintf("0x%x", addr))
	}
	var b [1]byte
	if err := p.read(p.addr, b[:]); err != nil {
		p.logger.Debug("Overlay flag unreadable", "error", err)
		p.addr = 0
		return false
	}
	return b[0] != 0
}
