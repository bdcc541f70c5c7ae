// Package scanner counts the physical Xbox 360 controllers attached to the host.
package scanner

import (
	"log/slog"
	"sync"

	"github.com/Alia5/steamtarget/gamepad"
)

// DeviceInfo is the subset of a HID descriptor the scanner looks at.
type DeviceInfo struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	Product   string
}

// EnumerateFunc calls fn for every HID device matching vid/pid (0 = any).
type EnumerateFunc func(vid, pid uint16, fn func(DeviceInfo) error) error

// Scanner counts HID devices carrying the Xbox 360 controller signature.
type Scanner struct {
	enumerate EnumerateFunc
	init      func() error
	exit      func() error
	logger    *slog.Logger

	mu     sync.Mutex
	opened bool
}

// New returns a scanner backed by hidapi.
func New(logger *slog.Logger) *Scanner {
	s := NewWithEnumerator(hidEnumerate, logger)
	s.init, s.exit = hidInit, hidExit
	return s
}

// NewWithEnumerator returns a scanner backed by e.
func NewWithEnumerator(e EnumerateFunc, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	nop := func() error { return nil }
	return &Scanner{enumerate: e, init: nop, exit: nop, logger: logger}
}

// Open initialises the HID library. Scan opens lazily when needed.
func (s *Scanner) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	if err := s.init(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.exit()
}

// Scan returns the number of distinct matching devices. Enumeration errors
// are logged and yield 0.
func (s *Scanner) Scan() int {
	if err := s.Open(); err != nil {
		s.logger.Warn("HID init failed", "error", err)
		return 0
	}
	seen := map[string]struct{}{}
	anon := 0
	err := s.enumerate(gamepad.VendorID, gamepad.ProductID, func(info DeviceInfo) error {
		if info.VendorID != gamepad.VendorID || info.ProductID != gamepad.ProductID {
			return nil
		}
		if info.Path == "" {
			anon++
			return nil
		}
		seen[info.Path] = struct{}{}
		return nil
	})
	if err != nil {
		s.logger.Warn("HID enumeration failed", "error", err)
		return 0
	}
	n := len(seen) + anon
	s.logger.Debug("Scanned physical controllers", "count", n)
	return n
}
