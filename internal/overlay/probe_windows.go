//go:build windows

package overlay

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

func newSteamProbe(logger *slog.Logger) (*SteamProbe, error) {
	proc := windows.CurrentProcess()
	return &SteamProbe{
		moduleBase: func() (uintptr, error) {
			name, err := windows.UTF16PtrFromString(steamModule)
			if err != nil {
				return 0, err
			}
			var h windows.Handle
			if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, name, &h); err != nil {
				return 0, err
			}
			return uintptr(h), nil
		},
		read: func(addr uintptr, buf []byte) error {
			var n uintptr
			return windows.ReadProcessMemory(proc, addr, &buf[0], uintptr(len(buf)), &n)
		},
		logger: logger,
	}, nil
}
