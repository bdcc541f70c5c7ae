//go:build windows

// Package util holds Windows process and console helpers.
package util

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
)

var cliParents = []string{
	"cmd.exe",
	"powershell.exe",
	"pwsh.exe",
	"wt.exe",
	"conhost.exe",
	"windowsterminal.exe",
}

// ConsoleWindow returns the handle of the console attached to the process, or 0.
func ConsoleWindow() uintptr {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd
}

// IsRunFromGUI reports whether the process was started by Steam, Explorer or
// another non-shell parent rather than typed into a terminal.
func IsRunFromGUI() bool {
	hasConsole := ConsoleWindow() != 0
	parent := parentProcessName()
	fromShell := slices.Contains(cliParents, strings.ToLower(parent))

	slog.Debug("Parent process", "name", parent, "hasConsole", hasConsole, "fromShell", fromShell)

	if !hasConsole {
		return true
	}
	return !fromShell
}

func parentProcessName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	entries := map[uint32]windows.ProcessEntry32{}
	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err := windows.Process32First(snapshot, &pe); err == nil; err = windows.Process32Next(snapshot, &pe) {
		entries[pe.ProcessID] = pe
	}

	self, ok := entries[uint32(os.Getpid())]
	if !ok || self.ParentProcessID == 0 {
		return ""
	}
	parent, ok := entries[self.ParentProcessID]
	if !ok {
		return ""
	}
	return windows.UTF16ToString(parent.ExeFile[:])
}
