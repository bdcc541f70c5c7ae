//go:build !windows

package util

// IsRunFromGUI is always false off Windows: there is no double-click launch to detect.
func IsRunFromGUI() bool { return false }

// ConsoleWindow returns 0; there is no console window handle to manage.
func ConsoleWindow() uintptr { return 0 }
