//go:build !cgo

package scanner

import "errors"

var errNoCgo = errors.New("hid enumeration requires a cgo build")

func hidInit() error { return nil }
func hidExit() error { return nil }

func hidEnumerate(uint16, uint16, func(DeviceInfo) error) error { return errNoCgo }
