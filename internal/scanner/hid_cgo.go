//go:build cgo

package scanner

import "github.com/sstallion/go-hid"

func hidInit() error { return hid.Init() }
func hidExit() error { return hid.Exit() }

func hidEnumerate(vid, pid uint16, fn func(DeviceInfo) error) error {
	return hid.Enumerate(vid, pid, func(info *hid.DeviceInfo) error {
		return fn(DeviceInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.ProductStr,
		})
	})
}
