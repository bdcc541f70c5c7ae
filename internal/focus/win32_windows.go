//go:build windows

package focus

import (
	"errors"
	"log/slog"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"github.com/Alia5/steamtarget/internal/util"
)

const (
	overlayClass = "SteamTargetOverlay"

	styleInteractive  = win.WS_EX_LAYERED | win.WS_EX_TOPMOST | win.WS_EX_TOOLWINDOW
	styleClickThrough = styleInteractive | win.WS_EX_TRANSPARENT
)

// Win32 owns the overlay window and its message loop.
type Win32 struct {
	logger  *slog.Logger
	console win.HWND
	overlay win.HWND
	done    chan struct{}
}

func overlayProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// NewWin32 creates the full-screen click-through overlay window on a
// dedicated OS thread and pumps its messages until Close.
func NewWin32(logger *slog.Logger) (*Win32, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Win32{
		logger:  logger,
		console: win.HWND(util.ConsoleWindow()),
		done:    make(chan struct{}),
	}
	created := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(w.done)

		hInst := win.GetModuleHandle(nil)
		className, _ := syscall.UTF16PtrFromString(overlayClass)
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			LpfnWndProc:   syscall.NewCallback(overlayProc),
			HInstance:     hInst,
			LpszClassName: className,
		}
		win.RegisterClassEx(&wc)

		title, _ := syscall.UTF16PtrFromString("OverlayWindow")
		hwnd := win.CreateWindowEx(
			styleClickThrough, className, title, win.WS_POPUP,
			0, 0, win.GetSystemMetrics(win.SM_CXSCREEN), win.GetSystemMetrics(win.SM_CYSCREEN),
			0, 0, hInst, nil)
		if hwnd == 0 {
			created <- errors.New("CreateWindowEx failed")
			return
		}
		w.overlay = hwnd
		created <- nil

		var msg win.MSG
		for win.GetMessage(&msg, 0, 0, 0) > 0 {
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}
	}()

	if err := <-created; err != nil {
		return nil, err
	}
	logger.Debug("Overlay window created", "hwnd", uintptr(w.overlay), "console", uintptr(w.console))
	return w, nil
}

// Close destroys the overlay window and waits for its thread to exit.
func (w *Win32) Close() error {
	if w.overlay != 0 {
		win.PostMessage(w.overlay, win.WM_CLOSE, 0, 0)
	}
	<-w.done
	return nil
}

func (w *Win32) Console() Handle    { return Handle(w.console) }
func (w *Win32) Overlay() Handle    { return Handle(w.overlay) }
func (w *Win32) Foreground() Handle { return Handle(win.GetForegroundWindow()) }

func (w *Win32) Activate(h Handle) {
	if h == 0 {
		return
	}
	win.SetFocus(win.HWND(h))
	win.SetForegroundWindow(win.HWND(h))
}

func (w *Win32) SetClickThrough(h Handle, on bool) {
	if h == 0 {
		return
	}
	style := int32(styleInteractive)
	if on {
		style = int32(styleClickThrough)
	}
	win.SetWindowLong(win.HWND(h), win.GWL_EXSTYLE, style)
}

func (w *Win32) Show(h Handle, visible bool) {
	if h == 0 {
		return
	}
	cmd := int32(win.SW_HIDE)
	if visible {
		cmd = win.SW_SHOW
	}
	win.ShowWindow(win.HWND(h), cmd)
}

func (w *Win32) KeepOnTop(h Handle) {
	if h == 0 {
		return
	}
	win.SetWindowPos(win.HWND(h), win.HWND_TOPMOST, 0, 0, 0, 0, win.SWP_NOMOVE|win.SWP_NOSIZE|win.SWP_NOACTIVATE)
}
