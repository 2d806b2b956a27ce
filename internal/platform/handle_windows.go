//go:build windows

package platform

import "unsafe"

// NativeHandles returns the Win32 window handle. Win32 surfaces need no
// display connection.
func (w *Window) NativeHandles() (display, window uintptr, err error) {
	return 0, uintptr(unsafe.Pointer(w.win.GetWin32Window())), nil
}
