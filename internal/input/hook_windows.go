//go:build windows

package input

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	llkhfInjected = 0x10
)

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// DefaultSources returns the low-level keyboard hook.
func DefaultSources() []Source {
	return []Source{&llHook{}}
}

// The hook callback has no user pointer, so one hook runs at a time
var (
	activeMu      sync.Mutex
	activeHandler Handler
	activeHook    uintptr
)

// llHook is a WH_KEYBOARD_LL hook on a dedicated OS thread
type llHook struct{}

func (h *llHook) Name() string    { return "windows-ll-hook" }
func (h *llHook) Available() bool { return procSetWindowsHookEx.Find() == nil }

func (h *llHook) Run(ctx context.Context, handler Handler) error {
	errCh := make(chan error, 1)
	threadCh := make(chan uint32, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hMod, _, _ := procGetModuleHandle.Call(0)
		activeMu.Lock()
		activeHandler = handler
		hook, _, err := procSetWindowsHookEx.Call(whKeyboardLL, syscall.NewCallback(keyboardHookProc), hMod, 0)
		activeHook = hook
		activeMu.Unlock()
		if hook == 0 {
			errCh <- fmt.Errorf("set keyboard hook: %w", err)
			return
		}
		defer func() {
			procUnhookWindowsHookEx.Call(hook)
			activeMu.Lock()
			activeHandler = nil
			activeHook = 0
			activeMu.Unlock()
		}()

		threadCh <- windows.GetCurrentThreadId()

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}
		errCh <- nil
	}()

	var threadID uint32
	select {
	case threadID = <-threadCh:
	case err := <-errCh:
		return err
	}

	<-ctx.Done()
	procPostThreadMessage.Call(uintptr(threadID), wmQuit, 0, 0)
	<-errCh
	return ctx.Err()
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	activeMu.Lock()
	handler, hook := activeHandler, activeHook
	activeMu.Unlock()

	if nCode == 0 && handler != nil {
		kbd := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
		handler(KeyEvent{
			Key:      vkCodeToName(kbd.VkCode),
			Down:     wParam == wmKeyDown || wParam == wmSysKeyDown,
			Injected: kbd.Flags&llkhfInjected != 0,
			At:       time.Now(),
		})
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

// vkCodeToName maps virtual key codes; unmapped keys still count as activity
func vkCodeToName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "SUPER"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	}

	switch {
	case vk >= 0x41 && vk <= 0x5A, vk >= 0x30 && vk <= 0x39:
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return fmt.Sprintf("VK%02X", vk)
}
