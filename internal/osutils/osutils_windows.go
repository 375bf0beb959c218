//go:build windows

// Package osutils wraps the few OS calls the control channels need.
package osutils

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procBeep                = kernel32.NewProc("Beep")
)

const (
	hwndBroadcast    = 0xFFFF
	wmSettingChange  = 0x001A
	smtoAbortIfHung  = 0x0002
	broadcastTimeout = 1000 // ms
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// BroadcastSettingChange tells every top-level window that user settings
// changed. Hung windows are skipped instead of blocking the caller.
func BroadcastSettingChange() error {
	area, err := syscall.UTF16PtrFromString("Policy")
	if err != nil {
		return err
	}
	var result uintptr
	ret, _, callErr := procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(area)),
		smtoAbortIfHung,
		broadcastTimeout,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return fmt.Errorf("SendMessageTimeout WM_SETTINGCHANGE: %v", callErr)
	}
	return nil
}

// Beep plays a tone on the system speaker
func Beep(frequency, durationMS uint32) error {
	ret, _, err := procBeep.Call(uintptr(frequency), uintptr(durationMS))
	if ret == 0 {
		return fmt.Errorf("Beep: %v", err)
	}
	return nil
}
