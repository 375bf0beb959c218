//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>
#include <unistd.h>

CGEventRef keyTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

static CFRunLoopRef tapLoop;

static inline int runKeyTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp) | CGEventMaskBit(kCGEventFlagsChanged);
    CFMachPortRef tap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly, mask, keyTapCallback, (void*)refcon);
    if (!tap) {
        return -1;
    }
    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    tapLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(tapLoop, source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    CFRunLoopRun();
    CFRunLoopRemoveSource(tapLoop, source, kCFRunLoopCommonModes);
    CFRelease(source);
    CFRelease(tap);
    tapLoop = NULL;
    return 0;
}

static inline void stopKeyTap(void) {
    if (tapLoop) {
        CFRunLoopStop(tapLoop);
    }
}

static inline int eventFromSelf(CGEventRef event) {
    return CGEventGetIntegerValueField(event, kCGEventSourceUnixProcessID) == getpid();
}
*/
import "C"

import (
	"context"
	"errors"
	"runtime"
	"runtime/cgo"
	"strconv"
	"time"
	"unsafe"
)

// DefaultSources returns the CGEventTap listener.
func DefaultSources() []Source {
	return []Source{&eventTap{}}
}

// eventTap needs the Accessibility or Input Monitoring permission
type eventTap struct{}

func (t *eventTap) Name() string    { return "darwin-event-tap" }
func (t *eventTap) Available() bool { return true }

func (t *eventTap) Run(ctx context.Context, h Handler) error {
	handle := cgo.NewHandle(h)
	defer handle.Delete()

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if C.runKeyTap(C.uintptr_t(handle)) != 0 {
			errCh <- errors.New("create event tap: accessibility permission missing")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	C.stopKeyTap()
	<-errCh
	return ctx.Err()
}

//export keyTapCallback
func keyTapCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	h := cgo.Handle(uintptr(refcon)).Value().(Handler)
	injected := C.eventFromSelf(event) != 0
	keyCode := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))

	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		h(KeyEvent{
			Key:      macKeyCodeToName(keyCode),
			Down:     eventType == C.kCGEventKeyDown,
			Injected: injected,
			At:       time.Now(),
		})

	case C.kCGEventFlagsChanged:
		flags := C.CGEventGetFlags(event)
		var key string
		var down bool
		switch keyCode {
		case 55, 54:
			key, down = "SUPER", flags&C.kCGEventFlagMaskCommand != 0
		case 56, 60:
			key, down = "SHIFT", flags&C.kCGEventFlagMaskShift != 0
		case 58, 61:
			key, down = "ALT", flags&C.kCGEventFlagMaskAlternate != 0
		case 59, 62:
			key, down = "CTRL", flags&C.kCGEventFlagMaskControl != 0
		default:
			return event
		}
		h(KeyEvent{Key: key, Down: down, Injected: injected, At: time.Now()})
	}
	return event
}

var macKeyNames = map[uint16]string{
	0: "A", 11: "B", 8: "C", 2: "D", 14: "E", 3: "F", 5: "G", 4: "H", 34: "I",
	38: "J", 40: "K", 37: "L", 46: "M", 45: "N", 31: "O", 35: "P", 12: "Q",
	15: "R", 1: "S", 17: "T", 32: "U", 9: "V", 13: "W", 7: "X", 16: "Y", 6: "Z",

	29: "0", 18: "1", 19: "2", 20: "3", 21: "4", 23: "5", 22: "6", 26: "7", 28: "8", 25: "9",

	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",

	49: "SPACE", 36: "ENTER", 53: "ESC", 48: "TAB", 51: "BACKSPACE",
}

func macKeyCodeToName(code uint16) string {
	if name, ok := macKeyNames[code]; ok {
		return name
	}
	return "KEY" + strconv.Itoa(int(code))
}
