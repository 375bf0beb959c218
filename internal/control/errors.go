package control

import "errors"

var (
	// ErrUnsupported is returned when no control channel can operate on this host
	ErrUnsupported = errors.New("no supported touchpad control channel")

	// ErrAmbiguousDevice is returned when device enumeration matched zero or several devices
	ErrAmbiguousDevice = errors.New("ambiguous touchpad device match")

	// ErrWriteFailed is returned when a setting write or device command was rejected
	ErrWriteFailed = errors.New("touchpad state write failed")

	// ErrCombinationSendFailed is returned when key injection failed
	ErrCombinationSendFailed = errors.New("key combination send failed")

	// ErrStateUnknown is returned when no channel could determine the state
	ErrStateUnknown = errors.New("touchpad state unknown")

	// ErrToolNotFound is returned when the required external tool is not found
	ErrToolNotFound = errors.New("required tool not found")

	// ErrNotAdopted is returned when the persistent setting channel has no probed location
	ErrNotAdopted = errors.New("no setting location adopted")
)
