package main

import (
    "errors"
    "fmt"
)

var (
    // ErrDeviceUnavailable means a scanner could not be opened or grabbed
    // at startup.  It is fatal.
    ErrDeviceUnavailable = errors.New("device unavailable")
    // ErrDeviceLost means an open scanner stopped delivering events.  The
    // session ends and is not restarted.
    ErrDeviceLost = errors.New("device lost")
    // ErrRelayClosed is returned by Pulse after the relay was shut down.
    ErrRelayClosed = errors.New("relay closed")
)

// DeviceError describes a failure on one scanner device.
type DeviceError struct {
    Op   string // "open", "grab" or "read"
    Path string // device path
    Err  error  // underlying error
}

func (e *DeviceError) Error() string {
    return fmt.Sprintf("%s %s: %v (%v)", e.Op, e.Path, e.Err, e.kind())
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Is lets errors.Is match the failure class: read errors are device loss,
// everything before reading is unavailability.
func (e *DeviceError) Is(target error) bool {
    return target == e.kind()
}

func (e *DeviceError) kind() error {
    if e.Op == "read" {
        return ErrDeviceLost
    }
    return ErrDeviceUnavailable
}
